package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/sakif/movielog/internal/coerce"
)

// Date is an optional calendar date with no time-of-day component.
//
// It is stored as YYYY-MM-DD text. Depending on the declared column type the
// SQLite driver may hand it back as a time.Time or as the raw string, so Scan
// accepts both.
type Date struct {
	Time  time.Time
	Valid bool
}

// NewDate truncates t to its calendar day.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

// String renders the date as YYYY-MM-DD, or "" when absent.
func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(coerce.DateLayout)
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.String(), nil
}

// Scan implements sql.Scanner. Stored text that is not a YYYY-MM-DD date
// (seed rows are loaded verbatim) scans as an absent date instead of failing
// the whole row.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v)
	case []byte:
		d.scanText(string(v))
	case string:
		d.scanText(v)
	default:
		return fmt.Errorf("model: cannot scan %T into Date", src)
	}
	return nil
}

func (d *Date) scanText(s string) {
	t, err := coerce.StringToDate(s)
	if err != nil {
		*d = Date{}
		return
	}
	*d = NewDate(t)
}
