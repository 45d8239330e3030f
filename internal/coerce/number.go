package coerce

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// Number is the result of StringToNumber: either an integer, the original
// string it failed to parse, or nothing at all.
//
// SQLite columns are loosely typed, so a Number round-trips through an
// INTEGER column as whatever it really is: an integer, TEXT, or NULL.
type Number struct {
	Raw   string // the original input, kept when it is not an integer
	Int   int64
	IsInt bool // Int holds the parsed value
	Valid bool // false when the value is absent
}

// Int64 builds a Number holding an integer.
func Int64(i int64) Number {
	return Number{Raw: strconv.FormatInt(i, 10), Int: i, IsInt: true, Valid: true}
}

// Blank reports whether the Number carries nothing worth displaying.
func (n Number) Blank() bool {
	return !n.Valid || (!n.IsInt && n.Raw == "")
}

// String renders the integer when there is one, otherwise the raw input.
func (n Number) String() string {
	switch {
	case !n.Valid:
		return ""
	case n.IsInt:
		return strconv.FormatInt(n.Int, 10)
	default:
		return n.Raw
	}
}

// Value implements driver.Valuer.
func (n Number) Value() (driver.Value, error) {
	switch {
	case !n.Valid:
		return nil, nil
	case n.IsInt:
		return n.Int, nil
	default:
		return n.Raw, nil
	}
}

// Scan implements sql.Scanner. Text that happens to be numeric is promoted to
// an integer, matching what StringToNumber would have produced for it.
func (n *Number) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = Number{}
	case int64:
		*n = Int64(v)
	case float64:
		// A whole REAL is an integer year; anything else (1994.5) is kept as
		// the text it was stored as.
		if i, ok := truncFloat(v); ok && float64(i) == v {
			*n = Int64(i)
		} else {
			*n = Number{Raw: strconv.FormatFloat(v, 'f', -1, 64), Valid: true}
		}
	case []byte:
		s := string(v)
		*n = StringToNumber(&s)
	case string:
		*n = StringToNumber(&v)
	default:
		return fmt.Errorf("coerce: cannot scan %T into Number", src)
	}
	return nil
}
