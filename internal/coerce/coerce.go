// Package coerce converts untyped input (form fields, URL segments, cookies,
// loosely typed SQLite columns) into typed values.
//
// TWO FALLBACK POLICIES:
// Input that does not parse is handled in one of two ways, and the two are
// deliberately kept apart:
//
//   - StringToNumber falls back to the ORIGINAL value. "abc" stays "abc".
//     Release years use this so that nothing the user typed is lost.
//   - OptionalInt falls back to ABSENT. "abc" becomes nil.
//     Ratings read back from storage use this, so a bad rating is simply unset.
//
// Callers pick the policy by picking the function.
package coerce

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the only accepted date format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// ErrInvalidDate is wrapped by StringToDate when the input is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// StringToBool reports whether s is exactly "True".
// Anything else, including "true" and "", is false.
func StringToBool(s string) bool {
	return s == "True"
}

// StringToDate parses s strictly as YYYY-MM-DD.
//
// time.Parse with a fixed layout is already strict about separators and field
// order, so "01/15/2024" and "2024-1-15" both fail here. The result is a
// calendar date at midnight UTC.
func StringToDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not in YYYY-MM-DD form", ErrInvalidDate, s)
	}
	return t, nil
}

// StringToNumber attempts an integer parse and otherwise hands the input back
// untouched. A nil pointer means the value was never supplied and yields an
// absent Number.
//
//	StringToNumber(ptr("42"))  → Number{Int: 42, IsInt: true}
//	StringToNumber(ptr("abc")) → Number{Raw: "abc"}
//	StringToNumber(nil)        → Number{} (absent)
func StringToNumber(s *string) Number {
	if s == nil {
		return Number{}
	}
	n := Number{Raw: *s, Valid: true}
	if i, err := strconv.ParseInt(strings.TrimSpace(*s), 10, 64); err == nil {
		n.Int = i
		n.IsInt = true
	}
	return n
}

// OptionalInt converts a loosely typed value into an int, or nil when it
// cannot. Floats are truncated toward zero (4.9 → 4, -1.5 → -1).
//
// This is the "ignore and treat as unset" policy: it never returns the
// original value and never returns an error.
func OptionalInt(v any) *int {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return &x
	case int64:
		i := int(x)
		return &i
	case float64:
		i64, ok := truncFloat(x)
		if !ok {
			return nil
		}
		i := int(i64)
		return &i
	case []byte:
		return OptionalInt(string(x))
	case string:
		s := strings.TrimSpace(x)
		if i, err := strconv.Atoi(s); err == nil {
			return &i
		}
		return nil
	default:
		return nil
	}
}

// truncFloat truncates f toward zero. ok is false for NaN, ±Inf and values
// outside the int64 range, where a Go conversion would be undefined.
func truncFloat(f float64) (i int64, ok bool) {
	t := math.Trunc(f)
	// -2^63 is exact as a float64; 2^63 is not representable as an int64.
	if math.IsNaN(t) || t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, false
	}
	return int64(t), true
}
