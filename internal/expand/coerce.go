package expand

import (
	"math"
	"strconv"
	"strings"
	"time"

	"rowexpand/internal/sheet"
)

// ToNumber converts a cell to a number the way spreadsheet formulas do:
// nil and "" are 0, booleans are 1 or 0, strings are parsed after trimming
// (decimal, exponent and 0x/0o/0b integer forms), and anything else is NaN.
// Dates are NaN; a serial date is never a quantity.
func ToNumber(c sheet.Cell) float64 {
	switch v := c.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return parseNumber(v)
	case time.Time:
		return math.NaN()
	default:
		return math.NaN()
	}
}

func parseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	// ParseFloat also accepts "inf", "nan" and hex floats; only plain
	// decimal notation counts as a number here.
	if strings.ContainsAny(s, "iInNxXpP_") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// silentZero reports whether a skipped raw value is expected filler that does
// not deserve an anomaly entry: empty, nil or a numeric zero. A textual "0"
// is not silent.
func silentZero(c sheet.Cell) bool {
	switch v := c.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case float64:
		return v == 0
	case float32:
		return v == 0
	case int:
		return v == 0
	case int64:
		return v == 0
	}
	return false
}

// typeName describes a raw cell value for anomaly reports.
func typeName(c sheet.Cell) string {
	switch c.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64, float32, int, int64:
		return "number"
	case bool:
		return "boolean"
	case time.Time:
		return "date"
	default:
		return "object"
	}
}
