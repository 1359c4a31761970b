package fisca

import (
	"strconv"
	"strings"
)

// ParseBooleanWord converts the whole words "true" and "false", in any
// letter case, to booleans. Every other value passes through unchanged.
// This is the payload-construction coercion only; redirect rule matching
// deliberately uses different semantics and never treats word booleans as
// booleans (see redirect.LooseEquals).
func ParseBooleanWord(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}

// ToInt coerces a scalar to an integer the way a weakly typed cast would:
// booleans map to 1/0, floats truncate toward zero, strings contribute
// their leading numeric prefix, anything else is 0.
func ToInt(value any) int {
	switch v := value.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		return int(leadingNumber(v))
	default:
		return 0
	}
}

// leadingNumber parses the longest numeric prefix of s, so "12abc" yields
// 12 and "x12" yields 0.
func leadingNumber(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	seenDigit := false
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		seenDigit = true
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
			seenDigit = true
		}
	}
	if !seenDigit {
		return 0
	}
	// Exponent suffix, when complete, extends the prefix.
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		expEnd := end + 1
		if expEnd < len(s) && (s[expEnd] == '+' || s[expEnd] == '-') {
			expEnd++
		}
		expDigits := false
		for expEnd < len(s) && s[expEnd] >= '0' && s[expEnd] <= '9' {
			expEnd++
			expDigits = true
		}
		if expDigits {
			end = expEnd
		}
	}
	n, err := strconv.ParseFloat(strings.TrimLeft(s[:end], " \t\n\r"), 64)
	if err != nil {
		return 0
	}
	return n
}

// Truthy reports whether a decoded JSON value counts as present, both for
// immediate-exit detection and for gating submission values into the
// payload. Empty strings, "0", zero numbers, false, nil and empty
// containers do not count.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && v != "0"
	case float64:
		return v != 0
	case int:
		return v != 0
	case []any:
		return len(v) > 0
	case *OrderedMap:
		return v.Len() > 0
	default:
		return true
	}
}
