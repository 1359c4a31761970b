package redirect

import "strconv"

// LooseEquals compares a candidate value from a calculation result against
// a rule value using an explicit coercion table:
//
//   - numbers and fully numeric strings compare numerically, so
//     "200.50" equals 200.50 and 100 equals "100"
//   - booleans equal the strings "1"/"0" and nonzero/zero numbers
//   - the words "true"/"false" never equal booleans here; that coercion
//     belongs to payload construction only (fisca.ParseBooleanWord)
//   - otherwise strings compare exactly
//
// The table is deliberately hand-rolled rather than delegated to any
// generic weak-typing helper; rule matching is an externally observable
// contract and must not drift.
func LooseEquals(a, b any) bool {
	if a == nil || b == nil {
		return looseNil(a) && looseNil(b)
	}
	if ab, ok := a.(bool); ok {
		return boolEquals(ab, b)
	}
	if bb, ok := b.(bool); ok {
		return boolEquals(bb, a)
	}

	af, aNum := toNumber(a)
	bf, bNum := toNumber(b)
	if aNum && bNum {
		return af == bf
	}

	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return as == bs
	}
	return false
}

// looseNil reports whether a value is nil or an empty string, the two
// shapes an unanswered field takes.
func looseNil(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func boolEquals(b bool, other any) bool {
	switch v := other.(type) {
	case bool:
		return b == v
	case string:
		// Only the digit strings coerce to booleans.
		switch v {
		case "1":
			return b
		case "0":
			return !b
		}
		return false
	default:
		if f, ok := toNumber(other); ok {
			return b == (f != 0)
		}
		return false
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
