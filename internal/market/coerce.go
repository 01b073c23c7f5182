package market

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Coerce turns a loosely formatted value into a Number. Thousands commas,
// whitespace and currency or percent noise around the digits are dropped.
// Anything that does not parse to a finite number yields the empty marker.
// Coerce never panics; every provider goes through it.
func Coerce(v any) Number {
	switch x := v.(type) {
	case nil:
		return Number{}
	case Number:
		return x
	case decimal.Decimal:
		return finite(x)
	case string:
		return coerceString(x)
	case json.Number:
		return coerceString(x.String())
	case float64:
		return NumberFromFloat(x)
	case float32:
		return NumberFromFloat(float64(x))
	case int:
		return NewNumber(decimal.NewFromInt(int64(x)))
	case int32:
		return NewNumber(decimal.NewFromInt32(x))
	case int64:
		return NewNumber(decimal.NewFromInt(x))
	case uint64:
		return NewNumber(decimal.NewFromUint64(x))
	default:
		return Number{}
	}
}

func coerceString(s string) Number {
	s = strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimFunc(s, func(r rune) bool { return !isNumberRune(r) })
	if s == "" {
		return Number{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Number{}
	}
	return finite(d)
}

func isNumberRune(r rune) bool {
	return (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '+'
}
