package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Number is a numeric cell. The zero value is the empty marker: it means
// "unknown" and is never the same thing as 0.
type Number struct {
	d     decimal.Decimal
	valid bool
}

// Empty returns the empty marker.
func Empty() Number { return Number{} }

// NewNumber wraps a decimal as a present value.
func NewNumber(d decimal.Decimal) Number { return Number{d: d, valid: true} }

// NumberFromFloat converts f, mapping NaN and infinities to the empty marker.
func NumberFromFloat(f float64) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}
	}
	return NewNumber(decimal.NewFromFloat(f))
}

// maxIntDigits is the most integer digits a finite float64 can have.
const maxIntDigits = 309

// finite wraps d unless it would overflow a float64, which JSON consumers
// read back as Infinity.
func finite(d decimal.Decimal) Number {
	if d.IsZero() {
		return NewNumber(decimal.Zero)
	}
	if d.NumDigits()+int(d.Exponent()) > maxIntDigits {
		return Number{}
	}
	if f, _ := d.Float64(); math.IsInf(f, 0) {
		return Number{}
	}
	return NewNumber(d)
}

// MustNumber parses s and panics if it is not a decimal. Meant for literals.
func MustNumber(s string) Number { return NewNumber(decimal.RequireFromString(s)) }

func (n Number) Valid() bool               { return n.valid }
func (n Number) Decimal() decimal.Decimal { return n.d }

// Float64 returns the value and whether it was present.
func (n Number) Float64() (float64, bool) {
	if !n.valid {
		return 0, false
	}
	f, _ := n.d.Float64()
	return f, true
}

// Equal reports whether both are empty or both hold the same value.
func (n Number) Equal(o Number) bool {
	if n.valid != o.valid {
		return false
	}
	return !n.valid || n.d.Equal(o.d)
}

func (n Number) String() string {
	if !n.valid {
		return ""
	}
	return n.d.String()
}

// MarshalJSON writes a bare JSON number, or "" for the empty marker.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte(`""`), nil
	}
	return []byte(n.d.String()), nil
}

// UnmarshalJSON accepts a JSON number, null, or a string run through Coerce.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*n = Number{}
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("market: decode number: %w", err)
		}
		*n = Coerce(s)
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("market: decode number %s: %w", b, err)
	}
	*n = finite(d)
	return nil
}

func (n Number) nonNegative() Number {
	if n.valid && n.d.IsNegative() {
		return Number{}
	}
	return n
}

func (n Number) truncated() Number {
	if !n.valid {
		return n
	}
	return NewNumber(n.d.Truncate(0))
}
