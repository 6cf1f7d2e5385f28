package em511

import (
	"github.com/shopspring/decimal"
)

// Value is a decoded register value. Scaled values are exact decimals, so
// accumulated readings round the same way on every platform.
type Value struct {
	// Kind is the kind of the register the value was decoded from.
	Kind Kind

	// Decimals is the number of decimal places of scaled values.
	Decimals int32

	dec  decimal.Decimal
	text string
}

// IntValue returns an integer value.
func IntValue(v int64) Value {
	return Value{Kind: KindInteger, dec: decimal.NewFromInt(v)}
}

// ScaledValue returns a scaled value rounded to decimals places.
func ScaledValue(d decimal.Decimal, decimals int32) Value {
	return Value{Kind: KindScaled, Decimals: decimals, dec: d.RoundBank(decimals)}
}

// Decimal returns the exact value. For firmware values this is the raw
// register word.
func (v Value) Decimal() decimal.Decimal {
	return v.dec
}

// Int64 returns the integer part of the value.
func (v Value) Int64() int64 {
	return v.dec.IntPart()
}

// Float64 returns the nearest float64 to the value.
func (v Value) Float64() float64 {
	f, _ := v.dec.Float64()
	return f
}

// String renders the value: scaled values with exactly Decimals places,
// integers plainly and firmware as "major.minor,revision".
func (v Value) String() string {
	switch v.Kind {
	case KindScaled:
		return v.dec.StringFixed(v.Decimals)
	case KindFirmware:
		return v.text
	}
	return v.dec.String()
}

// Equal reports whether v and o are of the same kind and numerically equal.
func (v Value) Equal(o Value) bool {
	return v.Kind == o.Kind && v.text == o.text && v.dec.Equal(o.dec)
}
