package em511

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Overflow sentinels. The meter reports these instead of a reading it cannot
// show on its display ("EEE").
const (
	Overflow16 uint16 = 0x7FFF
	Overflow32 uint32 = 0x7FFFFFFF
)

// Decode turns the raw words of reg into a validated value. The number of
// words decides the unpacking: one word is a 16-bit value, two words are a
// 32-bit value sent low word first.
func Decode(reg Register, words []uint16) (Value, error) {
	v, rerr := decode(reg, words)
	if rerr != nil {
		rerr.Op = "decode"
		return Value{}, rerr
	}
	return v, nil
}

func decode(reg Register, words []uint16) (Value, *RegisterError) {
	if reg.Kind == KindFirmware {
		if len(words) != 1 {
			return Value{}, registerError(reg, ErrMalformedResponse, words)
		}
		return firmwareValue(words[0]), nil
	}

	raw, rerr := unpack(reg, words)
	if rerr != nil {
		return Value{}, rerr
	}

	var v Value
	if reg.Kind == KindScaled {
		d := decimal.NewFromInt(int64(raw)).Div(decimal.NewFromInt(reg.Scale))
		v = ScaledValue(d, reg.Decimals)
	} else {
		v = IntValue(int64(raw))
	}

	if reg.RangeChecked && !inRange(reg, v.dec) {
		rerr := registerError(reg, ErrOutOfRange, words)
		rerr.Value = v.String()
		rerr.Min, rerr.Max = reg.Min, reg.Max
		return Value{}, rerr
	}
	return v, nil
}

// unpack combines response words into one unsigned integer and rejects the
// overflow sentinels.
func unpack(reg Register, words []uint16) (uint32, *RegisterError) {
	switch len(words) {
	case 1:
		if words[0] == Overflow16 {
			return 0, registerError(reg, ErrOverflowSentinel, words)
		}
		return uint32(words[0]), nil
	case 2:
		v := uint32(words[1])<<16 | uint32(words[0])
		if v == Overflow32 {
			return 0, registerError(reg, ErrOverflowSentinel, words)
		}
		return v, nil
	}
	return 0, registerError(reg, ErrMalformedResponse, words)
}

func inRange(reg Register, d decimal.Decimal) bool {
	return !d.LessThan(decimal.NewFromInt(reg.Min)) && !d.GreaterThan(decimal.NewFromInt(reg.Max))
}

// FormatFirmware renders a firmware/revision word. The upper nibble of the
// high byte is the major version, the lower nibble the minor version, and the
// low byte the revision.
func FormatFirmware(word uint16) string {
	major := word >> 12
	minor := (word >> 8) & 0x0F
	revision := word & 0xFF
	return fmt.Sprintf("%d.%d,%d", major, minor, revision)
}

func firmwareValue(word uint16) Value {
	return Value{
		Kind: KindFirmware,
		dec:  decimal.NewFromInt(int64(word)),
		text: FormatFirmware(word),
	}
}

func registerError(reg Register, kind ErrorKind, words []uint16) *RegisterError {
	return &RegisterError{
		Register: reg.Name,
		Address:  reg.Address,
		Kind:     kind,
		Words:    slices.Clone(words),
	}
}
