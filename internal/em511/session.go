package em511

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Session is the driver for one meter. It holds no state besides the unit
// identifier and the transport: every call is a fresh round trip. A Session
// is not safe for concurrent use.
type Session struct {
	unit      UnitID
	transport Transport
}

// NewSession creates a driver for the meter at unit on transport.
func NewSession(unit UnitID, transport Transport) (*Session, error) {
	if !unit.IsValid() {
		return nil, fmt.Errorf("em511: unit id %d not in [%d,%d]", unit, UnitMin, UnitMax)
	}
	if transport == nil {
		return nil, errors.New("em511: nil transport")
	}
	return &Session{unit: unit, transport: transport}, nil
}

// Unit returns the unit identifier of the meter.
func (s *Session) Unit() UnitID {
	return s.unit
}

// Read reads, decodes and validates the named register.
func (s *Session) Read(name string) (Value, error) {
	reg, err := s.lookup("read", name)
	if err != nil {
		return Value{}, err
	}
	words, err := s.transport.ReadRegisters(s.unit, reg.Address, reg.Words)
	if err != nil {
		rerr := s.registerError("read", reg, ErrTransport)
		rerr.Err = err
		return Value{}, rerr
	}
	v, rerr := decode(reg, words)
	if rerr != nil {
		rerr.Op = "read"
		rerr.Unit = s.unit
		return Value{}, rerr
	}
	return v, nil
}

// Write validates value and writes it to the named register. Validation
// failures are reported before any transport I/O.
func (s *Session) Write(name string, value int64) error {
	reg, err := s.lookup("write", name)
	if err != nil {
		return err
	}
	if !reg.Writable {
		rerr := s.registerError("write", reg, ErrReadOnlyRegister)
		rerr.Value = strconv.FormatInt(value, 10)
		return rerr
	}
	lo, hi := int64(0), int64(math.MaxUint16)
	if reg.RangeChecked {
		lo, hi = reg.Min, reg.Max
	}
	if value < lo || value > hi || value < 0 || value > math.MaxUint16 {
		rerr := s.registerError("write", reg, ErrOutOfRange)
		rerr.Value = strconv.FormatInt(value, 10)
		rerr.Min, rerr.Max = lo, hi
		return rerr
	}
	if err := s.transport.WriteRegister(s.unit, reg.Address, uint16(value)); err != nil {
		rerr := s.registerError("write", reg, ErrTransport)
		rerr.Value = strconv.FormatInt(value, 10)
		rerr.Err = err
		return rerr
	}
	return nil
}

// Firmware reads the firmware version and revision as "major.minor,revision".
func (s *Session) Firmware() (string, error) {
	v, err := s.Read(FirmwareAndRevision)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (s *Session) lookup(op, name string) (Register, error) {
	reg, err := Lookup(name)
	if err != nil {
		var rerr *RegisterError
		if errors.As(err, &rerr) {
			rerr.Op = op
			rerr.Unit = s.unit
		}
		return Register{}, err
	}
	return reg, nil
}

func (s *Session) registerError(op string, reg Register, kind ErrorKind) *RegisterError {
	return &RegisterError{
		Op:       op,
		Unit:     s.unit,
		Register: reg.Name,
		Address:  reg.Address,
		Kind:     kind,
	}
}
