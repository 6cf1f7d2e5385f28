package em511

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readCall struct {
	unit    UnitID
	address uint16
	count   uint16
}

type writeCall struct {
	unit    UnitID
	address uint16
	value   uint16
}

// fakeTransport records requests. Reads return words when set, otherwise the
// contents of memory, which writes update.
type fakeTransport struct {
	words     []uint16
	memory    map[uint16]uint16
	readErr   error
	writeErrs []error

	reads  []readCall
	writes []writeCall
}

func (f *fakeTransport) ReadRegisters(unit UnitID, address, count uint16) ([]uint16, error) {
	f.reads = append(f.reads, readCall{unit, address, count})
	if f.readErr != nil {
		return nil, f.readErr
	}
	if f.words != nil {
		return f.words, nil
	}
	out := make([]uint16, count)
	for i := range out {
		out[i] = f.memory[address+uint16(i)]
	}
	return out, nil
}

func (f *fakeTransport) WriteRegister(unit UnitID, address, value uint16) error {
	f.writes = append(f.writes, writeCall{unit, address, value})
	if len(f.writeErrs) > 0 {
		err := f.writeErrs[0]
		f.writeErrs = f.writeErrs[1:]
		if err != nil {
			return err
		}
	}
	if f.memory == nil {
		f.memory = make(map[uint16]uint16)
	}
	f.memory[address] = value
	return nil
}

func newTestSession(t *testing.T, ft *fakeTransport) *Session {
	t.Helper()
	s, err := NewSession(1, ft)
	require.NoError(t, err)
	return s
}

func TestNewSession(t *testing.T) {
	ft := &fakeTransport{}

	_, err := NewSession(0, ft)
	assert.Error(t, err)
	_, err = NewSession(248, ft)
	assert.Error(t, err)
	_, err = NewSession(1, nil)
	assert.Error(t, err)

	s, err := NewSession(247, ft)
	require.NoError(t, err)
	assert.Equal(t, UnitID(247), s.Unit())
}

func TestSessionReadRequest(t *testing.T) {
	ft := &fakeTransport{words: []uint16{0x08FC, 0x0000}}
	s, err := NewSession(17, ft)
	require.NoError(t, err)

	v, err := s.Read(Voltage)
	require.NoError(t, err)
	assert.Equal(t, "230.0", v.String())
	assert.Equal(t, []readCall{{unit: 17, address: 0x0000, count: 2}}, ft.reads)

	ft.words = []uint16{0x01F4}
	v, err = s.Read(Frequency)
	require.NoError(t, err)
	assert.Equal(t, "50.0", v.String())
	assert.Equal(t, readCall{unit: 17, address: 0x000F, count: 1}, ft.reads[1])
}

func TestSessionReadErrors(t *testing.T) {
	t.Run("unknown register", func(t *testing.T) {
		ft := &fakeTransport{}
		_, err := newTestSession(t, ft).Read("kvarh")
		assert.ErrorIs(t, err, ErrUnknownRegister)
		assert.Empty(t, ft.reads)
	})

	t.Run("transport", func(t *testing.T) {
		ioErr := errors.New("serial timeout")
		ft := &fakeTransport{readErr: ioErr}
		_, err := newTestSession(t, ft).Read(Power)
		assert.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, ioErr)

		var rerr *RegisterError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "read", rerr.Op)
		assert.Equal(t, Power, rerr.Register)
		assert.Equal(t, uint16(0x0004), rerr.Address)
		assert.Equal(t, UnitID(1), rerr.Unit)
	})

	t.Run("overflow", func(t *testing.T) {
		ft := &fakeTransport{words: []uint16{0xFFFF, 0x7FFF}}
		_, err := newTestSession(t, ft).Read(EnergyTotal)
		assert.ErrorIs(t, err, ErrOverflowSentinel)
		assert.Contains(t, err.Error(), "input overflow EEE for 32-bit register")
	})

	t.Run("out of range", func(t *testing.T) {
		ft := &fakeTransport{words: []uint16{0x2710}}
		_, err := newTestSession(t, ft).Read(Password)
		assert.ErrorIs(t, err, ErrOutOfRange)

		var rerr *RegisterError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "10000", rerr.Value)
		assert.Equal(t, int64(0), rerr.Min)
		assert.Equal(t, int64(9999), rerr.Max)
	})
}

func TestSessionWriteBounds(t *testing.T) {
	for _, reg := range Registers() {
		if !reg.Writable || !reg.RangeChecked {
			continue
		}
		t.Run(reg.Name, func(t *testing.T) {
			for _, v := range []int64{reg.Min, reg.Max} {
				ft := &fakeTransport{}
				require.NoError(t, newTestSession(t, ft).Write(reg.Name, v))
				assert.Equal(t, []writeCall{{unit: 1, address: reg.Address, value: uint16(v)}}, ft.writes)
			}
			for _, v := range []int64{reg.Min - 1, reg.Max + 1} {
				ft := &fakeTransport{}
				err := newTestSession(t, ft).Write(reg.Name, v)
				assert.ErrorIs(t, err, ErrOutOfRange)
				assert.Empty(t, ft.writes)
			}
		})
	}
}

func TestSessionWriteReadOnly(t *testing.T) {
	for _, reg := range Registers() {
		if reg.Writable {
			continue
		}
		t.Run(reg.Name, func(t *testing.T) {
			ft := &fakeTransport{}
			err := newTestSession(t, ft).Write(reg.Name, 1)
			assert.ErrorIs(t, err, ErrReadOnlyRegister)
			assert.Empty(t, ft.writes)
		})
	}
}

func TestSessionWriteErrors(t *testing.T) {
	t.Run("unknown register", func(t *testing.T) {
		ft := &fakeTransport{}
		err := newTestSession(t, ft).Write("pin", 1)
		assert.ErrorIs(t, err, ErrUnknownRegister)
		assert.Empty(t, ft.writes)
	})

	t.Run("out of range message", func(t *testing.T) {
		err := newTestSession(t, &fakeTransport{}).Write(Password, 12345)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "12345, must be between 0 and 9999")
	})

	t.Run("transport", func(t *testing.T) {
		ioErr := errors.New("crc mismatch")
		ft := &fakeTransport{writeErrs: []error{ioErr}}
		err := newTestSession(t, ft).Write(DeviceID, 123)
		assert.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, ioErr)
		assert.Len(t, ft.writes, 1)
	})
}

func TestSessionWriteReadBack(t *testing.T) {
	for _, reg := range Registers() {
		if !reg.Writable || reg.Kind != KindInteger {
			continue
		}
		t.Run(reg.Name, func(t *testing.T) {
			ft := &fakeTransport{}
			s := newTestSession(t, ft)
			for _, v := range []int64{reg.Min, (reg.Min + reg.Max) / 2, reg.Max} {
				require.NoError(t, s.Write(reg.Name, v))
				got, err := s.Read(reg.Name)
				require.NoError(t, err)
				assert.True(t, IntValue(v).Equal(got), "wrote %d, read %s", v, got)
			}
		})
	}
}

func TestSessionFirmware(t *testing.T) {
	ft := &fakeTransport{words: []uint16{0x4343}}
	fw, err := newTestSession(t, ft).Firmware()
	require.NoError(t, err)
	assert.Equal(t, "4.3,67", fw)
	assert.Equal(t, []readCall{{unit: 1, address: 0x0302, count: 1}}, ft.reads)
}
