// Package em511 drives Carlo Gavazzi EM511 energy meters. A fixed catalog
// maps named quantities to Modbus registers; a Session reads, decodes,
// validates and writes them through a caller supplied Transport.
package em511

import (
	"fmt"
	"slices"
)

// Kind tells how the words of a register are turned into a value.
type Kind uint8

// Value kinds.
const (
	// KindInteger registers report the unpacked integer unchanged.
	KindInteger Kind = iota

	// KindScaled registers are divided by Scale and rounded to Decimals.
	KindScaled

	// KindFirmware is the composite firmware/revision bit layout.
	KindFirmware
)

// String renders this kind as a string.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindScaled:
		return "scaled"
	case KindFirmware:
		return "firmware"
	}
	return fmt.Sprintf("unknown kind %d", k)
}

// Group sorts catalog entries by purpose.
type Group uint8

// Register groups.
const (
	GroupMeasurement Group = iota
	GroupAccumulator
	GroupConfiguration
	GroupIdentification
)

// String renders this group as a string.
func (g Group) String() string {
	switch g {
	case GroupMeasurement:
		return "measurement"
	case GroupAccumulator:
		return "accumulator"
	case GroupConfiguration:
		return "configuration"
	case GroupIdentification:
		return "identification"
	}
	return fmt.Sprintf("unknown group %d", g)
}

// Register describes how one logical quantity maps onto meter registers.
type Register struct {
	// Name is the unique catalog key.
	Name string

	// Address is the first register address.
	Address uint16

	// Words is the number of 16-bit registers, 1 or 2. Two-word values are
	// transmitted low word first.
	Words uint16

	// Scale is the divisor applied to scaled values. Always at least 1.
	Scale int64

	// Decimals is the number of decimal places scaled values are rounded to.
	Decimals int32

	// Writable registers accept single-register writes.
	Writable bool

	// RangeChecked registers must decode to, and be written with, values in
	// [Min, Max].
	RangeChecked bool

	// Min and Max are the inclusive bounds for RangeChecked registers.
	Min, Max int64

	// Kind selects the decoding.
	Kind Kind

	// Group is the purpose of the register.
	Group Group
}

// String renders a one line description of the register.
func (r Register) String() string {
	access := "read-only"
	if r.Writable {
		access = "read/write"
	}
	s := fmt.Sprintf("%s 0x%04X (%s)", r.Name, r.Address, access)
	if r.RangeChecked {
		s += fmt.Sprintf(" range=[%d, %d]", r.Min, r.Max)
	}
	return s
}

// Register names.
const (
	Voltage             = "voltage"
	Current             = "current"
	CurrentDemand       = "current_demand"
	CurrentDemandPeak   = "current_demand_peak"
	Power               = "power"
	PowerDemand         = "power_demand"
	PowerDemandPeak     = "power_demand_peak"
	Frequency           = "frequency"
	EnergyTotal         = "energy_total"
	EnergyPartial       = "energy_partial"
	RunHours            = "run_hours"
	LifetimeHours       = "lifetime_hours"
	RunHoursPartial     = "run_hours_partial"
	Password            = "password"
	AlarmStatus         = "alarm_status"
	AlarmMode           = "alarm_mode"
	AlarmDelay          = "alarm_delay"
	DmdIntegrationTime  = "dmd_integration_time"
	DeviceID            = "device_id"
	BaudRate            = "baud_rate"
	Parity              = "parity"
	StopBit             = "stop_bit"
	ReplyDelay          = "reply_delay"
	IdentificationCode  = "identification_code"
	MeasureMode         = "measure_mode"
	FirmwareAndRevision = "firmware_and_revision"
)

func scaled(name string, address, words uint16, scale int64, decimals int32, group Group) Register {
	return Register{
		Name:     name,
		Address:  address,
		Words:    words,
		Scale:    scale,
		Decimals: decimals,
		Kind:     KindScaled,
		Group:    group,
	}
}

func integer(name string, address, words uint16, writable bool, lo, hi int64, group Group) Register {
	return Register{
		Name:         name,
		Address:      address,
		Words:        words,
		Scale:        1,
		Writable:     writable,
		RangeChecked: true,
		Min:          lo,
		Max:          hi,
		Kind:         KindInteger,
		Group:        group,
	}
}

// catalog is the register map of the meter. It must not be modified.
var catalog = [...]Register{
	scaled(Voltage, 0x0000, 2, 10, 1, GroupMeasurement),
	scaled(Current, 0x0002, 2, 1000, 3, GroupMeasurement),
	scaled(CurrentDemand, 0x003A, 2, 1000, 3, GroupMeasurement),
	scaled(CurrentDemandPeak, 0x003C, 2, 1000, 3, GroupMeasurement),
	scaled(Power, 0x0004, 2, 10, 1, GroupMeasurement),
	scaled(PowerDemand, 0x000A, 2, 10, 1, GroupMeasurement),
	scaled(PowerDemandPeak, 0x000C, 2, 10, 1, GroupMeasurement),
	scaled(Frequency, 0x000F, 1, 10, 1, GroupMeasurement),
	scaled(EnergyTotal, 0x0010, 2, 10, 4, GroupAccumulator),
	scaled(EnergyPartial, 0x0014, 2, 10, 4, GroupAccumulator),
	scaled(RunHours, 0x002C, 2, 100, 2, GroupAccumulator),
	scaled(LifetimeHours, 0x0030, 2, 100, 2, GroupAccumulator),
	scaled(RunHoursPartial, 0x0036, 2, 100, 2, GroupAccumulator),
	integer(Password, 0x1000, 1, true, 0, 9999, GroupConfiguration),
	integer(AlarmStatus, 0x0306, 1, false, 0, 1, GroupMeasurement),
	integer(AlarmMode, 0x1015, 1, true, 1, 6, GroupConfiguration),
	integer(AlarmDelay, 0x101A, 1, true, 0, 3600, GroupConfiguration),
	integer(DmdIntegrationTime, 0x1010, 2, true, 0, 6, GroupConfiguration),
	integer(DeviceID, 0x2000, 1, true, 1, 247, GroupConfiguration),
	integer(BaudRate, 0x2001, 1, true, 1, 5, GroupConfiguration),
	integer(Parity, 0x2002, 1, true, 1, 2, GroupConfiguration),
	integer(StopBit, 0x2003, 1, true, 0, 1, GroupConfiguration),
	integer(ReplyDelay, 0x2004, 1, true, 0, 1000, GroupConfiguration),
	integer(IdentificationCode, 0x000B, 1, false, 1792, 1795, GroupIdentification),
	integer(MeasureMode, 0x1103, 1, false, 0, 1, GroupConfiguration),
	{
		Name:    FirmwareAndRevision,
		Address: 0x0302,
		Words:   1,
		Scale:   1,
		Kind:    KindFirmware,
		Group:   GroupIdentification,
	},
}

// catalogIndex maps register names to their index in catalog.
var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, r := range catalog {
		if _, dup := idx[r.Name]; dup {
			panic("em511: duplicate register " + r.Name)
		}
		idx[r.Name] = i
	}
	return idx
}()

// Lookup returns the catalog entry for name.
func Lookup(name string) (Register, error) {
	i, ok := catalogIndex[name]
	if !ok {
		return Register{}, &RegisterError{
			Op:       "lookup",
			Register: name,
			Kind:     ErrUnknownRegister,
		}
	}
	return catalog[i], nil
}

// Registers returns a copy of the catalog in table order.
func Registers() []Register {
	out := make([]Register, len(catalog))
	copy(out, catalog[:])
	return out
}

// Names returns the names of the registers in the given groups, in table
// order. Without groups, all names are returned.
func Names(groups ...Group) []string {
	var out []string
	for _, r := range catalog {
		if len(groups) == 0 || slices.Contains(groups, r.Group) {
			out = append(out, r.Name)
		}
	}
	return out
}

// IsKnown reports whether name is in the catalog.
func IsKnown(name string) bool {
	_, ok := catalogIndex[name]
	return ok
}
