package em511

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Command addresses. These registers trigger actions on the meter and are
// not part of the catalog.
const (
	ResetTotalsAddress    uint16 = 0x4003
	ResetPartialAddress   uint16 = 0x4004
	ResetDemandAddress    uint16 = 0x4005
	FactoryRestoreAddress uint16 = 0x4020
)

// Factory restore sequence. The meter expects the second value within one
// second of the first; timing is up to the caller and the transport.
const (
	FactoryRestoreArm     uint16 = 0x0A0A
	FactoryRestoreConfirm uint16 = 0xC1A0
)

// ResetTotals resets the total energy and run hour counters.
func (s *Session) ResetTotals() error {
	return s.command("reset_totals", ResetTotalsAddress, 1)
}

// ResetPartial resets the partial energy and hour counters.
func (s *Session) ResetPartial() error {
	return s.command("reset_partial", ResetPartialAddress, 1)
}

// ResetDemand resets the demand and peak demand values.
func (s *Session) ResetDemand() error {
	return s.command("reset_demand", ResetDemandAddress, 1)
}

// FactoryRestore restores the factory settings. Both writes of the sequence
// are always issued, in order; their failures are joined.
func (s *Session) FactoryRestore() error {
	errArm := s.command("factory_restore", FactoryRestoreAddress, FactoryRestoreArm)
	errConfirm := s.command("factory_restore", FactoryRestoreAddress, FactoryRestoreConfirm)
	return errors.Join(errArm, errConfirm)
}

func (s *Session) command(name string, address, value uint16) error {
	if err := s.transport.WriteRegister(s.unit, address, value); err != nil {
		return &RegisterError{
			Op:       "command",
			Unit:     s.unit,
			Register: name,
			Address:  address,
			Kind:     ErrTransport,
			Value:    "0x" + strconv.FormatUint(uint64(value), 16),
			Err:      err,
		}
	}
	return nil
}

// commands maps command line names to session methods.
var commands = map[string]func(*Session) error{
	"reset-totals":    (*Session).ResetTotals,
	"reset-partial":   (*Session).ResetPartial,
	"reset-demand":    (*Session).ResetDemand,
	"factory-restore": (*Session).FactoryRestore,
}

// CommandNames returns the names accepted by Run, sorted.
func CommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run executes the named command, e. g. "reset-totals".
func (s *Session) Run(command string) error {
	f, ok := commands[command]
	if !ok {
		return fmt.Errorf("em511: unknown command %q", command)
	}
	return f(s)
}
