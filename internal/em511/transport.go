package em511

// UnitID describes a Modbus unit identifier, i. e., the address of a meter on
// a shared serial bus.
type UnitID uint8

// Unit identifier constants.
const (
	// UnitMin is the minimum valid unit ID for an individual serial device.
	UnitMin UnitID = 1

	// UnitMax is the maximum valid unit ID for an individual serial device.
	UnitMax UnitID = 247
)

// IsValid checks whether this unit identifier addresses an individual
// serial device.
func (uid UnitID) IsValid() bool {
	return uid >= UnitMin && uid <= UnitMax
}

// Transport carries register requests to a meter. Framing, checksums,
// timeouts and retries are the transport's business; the driver surfaces
// any returned error as ErrTransport.
type Transport interface {
	// ReadRegisters reads count consecutive 16-bit registers starting at
	// address from the given unit.
	ReadRegisters(unit UnitID, address, count uint16) ([]uint16, error)

	// WriteRegister writes value to the single register at address.
	WriteRegister(unit UnitID, address, value uint16) error
}
