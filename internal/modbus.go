package internal

import (
	"fmt"
	stdlog "log"
	"time"

	"em511/internal/em511"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"
)

// ModbusTransport carries em511 register requests over a goburrow/modbus
// handler. One transport serves every meter on the bus: the slave id is
// switched before each request.
type ModbusTransport struct {
	handler      busHandler
	client       modbus.Client
	setSlave     func(id byte)
	functionCode int
	logger       zerolog.Logger
}

type busHandler interface {
	Connect() error
	Close() error
}

// NewModbusTransport builds an RTU or TCP handler from cfg. The connection
// is opened by Connect.
func NewModbusTransport(cfg BusConfig, logger zerolog.Logger) (*ModbusTransport, error) {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	var frameLog *stdlog.Logger
	if logger.GetLevel() <= zerolog.DebugLevel {
		frameLog = stdlog.New(logger.With().Str("source", "frames").Logger(), "", 0)
	}

	switch cfg.Type {
	case "rtu":
		h := modbus.NewRTUClientHandler(cfg.Address)
		h.BaudRate = cfg.BaudRate
		h.DataBits = cfg.DataBits
		h.Parity = cfg.Parity
		h.StopBits = cfg.StopBits
		h.Timeout = timeout
		h.Logger = frameLog
		return newModbusTransport(h, modbus.NewClient(h), func(id byte) { h.SlaveId = id }, cfg.FunctionCode, logger), nil
	case "tcp":
		h := modbus.NewTCPClientHandler(cfg.Address)
		h.Timeout = timeout
		h.Logger = frameLog
		return newModbusTransport(h, modbus.NewClient(h), func(id byte) { h.SlaveId = id }, cfg.FunctionCode, logger), nil
	}
	return nil, fmt.Errorf("bus type %q not supported", cfg.Type)
}

func newModbusTransport(h busHandler, client modbus.Client, setSlave func(byte), functionCode int, logger zerolog.Logger) *ModbusTransport {
	return &ModbusTransport{
		handler:      h,
		client:       client,
		setSlave:     setSlave,
		functionCode: functionCode,
		logger:       logger,
	}
}

func (t *ModbusTransport) Connect() error {
	return t.handler.Connect()
}

func (t *ModbusTransport) Close() error {
	return t.handler.Close()
}

// ReadRegisters implements em511.Transport.
func (t *ModbusTransport) ReadRegisters(unit em511.UnitID, address, count uint16) ([]uint16, error) {
	t.setSlave(byte(unit))
	var resp []byte
	var err error
	switch t.functionCode {
	case 3:
		resp, err = t.client.ReadHoldingRegisters(address, count)
	default:
		resp, err = t.client.ReadInputRegisters(address, count)
	}
	if err != nil {
		return nil, err
	}
	words, err := Words(resp)
	if err != nil {
		return nil, err
	}
	t.logger.Debug().
		Uint8("unit", uint8(unit)).
		Uint16("address", address).
		Uint16("count", count).
		Hex("raw", resp).
		Msg("read registers")
	return words, nil
}

// WriteRegister implements em511.Transport.
func (t *ModbusTransport) WriteRegister(unit em511.UnitID, address, value uint16) error {
	t.setSlave(byte(unit))
	if _, err := t.client.WriteSingleRegister(address, value); err != nil {
		return err
	}
	t.logger.Debug().
		Uint8("unit", uint8(unit)).
		Uint16("address", address).
		Uint16("value", value).
		Msg("write register")
	return nil
}

// Words splits a register response into big-endian 16-bit words.
func Words(b []byte) ([]uint16, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("odd response length %d", len(b))
	}
	words := make([]uint16, len(b)/2)
	for i := range words {
		words[i] = U16(b[2*i:])
	}
	return words, nil
}

// U16 decodes the first two bytes of b as a big-endian word.
func U16(b []byte) uint16 {
	if len(b) < 2 {
		return 0
	}
	return uint16(b[0])<<8 | uint16(b[1])
}
