package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"em511/internal"
	"em511/internal/em511"
)

var (
	configPath = flag.String("configPath", "", "Path to the config file (bus section is used)")
	from       = flag.Int("from", int(em511.UnitMin), "First unit id to probe")
	to         = flag.Int("to", int(em511.UnitMax), "Last unit id to probe")
	pause      = flag.Duration("pause", 50*time.Millisecond, "Pause between probes")
)

type meter struct {
	Unit     em511.UnitID
	Code     int64
	Firmware string
}

func main() {
	flag.Parse()
	logger := internal.NewLogger("info")
	if *configPath == "" {
		logger.Fatal().Msg("config file path is required")
	}
	if *from < int(em511.UnitMin) || *to > int(em511.UnitMax) || *from > *to {
		logger.Fatal().Int("from", *from).Int("to", *to).Msg("unit id range must lie within [1,247]")
	}
	cfg, err := internal.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading config file")
	}
	// Probes that time out are expected; keep frame logging off.
	transport, err := internal.NewModbusTransport(cfg.Bus, internal.NewLogger("error"))
	if err != nil {
		logger.Fatal().Err(err).Msg("error creating modbus transport")
	}
	if err := transport.Connect(); err != nil {
		logger.Fatal().Err(err).Str("address", cfg.Bus.Address).Msg("bus not reachable")
	}
	defer transport.Close()

	total := *to - *from + 1
	fmt.Printf("Scanning unit ids %d-%d on %s for identification_code\n\n", *from, *to, cfg.Bus.Address)
	start := time.Now()

	var found []meter
	for id := *from; id <= *to; id++ {
		if (id-*from)%10 == 0 {
			done := id - *from
			fmt.Printf("\rProgress: %3d/%d (%.1f%%) | Found: %d", done, total, float64(done)/float64(total)*100, len(found))
		}
		m, ok := probe(transport, em511.UnitID(id))
		if ok {
			found = append(found, m)
			fmt.Printf("\rFound at unit id %3d: code %d, firmware %s\n", m.Unit, m.Code, m.Firmware)
		}
		time.Sleep(*pause)
	}
	fmt.Printf("\rProgress: %3d/%d (100.0%%) | Found: %d\n\n", total, total, len(found))

	rule := strings.Repeat("-", 44)
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Meters found: %d\n\n", len(found))
	if len(found) == 0 {
		fmt.Println("No meters answered. Check the bus wiring, baud rate and parity.")
		return
	}
	fmt.Println(rule)
	fmt.Printf("%-8s | %-8s | %s\n", "Unit id", "Code", "Firmware")
	fmt.Println(rule)
	for _, m := range found {
		fmt.Printf("%-8d | %-8d | %s\n", m.Unit, m.Code, m.Firmware)
	}
	fmt.Println(rule)
}

// probe reports a meter at unit when it answers with a valid identification
// code. A code outside the catalog range still counts as a meter.
func probe(t em511.Transport, unit em511.UnitID) (meter, bool) {
	s, err := em511.NewSession(unit, t)
	if err != nil {
		return meter{}, false
	}
	m := meter{Unit: unit, Firmware: "?"}
	v, err := s.Read(em511.IdentificationCode)
	var regErr *em511.RegisterError
	switch {
	case err == nil:
		m.Code = v.Int64()
	case errors.Is(err, em511.ErrOutOfRange) && errors.As(err, &regErr):
		fmt.Sscan(regErr.Value, &m.Code)
	default:
		return meter{}, false
	}
	if fw, err := s.Firmware(); err == nil {
		m.Firmware = fw
	}
	return m, true
}
