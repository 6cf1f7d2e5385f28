package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"em511/internal"
	"em511/internal/em511"

	"github.com/rs/zerolog"
)

var (
	configPath = flag.String("configPath", "", "Path to the config file")
	envPath    = flag.String("envPath", ".env", "Path to the .env file with InfluxDB credentials")
	deviceName = flag.String("device", "", "Only talk to this configured device")
	list       = flag.Bool("list", false, "Print the register catalog and exit")
	readName   = flag.String("read", "", "Read one register by name")
	writeArg   = flag.String("write", "", "Write one register, NAME=VALUE")
	command    = flag.String("command", "", "Run a command: "+strings.Join(em511.CommandNames(), ", "))
)

func main() {
	flag.Parse()
	if *list {
		printCatalog()
		return
	}

	boot := internal.NewLogger("info")
	if *configPath == "" {
		boot.Fatal().Msg("config file path is required")
	}
	cfg, err := internal.LoadConfig(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("error loading config file")
	}
	logger := internal.NewLogger(cfg.LogLevel)

	if err := internal.LoadEnv(*envPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Str("path", *envPath).Msg(".env file not found")
		} else {
			logger.Fatal().Err(err).Msg("error loading .env file")
		}
	}

	devices := cfg.Devices
	if *deviceName != "" {
		d, ok := cfg.FindDevice(*deviceName)
		if !ok {
			logger.Fatal().Str("device", *deviceName).Msg("device not configured")
		}
		devices = []internal.DeviceItem{{Device: d}}
	}
	if len(devices) == 0 {
		logger.Fatal().Msg("no devices configured")
	}

	transport, err := internal.NewModbusTransport(cfg.Bus, logger.With().Str("component", "modbus").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("error creating modbus transport")
	}
	if err := transport.Connect(); err != nil {
		logger.Fatal().Err(err).Str("address", cfg.Bus.Address).Msg("error connecting to modbus")
	}
	defer transport.Close()

	var run func(d internal.Device, s *em511.Session, log zerolog.Logger) error
	switch {
	case *readName != "":
		run = func(d internal.Device, s *em511.Session, _ zerolog.Logger) error {
			v, err := s.Read(*readName)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s = %s\n", d.Name, *readName, v)
			return nil
		}
	case *writeArg != "":
		name, value, err := parseAssignment(*writeArg)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -write")
		}
		run = func(_ internal.Device, s *em511.Session, log zerolog.Logger) error {
			if err := s.Write(name, value); err != nil {
				return err
			}
			log.Info().Str("register", name).Int64("value", value).Msg("written")
			return nil
		}
	case *command != "":
		run = func(_ internal.Device, s *em511.Session, log zerolog.Logger) error {
			if err := s.Run(*command); err != nil {
				return err
			}
			log.Info().Str("command", *command).Msg("done")
			return nil
		}
	default:
		poll(cfg, devices, transport, logger)
		return
	}

	failed := false
	for _, item := range devices {
		d := item.Device
		log := logger.With().Str("device", d.Name).Int("unit_id", d.UnitID).Logger()
		s, err := em511.NewSession(em511.UnitID(d.UnitID), transport)
		if err != nil {
			log.Error().Err(err).Msg("invalid device")
			failed = true
			continue
		}
		if err := run(d, s, log); err != nil {
			log.Error().Err(err).Msg("request failed")
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// poll reads every device's register list and records the values.
func poll(cfg internal.Config, devices []internal.DeviceItem, transport em511.Transport, logger zerolog.Logger) {
	ts := time.Now().Truncate(time.Minute).UTC()
	begin := time.Now()

	store := internal.NewStore(context.Background(), cfg.Storage, logger.With().Str("component", "storage").Logger())
	defer store.Close()

	for _, item := range devices {
		d := item.Device
		log := logger.With().Str("device", d.Name).Int("unit_id", d.UnitID).Logger()
		s, err := em511.NewSession(em511.UnitID(d.UnitID), transport)
		if err != nil {
			log.Error().Err(err).Msg("invalid device")
			continue
		}
		readings := internal.Poll(s, d.PollNames(), log)
		for _, r := range readings.Values {
			fmt.Printf("[%s] %-12s %-24s -> %s\n", ts.Format(time.DateTime), d.Name, r.Name, r.Value)
		}
		store.Record(d.Name, s.Unit(), readings.Values, ts)
		log.Info().Int("ok", len(readings.Values)).Int("failed", len(readings.Errors)).Msg("polled")
	}
	store.Flush()
	logger.Info().Dur("elapsed", time.Since(begin)).Msg("time taken")
}

func parseAssignment(arg string) (string, int64, error) {
	name, raw, ok := strings.Cut(arg, "=")
	if !ok || name == "" {
		return "", 0, fmt.Errorf("expected NAME=VALUE, got %q", arg)
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 0, 64)
	if err != nil {
		return "", 0, fmt.Errorf("value for %s: %w", name, err)
	}
	return strings.TrimSpace(name), value, nil
}

func printCatalog() {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tWORDS\tKIND\tGROUP\tACCESS\tRANGE")
	for _, r := range em511.Registers() {
		access := "ro"
		if r.Writable {
			access = "rw"
		}
		rng := "-"
		if r.RangeChecked {
			rng = fmt.Sprintf("%d..%d", r.Min, r.Max)
		}
		fmt.Fprintf(w, "%s\t0x%04X\t%d\t%s\t%s\t%s\t%s\n", r.Name, r.Address, r.Words, r.Kind, r.Group, access, rng)
	}
	w.Flush()
}
