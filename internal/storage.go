package internal

import (
	"context"
	"strconv"
	"time"

	"em511/internal/em511"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

// Store writes readings to the local and remote InfluxDB instances that are
// configured and reachable.
type Store struct {
	dests  []influxDestination
	logger zerolog.Logger
}

type influxDestination struct {
	name        string
	measurement string
	client      influxdb2.Client
	writeAPI    api.WriteAPI
}

// NewStore connects to every enabled destination whose host is set in the
// environment. Unreachable destinations are skipped with a warning. The
// returned Store may have no destinations.
func NewStore(ctx context.Context, cfg StorageConfig, logger zerolog.Logger) *Store {
	s := &Store{logger: logger}
	targets := []struct {
		name string
		cfg  Influxdb2Config
	}{
		{"local", cfg.Local.Influxdb2},
		{"remote", cfg.Remote.Influxdb2},
	}
	for _, t := range targets {
		if !t.cfg.Enabled() {
			continue
		}
		env := LoadInfluxEnv(t.name)
		if env.Host == "" {
			logger.Warn().Str("target", t.name).Msg("INFLUX_HOST not set; skipping")
			continue
		}
		client := influxdb2.NewClient(env.Host, env.Token)
		ok, err := client.Ping(ctx)
		if err != nil || !ok {
			logger.Warn().Err(err).Str("target", t.name).Msg("InfluxDB not reachable")
			client.Close()
			continue
		}
		logger.Info().Str("target", t.name).Msg("InfluxDB is reachable")
		s.add(t.name, t.cfg.Measurement, client, client.WriteAPI(env.Org, t.cfg.Bucket))
	}
	return s
}

func (s *Store) add(name, measurement string, client influxdb2.Client, writeAPI api.WriteAPI) {
	errCh := writeAPI.Errors()
	logger := s.logger.With().Str("target", name).Logger()
	go func() {
		for err := range errCh {
			logger.Error().Err(err).Msg("error writing to InfluxDB")
		}
	}()
	s.dests = append(s.dests, influxDestination{
		name:        name,
		measurement: measurement,
		client:      client,
		writeAPI:    writeAPI,
	})
}

// Len returns the number of active destinations.
func (s *Store) Len() int {
	return len(s.dests)
}

// Record queues one point per reading on every destination.
func (s *Store) Record(device string, unit em511.UnitID, readings []Reading, ts time.Time) {
	for _, d := range s.dests {
		for _, r := range readings {
			d.writeAPI.WritePoint(NewPoint(d.measurement, device, unit, r, ts))
		}
	}
}

func (s *Store) Flush() {
	for _, d := range s.dests {
		s.logger.Debug().Str("target", d.name).Msg("flushing")
		d.writeAPI.Flush()
	}
}

// Close flushes and closes every destination.
func (s *Store) Close() {
	for _, d := range s.dests {
		d.client.Close()
	}
	s.dests = nil
}

// NewPoint converts a reading to an InfluxDB point tagged with the device
// name and unit id. The field is named after the register.
func NewPoint(measurement, device string, unit em511.UnitID, r Reading, ts time.Time) *write.Point {
	tags := map[string]string{
		"device":  device,
		"unit_id": strconv.Itoa(int(unit)),
	}
	return influxdb2.NewPoint(measurement, tags, map[string]any{r.Name: FieldValue(r.Value)}, ts)
}

// FieldValue picks the InfluxDB field type for v: int64 for integers,
// float64 for scaled values and a string for firmware.
func FieldValue(v em511.Value) any {
	switch v.Kind {
	case em511.KindScaled:
		return v.Float64()
	case em511.KindFirmware:
		return v.String()
	}
	return v.Int64()
}
