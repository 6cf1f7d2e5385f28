package internal

import (
	"em511/internal/em511"

	"github.com/rs/zerolog"
)

// Reading is one successfully decoded register.
type Reading struct {
	Name  string
	Value em511.Value
}

// Readings is the outcome of one poll. A failed register never stops the
// remaining ones.
type Readings struct {
	Values []Reading
	Errors []error
}

// Reader is the part of an em511.Session a poll needs.
type Reader interface {
	Read(name string) (em511.Value, error)
}

// Poll reads names in order from r.
func Poll(r Reader, names []string, logger zerolog.Logger) Readings {
	var out Readings
	for _, name := range names {
		v, err := r.Read(name)
		if err != nil {
			logger.Warn().Err(err).Str("register", name).Msg("read failed")
			out.Errors = append(out.Errors, err)
			continue
		}
		logger.Info().Str("register", name).Str("value", v.String()).Msg("read")
		out.Values = append(out.Values, Reading{Name: name, Value: v})
	}
	return out
}
