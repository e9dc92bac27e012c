package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

// ParseDuration parses a configured duration string, falling back to
// defaultDuration when it is malformed or not positive.
func ParseDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	duration, err := time.ParseDuration(durationStr)
	if err != nil || duration <= 0 {
		log.Warn().Err(err).Str("durationStr", durationStr).Dur("defaultDuration", defaultDuration).Msg("Invalid duration, using default")
		return defaultDuration
	}
	return duration
}
