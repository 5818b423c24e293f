package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays TAGZILLA_* environment variables. Unset variables leave
// the current value alone. A malformed value panics, like a bad JSON file.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(fmt.Errorf("config: failed to parse environment variables: %w", err))
	}
}
