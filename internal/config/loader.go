package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names.
const (
	EnvPrefix = "PCMATCH_"
	EnvFile   = "PCMATCH_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PCMATCH_CONFIG is set
//  3. env (prefix PCMATCH_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Round defaults go through koanf so a partial override of one round
	// keeps the remaining fields of that round.
	if err := k.Load(roundDefaults(base), nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// PCMATCH_QUEUE_SIZE -> queue_size, PCMATCH_WEIGHTS_AFFINITY -> weights.affinity,
	// PCMATCH_ROUNDS_R1_SENIOR_MAX_LOAD -> rounds.R1.senior_max_load.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return envKey(s)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	cfg.Rounds = nil
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps an environment variable name to a koanf key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	switch {
	case strings.HasPrefix(s, "weights_"):
		return "weights." + strings.TrimPrefix(s, "weights_")
	case strings.HasPrefix(s, "rounds_"):
		rest := strings.TrimPrefix(s, "rounds_")
		round, field, ok := strings.Cut(rest, "_")
		if !ok {
			return s
		}
		return "rounds." + strings.ToUpper(round) + "." + field
	}
	return s
}

// defaultsProvider feeds an in-memory nested map to koanf.
type defaultsProvider map[string]interface{}

func roundDefaults(c *Config) defaultsProvider {
	rounds := make(map[string]interface{}, len(c.Rounds))
	for name, rp := range c.Rounds {
		rounds[name] = map[string]interface{}{
			"reviews_per_paper": rp.ReviewsPerPaper,
			"senior_max_load":   rp.SeniorMaxLoad,
			"standard_max_load": rp.StandardMaxLoad,
		}
	}
	return defaultsProvider{"rounds": rounds}
}

func (p defaultsProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("defaults provider does not support ReadBytes")
}

func (p defaultsProvider) Read() (map[string]interface{}, error) {
	return p, nil
}
