// Package config holds the small set of flags/environment settings the
// ambient stack needs: autodiff leaf reuse, the PRNG seed string, and
// log level/format, registered against a pflag.FlagSet the way
// cmd/evalctl's cobra command wires its own flags.
package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Config is the evaluator's ambient configuration.
type Config struct {
	// Fold enables constant folding of already-differentiated leaves;
	// unset, every AFloat.Fix is lifted fresh on each reference.
	Fold bool
	// Seed is bound to --seed and EVALCTL_SEED. cmd/evalctl does not
	// read it: the pass's generator is seeded by wire.Decode from the
	// document's rng key.
	Seed string
	// LogLevel and LogFormat configure the package-level logrus logger
	// threaded through the evaluator (§1.1).
	LogLevel  string
	LogFormat string
}

// Default returns the zero-value-safe configuration: folding off, an
// empty seed (NewRNG("") is still deterministic), info level, text
// format.
func Default() Config {
	return Config{
		Fold:      false,
		Seed:      "",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// BindFlags registers c's fields onto fs so a cobra command can expose
// them as command-line flags.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.Fold, "fold", c.Fold, "fold already-differentiated leaves instead of re-lifting them")
	fs.StringVar(&c.Seed, "seed", c.Seed, "PRNG seed string")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: trace, debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
}

// FromEnv overrides c's fields from EVALCTL_-prefixed environment
// variables, for deployments that configure by environment instead of
// flags.
func (c *Config) FromEnv() {
	if v, ok := os.LookupEnv("EVALCTL_FOLD"); ok {
		c.Fold = v != "" && v != "0" && !strings.EqualFold(v, "false")
	}
	if v, ok := os.LookupEnv("EVALCTL_SEED"); ok {
		c.Seed = v
	}
	if v, ok := os.LookupEnv("EVALCTL_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("EVALCTL_LOG_FORMAT"); ok {
		c.LogFormat = v
	}
}

// Logger builds a logrus.FieldLogger from c's level/format settings.
func (c *Config) Logger() logrus.FieldLogger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{})
	}
	return logger
}
