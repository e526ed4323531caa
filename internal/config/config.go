package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyThreads = "threads"
	KeyOutput  = "output"
	KeyVerbose = "verbose"
	KeyZstd    = "zstd"

	// EnvPrefix prefixes the environment form of every key, e.g. RLC_THREADS.
	EnvPrefix = "RLC"

	DefaultThreads = 4
)

// Config holds the settings of one decode run.
type Config struct {
	InputDir string
	Output   string // empty means standard output
	Threads  int
	Verbose  bool
	Zstd     bool
}

// RegisterFlags declares the decode flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.IntP(KeyThreads, "n", DefaultThreads, "number of goroutines decoding blocks in parallel")
	fs.StringP(KeyOutput, "f", "", "file receiving the decoded messages (default: stdout)")
	fs.BoolP(KeyVerbose, "v", false, "log debugging messages to stderr")
	fs.Bool(KeyZstd, false, "compress the output stream with zstd")
}

// Load resolves the configuration from fs and the environment. Explicit flags
// win over environment variables, which win over defaults.
func Load(fs *pflag.FlagSet, inputDir string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	cfg := &Config{
		InputDir: inputDir,
		Output:   v.GetString(KeyOutput),
		Threads:  v.GetInt(KeyThreads),
		Verbose:  v.GetBool(KeyVerbose),
		Zstd:     v.GetBool(KeyZstd),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the decoder cannot run with.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return errors.New("an input directory containing the instance files is required")
	}
	if c.Threads <= 0 {
		return fmt.Errorf("the number of computing threads must be a positive integer, got %d", c.Threads)
	}
	return nil
}
