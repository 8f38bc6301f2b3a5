package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/slushie/slushie-node/crypto/hash/mixhash"
)

const (
	defaultAPIHost     = "0.0.0.0"
	defaultAPIPort     = 9190
	defaultLogLevel    = "info"
	defaultLogOutput   = "stdout"
	defaultDatadir     = ".slushie" // Will be prefixed with user's home directory
	defaultHasher      = mixhash.TypeBlake2b
	defaultDepth       = 20
	defaultHistory     = 30
	defaultDepositSize = "1000000000000"
)

// Version is the build version, set at build time with -ldflags
var Version = "dev"

// Config holds the application configuration
type Config struct {
	API     APIConfig
	Mixer   MixerConfig
	Log     LogConfig
	Datadir string
}

// APIConfig holds the API-specific configuration
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MixerConfig holds the pool parameters. They are fixed at first start;
// later runs must match the persisted state.
type MixerConfig struct {
	Hasher      string `mapstructure:"hasher"`
	Depth       int    `mapstructure:"depth"`
	History     int    `mapstructure:"history"`
	DepositSize string `mapstructure:"depositsize"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// loadConfig loads configuration from flags, environment variables, and defaults
func loadConfig() (*Config, error) {
	v := viper.New()

	// Get user's home directory for default datadir
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	defaultDatadirPath := filepath.Join(userHomeDir, defaultDatadir)

	v.SetDefault("api.host", defaultAPIHost)
	v.SetDefault("api.port", defaultAPIPort)
	v.SetDefault("mixer.hasher", defaultHasher)
	v.SetDefault("mixer.depth", defaultDepth)
	v.SetDefault("mixer.history", defaultHistory)
	v.SetDefault("mixer.depositsize", defaultDepositSize)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("datadir", defaultDatadirPath)

	flag.StringP("api.host", "a", defaultAPIHost, "API host")
	flag.IntP("api.port", "p", defaultAPIPort, "API port")
	flag.String("mixer.hasher", defaultHasher,
		fmt.Sprintf("tree hash backend (%s, %s or %s)", mixhash.TypeBlake2b, mixhash.TypePoseidon, mixhash.TypeMiMC))
	flag.Int("mixer.depth", defaultDepth, "commitment tree depth (1-32); capacity is 2^depth")
	flag.Int("mixer.history", defaultHistory, "number of recent roots accepted for withdrawals")
	flag.String("mixer.depositsize", defaultDepositSize, "fixed deposit denomination, in base units")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error, fatal)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")
	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for database and storage files")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "slushied v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: slushied [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dashes (-) and dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, SLUSHIE_API_PORT or SLUSHIE_MIXER_DEPTH\n")
	}

	flag.CommandLine.SortFlags = false
	flag.Parse()

	v.SetEnvPrefix("SLUSHIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if _, err := mixhash.New(cfg.Mixer.Hasher); err != nil {
		return fmt.Errorf("invalid hasher: %w", err)
	}
	if cfg.Mixer.Depth < 1 || cfg.Mixer.Depth > mixhash.MaxDepth {
		return fmt.Errorf("invalid tree depth %d, must be between 1 and %d", cfg.Mixer.Depth, mixhash.MaxDepth)
	}
	if cfg.Mixer.History < 1 {
		return fmt.Errorf("invalid root history size %d, must be at least 1", cfg.Mixer.History)
	}
	if cfg.Mixer.DepositSize == "" {
		return fmt.Errorf("deposit size is required")
	}
	return nil
}
