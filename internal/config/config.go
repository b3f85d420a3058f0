// Package config loads node configuration from the environment and an
// optional .env file.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/eigerco/fraudledger/internal/crypto/ed25519"
	"github.com/eigerco/fraudledger/pkg/log"
)

const envPrefix = "FRAUDLEDGER_"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	// DataDir holds the pebble database. Empty runs in memory.
	DataDir    string
	ListenAddr string
	// Network names the ledger; peers on other networks fail the handshake.
	Network string
	// HTTPAddr serves the read-only API and metrics. Empty disables it.
	HTTPAddr string
	// KeySeed is the hex ed25519 seed of the node identity.
	KeySeed     string
	GenesisFile string

	LogLevel  string
	LogFormat string
	LogFile   string

	KafkaBrokers []string
	KafkaTopic   string
}

func Default() Config {
	return Config{
		ListenAddr: "127.0.0.1:9100",
		Network:    "mainnet",
		HTTPAddr:   "127.0.0.1:9180",
		LogLevel:   "info",
		LogFormat:  "console",
		KafkaTopic: "fraudledger.events",
	}
}

// Load reads envFile into the environment, without overriding variables
// that are already set, and then builds the config from the environment.
// An empty envFile tries ./.env and ignores its absence.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from FRAUDLEDGER_* variables over the defaults.
func FromEnv() (Config, error) {
	c := Default()
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.Network, "NETWORK")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.KeySeed, "KEY_SEED")
	setString(&c.GenesisFile, "GENESIS_FILE")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.LogFile, "LOG_FILE")
	setString(&c.KafkaTopic, "KAFKA_TOPIC")
	if v, ok := os.LookupEnv(envPrefix + "KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitList(v)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen address is required", ErrInvalidConfig)
	}
	if c.Network == "" {
		return fmt.Errorf("%w: network name is required", ErrInvalidConfig)
	}
	if c.KeySeed != "" {
		if _, err := c.Seed(); err != nil {
			return err
		}
	}
	if _, err := log.ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %v", ErrInvalidConfig, err)
	}
	if _, err := log.ParseLoggerType(c.LogFormat); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("%w: kafka brokers set without a topic", ErrInvalidConfig)
	}
	return nil
}

// Seed decodes KeySeed. A nil seed means no key is configured.
func (c Config) Seed() ([]byte, error) {
	if c.KeySeed == "" {
		return nil, nil
	}
	seed, err := hex.DecodeString(strings.TrimPrefix(c.KeySeed, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: key seed: %v", ErrInvalidConfig, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: key seed must be %d bytes, got %d", ErrInvalidConfig, ed25519.SeedSize, len(seed))
	}
	return seed, nil
}

// LogOptions translates the logging settings.
func (c Config) LogOptions() (log.Options, error) {
	lvl, err := log.ParseLogLevel(c.LogLevel)
	if err != nil {
		return log.Options{}, err
	}
	typ, err := log.ParseLoggerType(c.LogFormat)
	if err != nil {
		return log.Options{}, err
	}
	return log.Options{
		LogLevel:   lvl,
		Type:       typ,
		File:       c.LogFile,
		MaxSizeMB:  100,
		MaxBackups: 5,
	}, nil
}
