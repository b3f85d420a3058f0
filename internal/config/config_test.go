package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/fraudledger/pkg/log"
)

const seedHex = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

func TestFromEnvDefaults(t *testing.T) {
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("FRAUDLEDGER_DATA_DIR", "/var/lib/fraudledger")
	t.Setenv("FRAUDLEDGER_LISTEN_ADDR", "0.0.0.0:9000")
	t.Setenv("FRAUDLEDGER_NETWORK", "testnet")
	t.Setenv("FRAUDLEDGER_HTTP_ADDR", "")
	t.Setenv("FRAUDLEDGER_KEY_SEED", "0x"+seedHex)
	t.Setenv("FRAUDLEDGER_LOG_LEVEL", "debug")
	t.Setenv("FRAUDLEDGER_LOG_FORMAT", "json")
	t.Setenv("FRAUDLEDGER_KAFKA_BROKERS", "k1:9092, k2:9092,")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/fraudledger", c.DataDir)
	assert.Equal(t, "0.0.0.0:9000", c.ListenAddr)
	assert.Equal(t, "testnet", c.Network)
	assert.Empty(t, c.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)

	seed, err := c.Seed()
	require.NoError(t, err)
	assert.Len(t, seed, 32)

	opts, err := c.LogOptions()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, opts.LogLevel)
	assert.Equal(t, log.JSONLogger, opts.Type)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"no listen address", func(c *Config) { c.ListenAddr = "" }},
		{"no network", func(c *Config) { c.Network = "" }},
		{"bad seed hex", func(c *Config) { c.KeySeed = "zz" }},
		{"short seed", func(c *Config) { c.KeySeed = "abcd" }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }},
		{"brokers without topic", func(c *Config) {
			c.KafkaBrokers = []string{"k1:9092"}
			c.KafkaTopic = ""
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.modify(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}

	seed, err := Default().Seed()
	require.NoError(t, err)
	assert.Nil(t, seed)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.env")
	content := strings.Join([]string{
		"FRAUDLEDGER_LISTEN_ADDR=127.0.0.1:7000",
		"FRAUDLEDGER_KAFKA_TOPIC=ledger",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// variables already in the environment win over the file
	t.Setenv("FRAUDLEDGER_KAFKA_TOPIC", "from-env")
	// godotenv sets variables the test did not, so restore them afterwards
	t.Setenv("FRAUDLEDGER_LISTEN_ADDR", "")
	require.NoError(t, os.Unsetenv("FRAUDLEDGER_LISTEN_ADDR"))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", c.ListenAddr)
	assert.Equal(t, "from-env", c.KafkaTopic)

	_, err = Load(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}
