package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	agentA = "0x1111111111111111111111111111111111111111"
	agentB = "0x2222222222222222222222222222222222222222"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	// set up some defaults
	cfg := DefaultConfig()
	assert.NotNil(cfg.Params)
	assert.NotNil(cfg.Blob)
	assert.NotNil(cfg.Ledger)
	assert.NotNil(cfg.RPC)

	// check the root dir stuff...
	cfg.SetRoot("/foo")
	cfg.AgentKey = "/opt/agent_key.json"
	cfg.DBPath = "/opt/data"
	assert.Equal("/opt/agent_key.json", cfg.AgentKeyFile())
	assert.Equal("/opt/data", cfg.DBDir())
	assert.Equal("/foo/config/agent.toml", cfg.ConfigFile())

	cfg.DBPath = "data"
	assert.Equal("/foo/data", cfg.DBDir())
}

func TestConfigValidateBasic(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorIs(t, cfg.ValidateBasic(), ErrInvalidConfig, "no participants")

	cfg.Params.AllParticipants = []string{agentA, agentB}
	assert.NoError(t, cfg.ValidateBasic())

	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"abci mode", func(c *Config) { c.ABCI = "grpc" }},
		{"db backend", func(c *Config) { c.DBBackend = "rocksdb" }},
		{"bad token", func(c *Config) { c.Params.RealEstateToken = "token" }},
		{"empty range", func(c *Config) { c.Params.BuyPriceLow = c.Params.BuyPriceHigh }},
		{"fractional price", func(c *Config) { c.Params.BuyPriceLow = "12.5" }},
		{"negative price", func(c *Config) { c.Params.BuyPriceLow = "-1" }},
		{"negative timeout", func(c *Config) { c.Params.RoundTimeout = -time.Second }},
		{"bad participant", func(c *Config) { c.Params.AllParticipants = []string{"0x12"} }},
		{"threshold too high", func(c *Config) { c.Params.ConsensusThreshold = 3 }},
		{"blob backend", func(c *Config) { c.Blob.Backend = "s3" }},
		{"redis address", func(c *Config) { c.Blob.Backend, c.Blob.RedisAddress = BlobBackendRedis, "" }},
		{"ledger", func(c *Config) { c.Ledger.RPCAddress = "" }},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Params.AllParticipants = []string{agentA, agentB}
			tc.modify(cfg)
			assert.ErrorIs(t, cfg.ValidateBasic(), ErrInvalidConfig)
		})
	}
}

func TestParticipants(t *testing.T) {
	testCases := []struct {
		in   []string
		want []string
	}{
		{nil, nil},
		{[]string{agentA, agentB}, []string{agentA, agentB}},
		{[]string{agentA + ", " + agentB}, []string{agentA, agentB}},
		{[]string{`["` + agentA + `","` + agentB + `"]`}, []string{agentA, agentB}},
		// a JSON list split on its commas
		{[]string{`["` + agentA + `"`, `"` + agentB + `"]`}, []string{agentA, agentB}},
	}
	for i, tc := range testCases {
		cfg := &ParamsConfig{AllParticipants: tc.in}
		got, err := cfg.Participants()
		require.NoError(t, err, "#%d", i)
		assert.Equal(t, tc.want, got, "#%d", i)
	}

	_, err := (&ParamsConfig{AllParticipants: []string{`["` + agentA}}).Participants()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWriteAndLoad(t *testing.T) {
	root := t.TempDir()
	EnsureRoot(root)

	cfg := DefaultConfig().SetRoot(root)
	cfg.LogLevel = "debug"
	cfg.Params.AllParticipants = []string{agentA, agentB}
	cfg.Params.BuyPriceLow = "10"
	// 5000 tokens at 18 decimals
	cfg.Params.BuyPriceHigh = "5000000000000000000000"
	cfg.Params.RoundTimeout = 45 * time.Second
	cfg.Blob.Backend = BlobBackendRedis
	require.NoError(t, WriteConfigFile(cfg))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, root, loaded.RootDir)
	assert.Equal(t, "debug", loaded.LogLevel)
	assert.Equal(t, []string{agentA, agentB}, loaded.Params.AllParticipants)
	low, high, err := loaded.Params.BuyRange()
	require.NoError(t, err)
	assert.Equal(t, int64(10), low.Int64())
	assert.Equal(t, "5000000000000000000000", high.String())
	assert.Equal(t, 45*time.Second, loaded.Params.RoundTimeout)
	assert.Equal(t, BlobBackendRedis, loaded.Blob.Backend)
	assert.Equal(t, 24*time.Hour, loaded.Blob.RedisTTL)
	assert.NoError(t, loaded.ValidateBasic())
}

func TestLoadMissingFileAndEnv(t *testing.T) {
	t.Setenv("REAL_ESTATE_TOKEN", agentB)
	t.Setenv("ALL_PARTICIPANTS", `["`+agentA+`","`+agentB+`"]`)
	t.Setenv("GNOSIS_LEDGER_RPC", "http://ledger:8545")

	loaded, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, agentB, loaded.Params.RealEstateToken)
	assert.Equal(t, "http://ledger:8545", loaded.Ledger.RPCAddress)
	assert.Equal(t, DefaultMultisend, loaded.Params.MultisendAddress)

	participants, err := loaded.Params.Participants()
	require.NoError(t, err)
	assert.Equal(t, []string{agentA, agentB}, participants)
}

func TestLoadBuyRange(t *testing.T) {
	root := t.TempDir()
	EnsureRoot(root)
	toml := `[params]
buy_price_low = 1500
buy_price_high = "9300000000000000000"
`
	require.NoError(t, os.WriteFile(DefaultConfig().SetRoot(root).ConfigFile(), []byte(toml), 0o644))

	loaded, err := Load(root)
	require.NoError(t, err)
	low, high, err := loaded.Params.BuyRange()
	require.NoError(t, err)
	assert.Equal(t, "1500", low.String())
	assert.Equal(t, "9300000000000000000", high.String())

	t.Setenv("AGENT_PARAMS_BUY_PRICE_HIGH", "1000000000000000000000000")
	loaded, err = Load(root)
	require.NoError(t, err)
	_, high, err = loaded.Params.BuyRange()
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000000000", high.String())
}
