package config

import (
	"math/big"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	tmos "github.com/tendermint/tendermint/libs/os"
)

const (
	// ABCIEmbedded runs a Tendermint node in process.
	ABCIEmbedded = "embedded"
	// ABCISocket serves the application to an external Tendermint node.
	ABCISocket = "socket"

	BlobBackendDB    = "db"
	BlobBackendRedis = "redis"

	LogFormatPlain = "plain"
	LogFormatJSON  = "json"

	DefaultLogLevel = "info"

	defaultConfigDir  = "config"
	defaultDataDir    = "data"
	defaultConfigName = "agent.toml"
	defaultAgentKey   = "agent_key.json"

	DefaultPriceTemplate = "https://api.coingecko.com/api/v3/simple/price?ids=autonolas&vs_currencies=usd"
	DefaultMultisend     = "0xA238CBeb142c10Ef7Ad8442C6D1f9E89e07e7761"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
)

// envBindings maps config keys to the variable names used by existing
// deployments. They take precedence over agent.toml.
var envBindings = map[string]string{
	"params.real_estate_contract_address": "REAL_ESTATE_CONTRACT_ADDRESS",
	"params.real_estate_token":            "REAL_ESTATE_TOKEN",
	"params.multisend_address":            "MULTISEND_ADDRESS",
	"params.coingecko_api_key":            "COINGECKO_API_KEY",
	"params.safe_contract_address":        "SAFE_CONTRACT_ADDRESS",
	"params.all_participants":             "ALL_PARTICIPANTS",
	"ledger.rpc_address":                  "GNOSIS_LEDGER_RPC",
	"blob.redis_address":                  "REDIS_ADDR",
}

// BindEnv binds the deployment variables on v.
func BindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Config defines the top level configuration of an agent.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	Params *ParamsConfig `mapstructure:"params"`
	Blob   *BlobConfig   `mapstructure:"blob"`
	Ledger *LedgerConfig `mapstructure:"ledger"`
	RPC    *RPCConfig    `mapstructure:"rpc"`
}

// DefaultConfig returns a default configuration for an agent.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig: DefaultBaseConfig(),
		Params:     DefaultParamsConfig(),
		Blob:       DefaultBlobConfig(),
		Ledger:     DefaultLedgerConfig(),
		RPC:        DefaultRPCConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing.
func TestConfig() *Config {
	conf := DefaultConfig()
	conf.DBBackend = "memdb"
	conf.RPC.ListenAddress = "tcp://127.0.0.1:0"
	conf.RPC.Prometheus = false
	return conf
}

// SetRoot sets the RootDir for all Config structs.
func (c *Config) SetRoot(root string) *Config {
	c.BaseConfig.RootDir = root
	return c
}

// ValidateBasic performs basic validation and returns an error if any check
// fails.
func (c *Config) ValidateBasic() error {
	if err := c.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := c.Params.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [params] section")
	}
	if err := c.Blob.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [blob] section")
	}
	if err := c.Ledger.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [ledger] section")
	}
	return nil
}

// ConfigFile returns the full path to agent.toml.
func (c *Config) ConfigFile() string {
	return rootify(filepath.Join(defaultConfigDir, defaultConfigName), c.RootDir)
}

//-----------------------------------------------------------------------------

// BaseConfig defines the base configuration of an agent.
type BaseConfig struct {
	// The root directory for all data.
	RootDir string `mapstructure:"home"`

	// Output level for logging
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log_format"`

	// Path to the JSON file containing the agent key
	AgentKey string `mapstructure:"agent_key_file"`

	// Database backend: goleveldb | memdb
	DBBackend string `mapstructure:"db_backend"`

	// Database directory
	DBPath string `mapstructure:"db_dir"`

	// embedded | socket
	ABCI string `mapstructure:"abci"`

	// Address the ABCI socket server listens on in socket mode
	ProxyApp string `mapstructure:"proxy_app"`

	// host:port of the Tendermint RPC payloads are broadcast to in socket
	// mode
	TendermintRPC string `mapstructure:"tendermint_rpc"`
}

// DefaultBaseConfig returns a default base configuration for an agent.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		LogLevel:      DefaultLogLevel,
		LogFormat:     LogFormatPlain,
		AgentKey:      filepath.Join(defaultConfigDir, defaultAgentKey),
		DBBackend:     "goleveldb",
		DBPath:        defaultDataDir,
		ABCI:          ABCIEmbedded,
		ProxyApp:      "tcp://127.0.0.1:26658",
		TendermintRPC: "127.0.0.1:26657",
	}
}

// AgentKeyFile returns the full path to the agent key file.
func (cfg BaseConfig) AgentKeyFile() string {
	return rootify(cfg.AgentKey, cfg.RootDir)
}

// DBDir returns the full path to the database directory.
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown log_format %q (must be 'plain' or 'json')", cfg.LogFormat)
	}
	switch cfg.ABCI {
	case ABCIEmbedded, ABCISocket:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown abci mode %q (must be 'embedded' or 'socket')", cfg.ABCI)
	}
	switch cfg.DBBackend {
	case "goleveldb", "memdb":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unsupported db_backend %q", cfg.DBBackend)
	}
	return nil
}

//-----------------------------------------------------------------------------

// ParamsConfig are the application parameters, including the setup of the
// agent set.
type ParamsConfig struct {
	RealEstateContractAddress string `mapstructure:"real_estate_contract_address"`
	RealEstateToken           string `mapstructure:"real_estate_token"`
	MultisendAddress          string `mapstructure:"multisend_address"`

	// properties strictly inside (low, high) are bought; decimal token
	// amounts in base units
	BuyPriceLow  string `mapstructure:"buy_price_low"`
	BuyPriceHigh string `mapstructure:"buy_price_high"`

	PriceTemplate string `mapstructure:"coingecko_price_template"`
	PriceAPIKey   string `mapstructure:"coingecko_api_key"`
	PriceJSONPath string `mapstructure:"price_json_path"`

	RoundTimeout time.Duration `mapstructure:"round_timeout"`

	// chain the contract calls are addressed to
	ChainID string `mapstructure:"chain_id"`

	AllParticipants     []string `mapstructure:"all_participants"`
	SafeContractAddress string   `mapstructure:"safe_contract_address"`
	// 0 means ceil(2n/3)
	ConsensusThreshold int `mapstructure:"consensus_threshold"`
}

func DefaultParamsConfig() *ParamsConfig {
	return &ParamsConfig{
		RealEstateContractAddress: "0x0000000000000000000000000000000000000000",
		RealEstateToken:           "0x0000000000000000000000000000000000000000",
		MultisendAddress:          DefaultMultisend,
		BuyPriceLow:               "1000",
		BuyPriceHigh:              "2000",
		PriceTemplate:             DefaultPriceTemplate,
		PriceJSONPath:             "autonolas.usd",
		RoundTimeout:              30 * time.Second,
		ChainID:                   "gnosis",
		SafeContractAddress:       "0x0000000000000000000000000000000000000000",
	}
}

func (cfg *ParamsConfig) ValidateBasic() error {
	for name, addr := range map[string]string{
		"real_estate_contract_address": cfg.RealEstateContractAddress,
		"real_estate_token":            cfg.RealEstateToken,
		"multisend_address":            cfg.MultisendAddress,
		"safe_contract_address":        cfg.SafeContractAddress,
	} {
		if !common.IsHexAddress(addr) {
			return errors.Wrapf(ErrInvalidConfig, "%s %q is not an address", name, addr)
		}
	}
	if _, _, err := cfg.BuyRange(); err != nil {
		return err
	}
	if cfg.RoundTimeout < 0 {
		return errors.Wrap(ErrInvalidConfig, "round_timeout can't be negative")
	}
	participants, err := cfg.Participants()
	if err != nil {
		return err
	}
	if len(participants) == 0 {
		return errors.Wrap(ErrInvalidConfig, "all_participants is empty")
	}
	for _, p := range participants {
		if !common.IsHexAddress(p) {
			return errors.Wrapf(ErrInvalidConfig, "participant %q is not an address", p)
		}
	}
	if cfg.ConsensusThreshold < 0 || cfg.ConsensusThreshold > len(participants) {
		return errors.Wrapf(ErrInvalidConfig, "consensus_threshold %d out of range", cfg.ConsensusThreshold)
	}
	return nil
}

// Participants returns all_participants. Entries holding a JSON list or a
// comma separated list, as set through ALL_PARTICIPANTS, are expanded.
func (cfg *ParamsConfig) Participants() ([]string, error) {
	raw := strings.TrimSpace(strings.Join(cfg.AllParticipants, ","))
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := jsoniter.UnmarshalFromString(raw, &out); err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "all_participants: %v", err)
		}
		return out, nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// BuyRange returns the exclusive bounds of the buy range.
func (cfg *ParamsConfig) BuyRange() (*big.Int, *big.Int, error) {
	low, err := parseAmount("buy_price_low", cfg.BuyPriceLow)
	if err != nil {
		return nil, nil, err
	}
	high, err := parseAmount("buy_price_high", cfg.BuyPriceHigh)
	if err != nil {
		return nil, nil, err
	}
	if low.Cmp(high) >= 0 {
		return nil, nil, errors.Wrapf(ErrInvalidConfig, "empty buy range (%s, %s)", low, high)
	}
	return low, high, nil
}

func parseAmount(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s %q is not a decimal amount", name, s)
	}
	if v.Sign() < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s can't be negative", name)
	}
	return v, nil
}

//-----------------------------------------------------------------------------

// BlobConfig selects where property snapshots are stored.
type BlobConfig struct {
	Backend      string        `mapstructure:"backend"`
	RedisAddress string        `mapstructure:"redis_address"`
	RedisTTL     time.Duration `mapstructure:"redis_ttl"`
}

func DefaultBlobConfig() *BlobConfig {
	return &BlobConfig{
		Backend:      BlobBackendDB,
		RedisAddress: "127.0.0.1:6379",
		RedisTTL:     24 * time.Hour,
	}
}

// Shared reports whether other agents can read the snapshots this agent
// stores. The db backend keeps them in the agent's own database.
func (cfg *BlobConfig) Shared() bool {
	return cfg.Backend == BlobBackendRedis
}

func (cfg *BlobConfig) ValidateBasic() error {
	switch cfg.Backend {
	case BlobBackendDB:
	case BlobBackendRedis:
		if cfg.RedisAddress == "" {
			return errors.Wrap(ErrInvalidConfig, "redis backend needs redis_address")
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown blob backend %q", cfg.Backend)
	}
	if cfg.RedisTTL < 0 {
		return errors.Wrap(ErrInvalidConfig, "redis_ttl can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------

// LedgerConfig points at the JSON-RPC endpoint of the chain the contracts
// live on.
type LedgerConfig struct {
	RPCAddress string `mapstructure:"rpc_address"`
}

func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		RPCAddress: "http://127.0.0.1:8545",
	}
}

func (cfg *LedgerConfig) ValidateBasic() error {
	if cfg.RPCAddress == "" {
		return errors.Wrap(ErrInvalidConfig, "rpc_address is empty")
	}
	return nil
}

//-----------------------------------------------------------------------------

// RPCConfig configures the agent's own RPC server.
type RPCConfig struct {
	ListenAddress string `mapstructure:"laddr"`

	// serve Prometheus metrics under /metrics
	Prometheus bool `mapstructure:"prometheus"`

	Namespace string `mapstructure:"namespace"`
}

func DefaultRPCConfig() *RPCConfig {
	return &RPCConfig{
		ListenAddress: "tcp://127.0.0.1:26680",
		Prometheus:    true,
		Namespace:     "agent",
	}
}

//-----------------------------------------------------------------------------

// EnsureRoot creates the root and config directories.
func EnsureRoot(rootDir string) {
	if err := tmos.EnsureDir(rootDir, 0700); err != nil {
		panic(err.Error())
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultConfigDir), 0700); err != nil {
		panic(err.Error())
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultDataDir), 0700); err != nil {
		panic(err.Error())
	}
}

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
