package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the variables that override agent.toml keys, e.g.
// AGENT_PARAMS_BUY_PRICE_LOW.
const EnvPrefix = "AGENT"

// Load reads <root>/config/agent.toml over the defaults, then the
// environment. A missing file is not an error.
func Load(root string) (*Config, error) {
	conf := DefaultConfig().SetRoot(root)

	v := viper.New()
	v.SetConfigFile(conf.ConfigFile())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := BindEnv(v); err != nil {
		return nil, err
	}
	for key, value := range conf.settings() {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "read %s", conf.ConfigFile())
		}
	}
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return conf.SetRoot(root), nil
}

// WriteConfigFile writes conf to its agent.toml.
func WriteConfigFile(conf *Config) error {
	v := viper.New()
	for key, value := range conf.settings() {
		v.Set(key, value)
	}
	return v.WriteConfigAs(conf.ConfigFile())
}

func (c *Config) settings() map[string]interface{} {
	participants := c.Params.AllParticipants
	if participants == nil {
		participants = []string{}
	}
	return map[string]interface{}{
		"log_level":      c.LogLevel,
		"log_format":     c.LogFormat,
		"agent_key_file": c.AgentKey,
		"db_backend":     c.DBBackend,
		"db_dir":         c.DBPath,
		"abci":           c.ABCI,
		"proxy_app":      c.ProxyApp,
		"tendermint_rpc": c.TendermintRPC,

		"params.real_estate_contract_address": c.Params.RealEstateContractAddress,
		"params.real_estate_token":            c.Params.RealEstateToken,
		"params.multisend_address":            c.Params.MultisendAddress,
		"params.buy_price_low":                c.Params.BuyPriceLow,
		"params.buy_price_high":               c.Params.BuyPriceHigh,
		"params.coingecko_price_template":     c.Params.PriceTemplate,
		"params.coingecko_api_key":            c.Params.PriceAPIKey,
		"params.price_json_path":              c.Params.PriceJSONPath,
		"params.round_timeout":                c.Params.RoundTimeout.String(),
		"params.chain_id":                     c.Params.ChainID,
		"params.all_participants":             participants,
		"params.safe_contract_address":        c.Params.SafeContractAddress,
		"params.consensus_threshold":          c.Params.ConsensusThreshold,

		"blob.backend":       c.Blob.Backend,
		"blob.redis_address": c.Blob.RedisAddress,
		"blob.redis_ttl":     c.Blob.RedisTTL.String(),

		"ledger.rpc_address": c.Ledger.RPCAddress,

		"rpc.laddr":      c.RPC.ListenAddress,
		"rpc.prometheus": c.RPC.Prometheus,
		"rpc.namespace":  c.RPC.Namespace,
	}
}
