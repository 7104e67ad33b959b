package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	tmcfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/libs/cli"
	tmflags "github.com/tendermint/tendermint/libs/cli/flags"
	"github.com/tendermint/tendermint/libs/log"

	cfg "github.com/Tanuj-solulab/learning-service-real-estate/config"
)

var (
	config   = cfg.DefaultConfig()
	tmConfig = tmcfg.DefaultConfig()
	logger   = log.NewTMLogger(log.NewSyncWriter(os.Stdout))
)

func init() {
	registerFlagsRootCmd(RootCmd)
}

func registerFlagsRootCmd(cmd *cobra.Command) {
	cmd.PersistentFlags().String("log_level", config.LogLevel, "log level")
}

// ParseConfig reads agent.toml and, for the in process Tendermint node,
// config.toml from the home directory, and ensures the root exists.
func ParseConfig(cmd *cobra.Command) (*cfg.Config, *tmcfg.Config, error) {
	home := viper.GetString(cli.HomeFlag)
	conf, err := cfg.Load(home)
	if err != nil {
		return nil, nil, err
	}
	if f := cmd.Flags().Lookup("log_level"); f != nil && f.Changed {
		conf.LogLevel = f.Value.String()
	}
	if err := conf.BaseConfig.ValidateBasic(); err != nil {
		return nil, nil, fmt.Errorf("error in config file: %v", err)
	}

	tmConf := tmcfg.DefaultConfig()
	if err := viper.Unmarshal(tmConf); err != nil {
		return nil, nil, err
	}
	tmConf.SetRoot(home)
	tmcfg.EnsureRoot(home)
	cfg.EnsureRoot(home)
	if err := tmConf.ValidateBasic(); err != nil {
		return nil, nil, fmt.Errorf("error in tendermint config file: %v", err)
	}
	return conf, tmConf, nil
}

// RootCmd is the root command for the agent.
var RootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Real estate buying agent",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		if cmd.Name() == VersionCmd.Name() {
			return nil
		}

		config, tmConfig, err = ParseConfig(cmd)
		if err != nil {
			return err
		}

		if config.LogFormat == cfg.LogFormatJSON {
			logger = log.NewTMJSONLogger(log.NewSyncWriter(os.Stdout))
		}

		logger, err = tmflags.ParseLogLevel(config.LogLevel, logger, cfg.DefaultLogLevel)
		if err != nil {
			return err
		}

		if viper.GetBool(cli.TraceFlag) {
			logger = log.NewTracingLogger(logger)
		}

		logger = logger.With("module", "main")
		return nil
	},
}

// deprecateSnakeCase is a util function for 0.34.1. Should be removed in 0.35
func deprecateSnakeCase(cmd *cobra.Command, args []string) {
	if strings.Contains(cmd.CalledAs(), "_") {
		fmt.Println("Deprecated: snake_case commands will be replaced by hyphen-case commands in the next major release")
	}
}
