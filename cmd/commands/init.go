package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	tmcfg "github.com/tendermint/tendermint/config"
	tmos "github.com/tendermint/tendermint/libs/os"
	tmrand "github.com/tendermint/tendermint/libs/rand"
	"github.com/tendermint/tendermint/p2p"
	tmprivval "github.com/tendermint/tendermint/privval"
	"github.com/tendermint/tendermint/types"
	tmtime "github.com/tendermint/tendermint/types/time"

	cfg "github.com/Tanuj-solulab/learning-service-real-estate/config"
	"github.com/Tanuj-solulab/learning-service-real-estate/privval"
)

var (
	participants []string
	safeAddress  string
	abciMode     string
)

// InitFilesCmd initialises a fresh agent home: its key, agent.toml and, in
// embedded mode, the files of the Tendermint node it runs.
var InitFilesCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an agent",
	RunE:  initFiles,
}

func init() {
	InitFilesCmd.Flags().StringSliceVar(&participants, "participants", nil,
		"addresses of all agents of the service; this agent is added when missing")
	InitFilesCmd.Flags().StringVar(&safeAddress, "safe", "", "address of the Safe the agents control")
	InitFilesCmd.Flags().StringVar(&abciMode, "abci", cfg.ABCIEmbedded, "embedded | socket")
}

func initFiles(cmd *cobra.Command, args []string) error {
	return initFilesWithConfig(config, tmConfig)
}

func initFilesWithConfig(config *cfg.Config, tmConfig *tmcfg.Config) error {
	// agent key
	keyFile := config.AgentKeyFile()
	var pv *privval.FilePV
	if tmos.FileExists(keyFile) {
		var err error
		pv, err = privval.LoadFilePV(keyFile)
		if err != nil {
			return err
		}
		logger.Info("Found agent key", "keyFile", keyFile)
	} else {
		pv = privval.GenFilePV(keyFile)
		pv.Save()
		logger.Info("Generated agent key", "keyFile", keyFile)
	}

	// agent.toml
	configFile := config.ConfigFile()
	if tmos.FileExists(configFile) {
		logger.Info("Found config file", "path", configFile)
	} else {
		config.ABCI = abciMode
		config.Params.AllParticipants = withAgent(participants, pv.GetAddress().String())
		if safeAddress != "" {
			config.Params.SafeContractAddress = safeAddress
		}
		if err := config.BaseConfig.ValidateBasic(); err != nil {
			return err
		}
		if err := cfg.WriteConfigFile(config); err != nil {
			return err
		}
		logger.Info("Generated config file", "path", configFile, "participants", len(config.Params.AllParticipants))
	}

	if abciMode != cfg.ABCIEmbedded {
		return nil
	}
	return initTendermintFiles(tmConfig)
}

func initTendermintFiles(config *tmcfg.Config) error {
	// private validator
	privValKeyFile := config.PrivValidatorKeyFile()
	privValStateFile := config.PrivValidatorStateFile()
	var pv *tmprivval.FilePV
	if tmos.FileExists(privValKeyFile) {
		pv = tmprivval.LoadFilePV(privValKeyFile, privValStateFile)
		logger.Info("Found private validator", "keyFile", privValKeyFile,
			"stateFile", privValStateFile)
	} else {
		pv = tmprivval.GenFilePV(privValKeyFile, privValStateFile)
		pv.Save()
		logger.Info("Generated private validator", "keyFile", privValKeyFile,
			"stateFile", privValStateFile)
	}

	nodeKeyFile := config.NodeKeyFile()
	if tmos.FileExists(nodeKeyFile) {
		logger.Info("Found node key", "path", nodeKeyFile)
	} else {
		if _, err := p2p.LoadOrGenNodeKey(nodeKeyFile); err != nil {
			return err
		}
		logger.Info("Generated node key", "path", nodeKeyFile)
	}

	// genesis file
	genFile := config.GenesisFile()
	if tmos.FileExists(genFile) {
		logger.Info("Found genesis file", "path", genFile)
	} else {
		genDoc := types.GenesisDoc{
			ChainID:         fmt.Sprintf("agent-chain-%v", tmrand.Str(6)),
			GenesisTime:     tmtime.Now(),
			ConsensusParams: types.DefaultConsensusParams(),
		}
		pubKey, err := pv.GetPubKey()
		if err != nil {
			return fmt.Errorf("can't get pubkey: %w", err)
		}
		genDoc.Validators = []types.GenesisValidator{{
			Address: pubKey.Address(),
			PubKey:  pubKey,
			Power:   10,
		}}

		if err := genDoc.SaveAs(genFile); err != nil {
			return err
		}
		logger.Info("Generated genesis file", "path", genFile)
	}

	return nil
}

func withAgent(addrs []string, agent string) []string {
	for _, a := range addrs {
		if a == agent {
			return addrs
		}
	}
	return append(addrs, agent)
}
