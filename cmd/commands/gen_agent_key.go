package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	tmjson "github.com/tendermint/tendermint/libs/json"
	tmos "github.com/tendermint/tendermint/libs/os"

	"github.com/Tanuj-solulab/learning-service-real-estate/privval"
)

// GenAgentKeyCmd generates the key the agent signs its payloads with.
var GenAgentKeyCmd = &cobra.Command{
	Use:     "gen-agent-key",
	Aliases: []string{"gen_agent_key"},
	Args:    cobra.NoArgs,
	Short:   "Generate the agent keypair",
	PreRun:  deprecateSnakeCase,
	RunE:    genAgentKey,
}

// ShowAgentAddressCmd prints the participant address of the agent.
var ShowAgentAddressCmd = &cobra.Command{
	Use:     "show-agent-address",
	Aliases: []string{"show_agent_address"},
	Short:   "Show the participant address of this agent",
	PreRun:  deprecateSnakeCase,
	RunE:    showAgentAddress,
}

func genAgentKey(cmd *cobra.Command, args []string) error {
	keyFile := config.AgentKeyFile()
	if tmos.FileExists(keyFile) {
		logger.Info("Found agent key", "keyFile", keyFile)
		return nil
	}

	pv := privval.GenFilePV(keyFile)
	jsbz, err := tmjson.Marshal(pv.Key)
	if err != nil {
		return err
	}
	pv.Save()

	fmt.Printf(`%v
`, string(jsbz))
	return nil
}

func showAgentAddress(cmd *cobra.Command, args []string) error {
	keyFile := config.AgentKeyFile()
	if !tmos.FileExists(keyFile) {
		return fmt.Errorf("agent key file %q does not exist", keyFile)
	}
	pv, err := privval.LoadFilePV(keyFile)
	if err != nil {
		return err
	}
	fmt.Println(pv.GetAddress())
	return nil
}
