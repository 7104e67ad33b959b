package main

import (
	"os"
	"path/filepath"

	"github.com/tendermint/tendermint/libs/cli"

	cmd "github.com/Tanuj-solulab/learning-service-real-estate/cmd/commands"
	nm "github.com/Tanuj-solulab/learning-service-real-estate/node"
)

const defaultHomeDir = ".real_estate_agent"

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.InitFilesCmd,
		cli.NewCompletionCmd(rootCmd, true),
	)

	// NOTE:
	// Users wishing to:
	//	* Supply their own price feed or contract API
	//	* Provide their own DB implementation
	// can copy this file and use something other than the
	// DefaultNewNode function
	nodeFunc := nm.DefaultNewNode

	// Create & start node
	rootCmd.AddCommand(
		cmd.GenAgentKeyCmd,
		cmd.ShowAgentAddressCmd,
		cmd.GenSetupCmd,
		cmd.ShowDocumentCmd,
		cmd.VersionCmd,
		cmd.NewRunNodeCmd(nodeFunc),
	)

	cmd := cli.PrepareBaseCmd(rootCmd, "AGENT", os.ExpandEnv(filepath.Join("$HOME", defaultHomeDir)))
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
