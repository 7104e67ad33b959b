package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/version"

	"github.com/Tanuj-solulab/learning-service-real-estate/consensus"
)

// AgentVersion is the version of the agent binary.
const AgentVersion = "0.1.0"

// VersionCmd ...
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agent %s (app %d, tendermint %s)\n", AgentVersion, consensus.AppVersion, version.TMCoreSemVer)
	},
}
