package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tanuj-solulab/learning-service-real-estate/node"
)

// GenSetupCmd prints the document the first round of every period starts
// from, as built from the [params] section.
var GenSetupCmd = &cobra.Command{
	Use:     "gen-setup",
	Aliases: []string{"gen_setup"},
	Short:   "Validate the agent set and print the setup document",
	PreRun:  deprecateSnakeCase,
	RunE:    genSetup,
}

func genSetup(cmd *cobra.Command, args []string) error {
	if err := config.Params.ValidateBasic(); err != nil {
		return err
	}
	setup, err := node.MakeSetupData(config.Params)
	if err != nil {
		return err
	}
	threshold, err := setup.ConsensusThreshold()
	if err != nil {
		return err
	}
	logger.Info("Setup document", "threshold", threshold, "hash", fmt.Sprintf("%X", setup.Document().Hash()))

	fmt.Println(string(setup.Document().Bytes()))
	return nil
}
