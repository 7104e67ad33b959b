package commands

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Tanuj-solulab/learning-service-real-estate/store"
)

var height int64

func init() {
	ShowDocumentCmd.Flags().Int64Var(&height, "height", 0, "height of the committed document, latest if 0")
}

// ShowDocumentCmd prints a document committed by the local agent.
var ShowDocumentCmd = &cobra.Command{
	Use:     "show-document",
	Aliases: []string{"show_document"},
	Short:   "Print a committed synchronized document",
	PreRun:  deprecateSnakeCase,
	RunE:    showDocument,
}

func showDocument(cmd *cobra.Command, args []string) error {
	if height < 0 {
		return errors.New("height must be >= 0")
	}
	kv, err := store.NewKVStore("agent", config.DBDir(), logger)
	if err != nil {
		return err
	}
	defer kv.Close()

	h := height
	if h == 0 {
		s, err := kv.LoadState()
		if err != nil {
			return err
		}
		if s.IsEmpty() {
			return errors.New("nothing committed yet")
		}
		h = s.LastBlockHeight
		logger.Info("Latest state", "height", h, "round", s.RoundType, "round_count", s.RoundCount)
	}

	doc, err := kv.LoadDocument(h)
	if err != nil {
		return err
	}
	bz, err := doc.MarshalJSON()
	if err != nil {
		return err
	}
	fmt.Println(string(bz))
	return nil
}
