package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// deckCmd prints the quiz the server would build, for curators checking a
// label file before deploying it. Set SEED to reproduce a particular run.
var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Build the quiz from the label mapping and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		deck, err := buildDeck(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(deck)
	},
}
