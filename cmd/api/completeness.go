package main

import (
	"github.com/spf13/cobra"

	"github.com/denisok6893-rgb/rental-matching/internal/matching"
	"github.com/denisok6893-rgb/rental-matching/internal/storage"
)

func completenessCmd() *cobra.Command {
	var prefsFile string
	cmd := &cobra.Command{
		Use:   "completeness",
		Short: "Print the completeness of a preference record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			prefs, err := storage.LoadPreferencesFromFile(prefsFile)
			if err != nil {
				return err
			}
			engine := matching.NewEngine(loadWeights(), matching.WithLogger(zlog))
			return printJSON(cmd.OutOrStdout(), engine.Completeness(prefs))
		},
	}
	cmd.Flags().StringVar(&prefsFile, "prefs", "", "preference record JSON file")
	_ = cmd.MarkFlagRequired("prefs")
	return cmd
}
