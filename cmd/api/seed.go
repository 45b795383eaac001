package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/denisok6893-rgb/rental-matching/internal/storage"
)

func seedCmd() *cobra.Command {
	var file, prefsFile string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load listings (and optionally a preference record) from JSON into the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if file != "" {
				props, err := storage.LoadPropertiesFromFile(file)
				if err != nil {
					return err
				}
				n, err := st.UpsertMany(ctx, props)
				if err != nil {
					return err
				}
				zlog.Info("seeded properties", zap.String("file", file), zap.Int("read", len(props)), zap.Int("inserted", n))
				fmt.Fprintf(cmd.OutOrStdout(), "inserted %d of %d properties\n", n, len(props))
			}

			if prefsFile != "" {
				prefs, err := storage.LoadPreferencesFromFile(prefsFile)
				if err != nil {
					return err
				}
				saved, err := st.SavePreferences(ctx, prefs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved preferences for %s\n", saved.UserID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "data/properties.json", "properties JSON file")
	cmd.Flags().StringVar(&prefsFile, "prefs", "", "preference record JSON file (needs user_id)")
	return cmd
}
