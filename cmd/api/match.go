package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
	"github.com/denisok6893-rgb/rental-matching/internal/matching"
	"github.com/denisok6893-rgb/rental-matching/internal/storage"
)

const (
	sourceStore = "store"
	sourceAPI   = "api"
)

type matchFlags struct {
	prefsFile string
	userID    string
	source    string
	sortBy    string
	direction string
	search    string
	limit     int
	minScore  int
	force     bool
}

func matchCmd() *cobra.Command {
	var f matchFlags
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Score the catalog against a preference record and print the ranked matches",
		Example: `  rental-api match --prefs prefs.json --limit 10
  rental-api match --user u-123 --source api --sort-by price`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := runMatch(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&f.prefsFile, "prefs", "", "preference record JSON file")
	cmd.Flags().StringVar(&f.userID, "user", "", "read the tenant's preferences from --source instead of a file")
	cmd.Flags().StringVar(&f.source, "source", sourceStore, "where to read listings and preferences: store or api")
	cmd.Flags().StringVar(&f.sortBy, "sort-by", "score", "score, price or date")
	cmd.Flags().StringVar(&f.direction, "direction", "", "asc or desc (default: natural for the sort key)")
	cmd.Flags().StringVar(&f.search, "search", "", "free-text filter on listings")
	cmd.Flags().IntVar(&f.limit, "limit", 20, "max matches to print; 0 for all")
	cmd.Flags().IntVar(&f.minScore, "min-score", 0, "drop matches scoring below this")
	cmd.Flags().BoolVar(&f.force, "force", false, "score even when preferences are incomplete")
	return cmd
}

// catalogSource is satisfied by both the SQLite store and the platform client.
type catalogSource interface {
	AllProperties(ctx context.Context, search string) ([]domain.Property, error)
	GetPreferences(ctx context.Context, userID string) (domain.PreferenceRecord, error)
}

func runMatch(ctx context.Context, f matchFlags) (matching.MatchReport, error) {
	if (f.prefsFile == "") == (f.userID == "") {
		return matching.MatchReport{}, fmt.Errorf("exactly one of --prefs or --user is required")
	}

	var src catalogSource
	switch f.source {
	case sourceStore:
		st, err := openStore(ctx)
		if err != nil {
			return matching.MatchReport{}, err
		}
		defer st.Close()
		src = st
	case sourceAPI:
		client, err := newCatalogClient()
		if err != nil {
			return matching.MatchReport{}, err
		}
		src = client
	default:
		return matching.MatchReport{}, fmt.Errorf("unknown --source %q (want store or api)", f.source)
	}

	var prefs domain.PreferenceRecord
	var err error
	if f.prefsFile != "" {
		prefs, err = storage.LoadPreferencesFromFile(f.prefsFile)
	} else {
		prefs, err = src.GetPreferences(ctx, f.userID)
	}
	if err != nil {
		return matching.MatchReport{}, err
	}

	props, err := src.AllProperties(ctx, f.search)
	if err != nil {
		return matching.MatchReport{}, err
	}

	engine, closeCache := buildEngine(ctx)
	defer closeCache()

	key := matching.ParseSortKey(f.sortBy)
	report, err := engine.Match(ctx, prefs, props, matching.MatchOptions{
		SortBy:    key,
		Direction: matching.ParseDirection(f.direction, key),
		Limit:     f.limit,
		MinScore:  f.minScore,
		Force:     f.force,
		Workers:   cfg.Matching.Workers,
	})
	if err != nil {
		return matching.MatchReport{}, err
	}

	zlog.Info("match complete",
		zap.String("source", f.source),
		zap.Int("candidates", len(props)),
		zap.Bool("gated", report.Gated),
		zap.Int("matched", report.Total),
	)
	return report, nil
}
