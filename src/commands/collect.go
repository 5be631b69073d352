package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oddscrawler/src/core"
	"oddscrawler/src/domain"
	"oddscrawler/src/tracker"
)

func init() {
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(pruneCmd)
}

var collectCmd = &cobra.Command{
	Use:       "collect oddsportal|opta|qualifiers",
	Short:     "Collects the matches to scrape into the tracking tables.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"oddsportal", "opta", "qualifiers"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		layout := map[string]domain.Layout{
			"oddsportal": domain.OddsportalLayout,
			"opta":       domain.OptaLayout,
			"qualifiers": domain.QualifierLayout,
		}[args[0]]

		tr, err := store.tracker(ctx, layout)
		if err != nil {
			return err
		}

		b, err := openBrowser(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		c := core.NewCollector(b, timing(), log)

		var counts map[string]int
		switch args[0] {
		case "oddsportal":
			counts, err = c.CollectOddsportal(ctx, cfg.Oddsportal, tr)
		case "opta":
			counts, err = c.CollectOpta(ctx, cfg.Opta, tr)
		case "qualifiers":
			counts, err = c.CollectOptaQualifiers(ctx, cfg.Opta, tr)
		}
		if err != nil {
			return err
		}

		for comp, n := range counts {
			log.Info("tracked matches", zap.String("competition", comp), zap.Int("matches", n))
		}
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune-qualifiers",
	Short: "Removes qualifying round fixtures from the opta tracking table.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		quals, opta, err := qualifierTrackers(ctx, store)
		if err != nil {
			return err
		}

		rows, err := core.PruneQualifiers(ctx, quals, opta)
		if err != nil {
			return err
		}
		log.Info("pruned qualifier fixtures", zap.Int("rows", len(rows)), zap.Ints("deleted", rows))
		return nil
	},
}

func qualifierTrackers(ctx context.Context, store *backend) (*tracker.Tracker, *tracker.Tracker, error) {
	quals, err := store.tracker(ctx, domain.QualifierLayout)
	if err != nil {
		return nil, nil, err
	}
	opta, err := store.tracker(ctx, domain.OptaLayout)
	if err != nil {
		return nil, nil, err
	}
	return quals, opta, nil
}
