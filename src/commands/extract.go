package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oddscrawler/src/db"
	"oddscrawler/src/export"
	"oddscrawler/src/parser"
)

var (
	extractIn   string
	extractOut  string
	extractLoad bool
)

func init() {
	extractCmd.Flags().StringVar(&extractIn, "in", "", "directory of saved pages (default from data dir)")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "CSV file to write (default from data dir)")
	extractCmd.Flags().BoolVar(&extractLoad, "load", false, "also insert the rows into postgres")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:       "extract oddsportal|opta [--in dir] [--out file] [--load]",
	Short:     "Parses saved pages into a CSV file.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"oddsportal", "opta"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		switch args[0] {
		case "oddsportal":
			rows, err := extractTo(ctx, cfg.Data.OddsportalHTML(), cfg.Data.OddsCSV(), parser.ParseOdds)
			if err != nil {
				return err
			}
			return load(ctx, rows, (*db.DB).InsertOdds)

		default:
			rows, err := extractTo(ctx, cfg.Data.OptaHTML(), cfg.Data.FixturesCSV(), parser.ParseFixtures)
			if err != nil {
				return err
			}
			return load(ctx, rows, (*db.DB).InsertMatch)
		}
	},
}

func extractTo[T export.Row](ctx context.Context, in, out string, parse parser.ParseFunc[T]) ([]T, error) {
	if extractIn != "" {
		in = extractIn
	}
	if extractOut != "" {
		out = extractOut
	}

	rows, err := parser.ExtractDir(ctx, in, parse, log)
	if err != nil {
		return nil, err
	}
	if err := export.WriteRows(out, rows); err != nil {
		return nil, err
	}

	log.Info("wrote csv", zap.String("file", out), zap.Int("rows", len(rows)))
	return rows, nil
}

func load[T any](ctx context.Context, rows []T, insert func(*db.DB, context.Context, T) (int, error)) error {
	if !extractLoad {
		return nil
	}

	conn, err := db.Open(db.Postgres, db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Migrate(ctx); err != nil {
		return err
	}

	for _, r := range rows {
		if _, err := insert(conn, ctx, r); err != nil {
			return err
		}
	}

	log.Info("loaded rows", zap.Int("rows", len(rows)))
	return nil
}
