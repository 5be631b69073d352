package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oddscrawler/src/domain"
	"oddscrawler/src/export"
	"oddscrawler/src/upload"
)

var exportOut string

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "directory for the snapshots (default scraping logs dir)")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(progressCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--out dir]",
	Short: "Dumps the opta and oddsportal tracking tables to CSV.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dir := snapshotDir(exportOut)

		store, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		snapshots := []struct {
			layout domain.Layout
			file   string
			hash   bool
		}{
			{domain.OptaLayout, export.OptaSnapshot, false},
			{domain.OddsportalLayout, export.OddsportalSnapshot, true},
		}

		for _, s := range snapshots {
			t, err := store.table(ctx, s.layout)
			if err != nil {
				return err
			}

			path := filepath.Join(dir, s.file)
			n, err := export.TrackingSnapshot(ctx, t, s.layout, path, s.hash)
			if err != nil {
				return err
			}
			log.Info("exported tracking table", zap.String("table", s.layout.Name), zap.String("file", path), zap.Int("rows", n))
		}
		return nil
	},
}

// snapshotDir is where export writes, next to the session logs unless out
// is given.
func snapshotDir(out string) string {
	if out != "" {
		return out
	}
	return cfg.Data.ScrapingLogs()
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Uploads CSV files to the configured Drive folder, replacing files of the same name.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Google.CredentialsFile == "" {
			return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS is not set")
		}
		if cfg.Google.DriveFolderID == "" {
			return fmt.Errorf("DRIVE_FOLDER_ID is not set")
		}

		files, err := upload.NewDriveFiles(ctx, cfg.Google.CredentialsFile)
		if err != nil {
			return err
		}
		u := upload.New(files, cfg.Google.DriveFolderID, log)

		for _, path := range args {
			if _, err := u.Upload(ctx, path); err != nil {
				return err
			}
		}
		return nil
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Shows scraping progress per competition.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Site", "Competition", "Matches", "Pages done", "Pages", "Progress", "Errors"})

		for _, layout := range []domain.Layout{domain.OptaLayout, domain.OddsportalLayout} {
			tr, err := store.tracker(ctx, layout)
			if err != nil {
				return err
			}
			rows, err := tr.ByCompetition(ctx)
			if err != nil {
				return err
			}

			for _, r := range rows {
				t.AppendRow(table.Row{
					layout.Name,
					r.Competition,
					r.Items,
					r.Done,
					r.Total,
					fmt.Sprintf("%.1f%%", r.Percent()),
					r.Errors,
				})
			}
			t.AppendSeparator()
		}

		t.Render()
		return nil
	},
}
