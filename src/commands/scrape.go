package commands

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oddscrawler/src/browser"
	"oddscrawler/src/core"
	"oddscrawler/src/logging"
	"oddscrawler/src/session"
)

var (
	scrapeBatch       int
	scrapeCompetition string
)

func init() {
	scrapeCmd.Flags().IntVar(&scrapeBatch, "batch", 0, "number of matches to complete (default random in [batch_min, batch_max])")
	scrapeCmd.Flags().StringVar(&scrapeCompetition, "competition", "", "opta competition to scrape (default random)")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:       "scrape oddsportal|opta [--batch N] [--competition C]",
	Short:     "Runs one scraping session against a site.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"oddsportal", "opta"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		started := time.Now()

		logFile := filepath.Join(cfg.Data.ScrapingLogs(),
			fmt.Sprintf("%s_%s.log", args[0], started.Format("20060102_150405")))
		sessionLog, closeLog, err := logging.Tee(log, logFile)
		if err != nil {
			return err
		}
		defer closeLog()

		store, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		b, err := openBrowser(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		var (
			site  session.Site
			pages session.FilePages
		)
		switch args[0] {
		case "oddsportal":
			site = core.NewOddsportal(b, cfg.Oddsportal, timing(), sessionLog)
			pages = session.FilePages{Dir: cfg.Data.OddsportalHTML()}
		case "opta":
			comp, err := pickCompetition(cfg.Opta.Competitions, scrapeCompetition)
			if err != nil {
				return err
			}
			opta := core.NewOpta(b, cfg.Opta, comp, timing(), sessionLog)
			sessionLog.Info("picked competition", zap.String("competition", opta.Competition()))
			site = opta
			pages = session.FilePages{Dir: cfg.Data.OptaHTML()}
		}

		tr, err := store.tracker(ctx, site.Layout())
		if err != nil {
			return err
		}

		report, err := session.New(sessionConfig(scrapeBatch), site, b, tr, pages, sessionLog).Run(ctx)
		sessionLog.Info("session report",
			zap.String("session", report.ID),
			zap.String("reason", string(report.Reason)),
			zap.Int("budget", report.Budget),
			zap.Int("completed", report.Completed),
			zap.Int("attempts", report.Attempts),
			zap.Int("timeouts", report.Timeouts),
			zap.Int("suspicions", report.Suspicions),
			zap.Duration("duration", report.Duration))
		return err
	},
}

// pickCompetition returns want when it is configured, or a random
// configured competition when want is empty.
func pickCompetition(competitions []string, want string) (string, error) {
	if want == "" {
		return competitions[session.NewRand().IntN(len(competitions))], nil
	}
	if !slices.Contains(competitions, want) {
		return "", fmt.Errorf("competition %q is not configured", want)
	}
	return want, nil
}

var _ core.Page = (*browser.Browser)(nil)
