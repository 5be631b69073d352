package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"oddscrawler/src/config"
	"oddscrawler/src/parser"
	"oddscrawler/src/tracker"
)

// bottom is a scroll offset past the end of any results page.
const bottom = 999999

// Collector fills the tracking tables with the matches to scrape.
type Collector struct {
	driver
}

func NewCollector(page Page, timing Timing, log *zap.Logger) *Collector {
	return &Collector{
		driver: driver{
			page:   page,
			sel:    DefaultSelector,
			timing: timing,
			log:    log.Named("collect"),
		},
	}
}

// CollectOddsportal walks every results page of every competition and
// tracks the match links it finds. Competitions are keyed by their path.
func (c *Collector) CollectOddsportal(ctx context.Context, cfg config.OddsportalConfig, tr *tracker.Tracker) (map[string]int, error) {
	if err := tr.EnsureHeader(ctx); err != nil {
		return nil, err
	}

	if err := c.page.Navigate(cfg.BaseURL); err != nil {
		return nil, err
	}
	if err := c.timing.load(ctx); err != nil {
		return nil, err
	}
	if err := c.page.AcceptOneTrust(consentTimeout); err != nil {
		c.log.Warn("could not accept cookies", zap.Error(err))
	}

	paths := make([]string, 0, len(cfg.Competitions))
	for _, comp := range cfg.Competitions {
		paths = append(paths, comp.Path)

		results := fmt.Sprintf("%s%s-%s/results/", cfg.BaseURL, comp.Path, cfg.Season)
		if err := c.collectResults(ctx, results, comp, tr); err != nil {
			return nil, fmt.Errorf("collect %s: %w", comp.Name, err)
		}
	}

	return tr.Counts(ctx, paths)
}

func (c *Collector) collectResults(ctx context.Context, results string, comp config.Competition, tr *tracker.Tracker) error {
	log := c.log.With(zap.String("competition", comp.Name))

	if err := c.page.Navigate(results); err != nil {
		return err
	}
	if err := c.timing.load(ctx); err != nil {
		return err
	}

	// the pagination bar ends with a "next" link
	n, err := c.page.Count(c.sel.Pagination)
	if err != nil {
		return err
	}
	pages := max(n-1, 1)

	for p := 1; p <= pages; p++ {
		if p > 1 {
			if err := c.page.SetLocation(fmt.Sprintf("%s#/page/%d/", results, p)); err != nil {
				return err
			}
			if err := c.timing.human(ctx); err != nil {
				return err
			}
			if err := c.page.Reload(); err != nil {
				return err
			}
			if err := c.timing.load(ctx); err != nil {
				return err
			}
			if err := c.scroll(ctx, 0); err != nil {
				return err
			}
		}

		// results are lazy loaded while scrolling down
		if err := c.scroll(ctx, bottom); err != nil {
			return err
		}

		html, err := c.page.HTML()
		if err != nil {
			return err
		}
		links, err := parser.ParseGameLinks(strings.NewReader(html))
		if err != nil {
			return err
		}

		added, dup, err := tr.Track(ctx, comp.Path, links)
		if err != nil {
			return err
		}
		if dup {
			log.Warn("duplicate links on results page", zap.Int("page", p))
		}
		log.Info("collected results page",
			zap.Int("page", p),
			zap.Int("pages", pages),
			zap.Int("links", len(links)),
			zap.Int("added", added))
	}

	return nil
}

func (c *Collector) scroll(ctx context.Context, y int) error {
	if err := c.page.ScrollTo(y); err != nil {
		return err
	}
	return c.timing.scroll(ctx)
}

// CollectOpta tracks the fixture ids of every configured competition.
func (c *Collector) CollectOpta(ctx context.Context, cfg config.OptaConfig, tr *tracker.Tracker) (map[string]int, error) {
	if err := tr.EnsureHeader(ctx); err != nil {
		return nil, err
	}

	for _, comp := range cfg.Competitions {
		if err := openCompetition(ctx, c.driver, cfg.BaseURL, comp, cfg.Season, true); err != nil {
			return nil, fmt.Errorf("open %s: %w", comp, err)
		}

		html, err := c.page.HTML()
		if err != nil {
			return nil, err
		}
		ids, err := parser.ParseFixtureIDs(strings.NewReader(html))
		if err != nil {
			return nil, err
		}

		added, _, err := tr.Track(ctx, comp, ids)
		if err != nil {
			return nil, err
		}
		c.log.Info("collected fixtures",
			zap.String("competition", comp),
			zap.Int("fixtures", len(ids)),
			zap.Int("added", added))
	}

	return tr.Counts(ctx, cfg.Competitions)
}

// CollectOptaQualifiers tracks the fixtures of the qualifying stages of
// the european competitions. They are later pruned from the main table.
func (c *Collector) CollectOptaQualifiers(ctx context.Context, cfg config.OptaConfig, tr *tracker.Tracker) (map[string]int, error) {
	if err := tr.EnsureHeader(ctx); err != nil {
		return nil, err
	}

	for _, comp := range cfg.Qualifiers {
		if err := openCompetition(ctx, c.driver, cfg.BaseURL, comp, cfg.Season, false); err != nil {
			return nil, fmt.Errorf("open %s: %w", comp, err)
		}

		for _, stage := range cfg.Stages {
			if err := c.page.Click(c.sel.StageDropdown); err != nil {
				return nil, err
			}
			if err := c.timing.human(ctx); err != nil {
				return nil, err
			}
			if err := c.page.ClickLinkText(stage); err != nil {
				return nil, fmt.Errorf("stage %s: %w", stage, err)
			}
			if err := c.timing.load(ctx); err != nil {
				return nil, err
			}

			ids, err := c.page.VisibleAttrs(c.sel.StageFixture, "data-match")
			if err != nil {
				return nil, err
			}
			added, _, err := tr.Track(ctx, comp, ids)
			if err != nil {
				return nil, err
			}
			c.log.Info("collected qualifier fixtures",
				zap.String("competition", comp),
				zap.String("stage", stage),
				zap.Int("fixtures", len(ids)),
				zap.Int("added", added))
		}
	}

	return tr.Counts(ctx, cfg.Qualifiers)
}

// PruneQualifiers removes every qualifier fixture from the opta table and
// returns the deleted rows.
func PruneQualifiers(ctx context.Context, qualifiers, opta *tracker.Tracker) ([]int, error) {
	ids, err := qualifiers.IDs(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return opta.Remove(ctx, set)
}
