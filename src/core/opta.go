package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"oddscrawler/src/config"
	"oddscrawler/src/domain"
	"oddscrawler/src/session"
)

// Opta fetches the player stats of one competition's matches. The driver
// stays on the competition's fixtures list and goes back to it after
// every match.
type Opta struct {
	driver
	baseURL     string
	season      string
	competition string

	// opened is set once a match was clicked and Finish has to go back
	opened bool
}

func NewOpta(page Page, cfg config.OptaConfig, competition string, timing Timing, log *zap.Logger) *Opta {
	return &Opta{
		driver: driver{
			page:   page,
			sel:    DefaultSelector,
			timing: timing,
			log:    log.Named("opta").With(zap.String("competition", competition)),
		},
		baseURL:     cfg.BaseURL,
		season:      cfg.Season,
		competition: competition,
	}
}

func (o *Opta) Name() string          { return "opta" }
func (o *Opta) Layout() domain.Layout { return domain.OptaLayout }

func (o *Opta) Competition() string { return o.competition }

func (o *Opta) Eligible(item domain.WorkItem) bool {
	return item.Competition == o.competition
}

func (o *Opta) Prepare(ctx context.Context) error {
	return openCompetition(ctx, o.driver, o.baseURL, o.competition, o.season, true)
}

// openCompetition goes from the competitions index to a competition's
// fixtures for season. stats switches to the player stats view first.
func openCompetition(ctx context.Context, d driver, baseURL, competition, season string, stats bool) error {
	if err := d.page.Navigate(baseURL); err != nil {
		return err
	}
	if err := d.timing.load(ctx); err != nil {
		return err
	}

	accepted, err := d.page.AcceptUsercentrics()
	if err != nil {
		return err
	}
	d.log.Debug("cookie banner", zap.Bool("accepted", accepted))

	if err := d.page.ClickLinkText(competition); err != nil {
		return err
	}
	if stats {
		if err := d.timing.human(ctx); err != nil {
			return err
		}
		if err := d.page.ClickLinkText(playerStatsLink); err != nil {
			return err
		}
	}
	if err := d.timing.load(ctx); err != nil {
		return err
	}

	if err := d.page.SelectByText(d.sel.SeasonSelect, season); err != nil {
		return err
	}
	return d.timing.load(ctx)
}

func (o *Opta) Fetch(ctx context.Context, item domain.WorkItem, task domain.SubTask, w *session.Waiter) (string, error) {
	if err := w.Wait(ctx, o.sel.FixtureBody); err != nil {
		return "", err
	}

	divider := fmt.Sprintf(o.sel.MatchDivider, item.ID)
	n, err := o.page.Count(divider)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("match %s: %w", item.ID, session.ErrItemUnavailable)
	}

	if err := o.timing.human(ctx); err != nil {
		return "", err
	}
	if err := o.page.Click(divider); err != nil {
		return "", err
	}
	o.opened = true

	if err := w.Wait(ctx, o.sel.PlayerStats); err != nil {
		return "", err
	}
	if err := o.timing.human(ctx); err != nil {
		return "", err
	}

	return o.page.HTML()
}

// Finish returns to the fixtures list.
func (o *Opta) Finish(ctx context.Context, item domain.WorkItem) error {
	if !o.opened {
		return nil
	}
	o.opened = false
	if err := o.page.Back(); err != nil {
		return err
	}
	return o.timing.human(ctx)
}

func (o *Opta) PageFile(item domain.WorkItem, task domain.SubTask) string {
	return item.ID + ".html"
}
