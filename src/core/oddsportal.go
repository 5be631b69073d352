package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"oddscrawler/src/config"
	"oddscrawler/src/domain"
	"oddscrawler/src/session"
)

const (
	OverUnder = "ou"
	Handicap  = "ah"
)

var oddsportalFragments = map[string]string{
	OverUnder: "#over-under;2",
	Handicap:  "#ah;2",
}

// Oddsportal fetches the over/under and asian handicap tabs of a match.
type Oddsportal struct {
	driver
	baseURL string
}

func NewOddsportal(page Page, cfg config.OddsportalConfig, timing Timing, log *zap.Logger) *Oddsportal {
	return &Oddsportal{
		driver: driver{
			page:   page,
			sel:    DefaultSelector,
			timing: timing,
			log:    log.Named("oddsportal"),
		},
		baseURL: cfg.BaseURL,
	}
}

func (o *Oddsportal) Name() string          { return "oddsportal" }
func (o *Oddsportal) Layout() domain.Layout { return domain.OddsportalLayout }

func (o *Oddsportal) Eligible(domain.WorkItem) bool { return true }

func (o *Oddsportal) Prepare(ctx context.Context) error {
	if err := o.page.Navigate(o.baseURL); err != nil {
		return err
	}
	if err := o.timing.load(ctx); err != nil {
		return err
	}
	if err := o.page.AcceptOneTrust(consentTimeout); err != nil {
		o.log.Warn("could not accept cookies", zap.Error(err))
	}
	return nil
}

// Fetch opens the match page, switches to the tab for task and shows the
// classic bookmakers. The tab lives in the url fragment, which only takes
// effect after a reload. The match is always loaded first so the reload
// can never hit the page left over from the previous item.
func (o *Oddsportal) Fetch(ctx context.Context, item domain.WorkItem, task domain.SubTask, w *session.Waiter) (string, error) {
	fragment, ok := oddsportalFragments[task.Name]
	if !ok {
		return "", fmt.Errorf("unknown oddsportal task %q", task.Name)
	}

	match := o.baseURL + item.ID
	if err := o.page.Navigate(match); err != nil {
		return "", err
	}
	if err := o.page.SetLocation(match + fragment); err != nil {
		return "", err
	}
	if err := o.timing.human(ctx); err != nil {
		return "", err
	}
	if err := o.page.Reload(); err != nil {
		return "", err
	}

	if err := w.Wait(ctx, o.sel.OddsRows); err != nil {
		return "", err
	}
	if err := o.page.Click(o.sel.ClassicBookies); err != nil {
		return "", err
	}
	if err := o.timing.human(ctx); err != nil {
		return "", err
	}
	if err := w.Wait(ctx, o.sel.OddsRows); err != nil {
		return "", err
	}

	return o.page.HTML()
}

func (o *Oddsportal) Finish(context.Context, domain.WorkItem) error { return nil }

func (o *Oddsportal) PageFile(item domain.WorkItem, task domain.SubTask) string {
	return fmt.Sprintf("%s_%s.html", task.Name, domain.ScrapeID(item.ID))
}
