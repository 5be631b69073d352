// Package session runs one bounded scraping session: pick a random
// unfinished match from the tracking table, fetch its pages, mark them
// done, and stop when the batch is spent, nothing is left, or the site
// looks like it is blocking us.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"oddscrawler/src/domain"
	"oddscrawler/src/tracker"
)

type StopReason string

const (
	StopBudget    StopReason = "budget"
	StopExhausted StopReason = "exhausted"
	StopBlocked   StopReason = "blocked"
	StopFailed    StopReason = "failed"
	StopCancelled StopReason = "cancelled"
)

// Site is one scraping target.
type Site interface {
	Name() string
	Layout() domain.Layout
	// Prepare brings the browser to the page Fetch starts from.
	Prepare(ctx context.Context) error
	Eligible(item domain.WorkItem) bool
	// Fetch loads the page for one sub-task and returns its HTML. Readiness
	// waits must go through w.
	Fetch(ctx context.Context, item domain.WorkItem, task domain.SubTask, w *Waiter) (string, error)
	// Finish runs after an item is done or skipped.
	Finish(ctx context.Context, item domain.WorkItem) error
	PageFile(item domain.WorkItem, task domain.SubTask) string
}

type Config struct {
	// Batch fixes the number of items to complete. Zero picks a random
	// size in [BatchMin, BatchMax].
	Batch         int
	BatchMin      int
	BatchMax      int
	MaxSuspicions int
	WaitTimeout   time.Duration
	BackoffMin    time.Duration
	BackoffMax    time.Duration
}

type Report struct {
	ID         string
	Reason     StopReason
	Budget     int
	Completed  int
	Attempts   int
	Timeouts   int
	Suspicions int
	Duration   time.Duration
	Progress   tracker.Progress
}

type Session struct {
	cfg     Config
	site    Site
	page    Page
	tracker *tracker.Tracker
	pages   PageStore
	log     *zap.Logger
	rng     *rand.Rand
	sleep   SleepFunc
	now     func() time.Time
}

type Option func(*Session)

func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

func WithSleep(sleep SleepFunc) Option {
	return func(s *Session) { s.sleep = sleep }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func New(cfg Config, site Site, page Page, tr *tracker.Tracker, pages PageStore, log *zap.Logger, opts ...Option) *Session {
	s := &Session{
		cfg:     cfg,
		site:    site,
		page:    page,
		tracker: tr,
		pages:   pages,
		log:     log,
		rng:     NewRand(),
		sleep:   Sleep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxSuspicions < 1 {
		s.cfg.MaxSuspicions = 1
	}
	return s
}

func (s *Session) batchSize() int {
	if s.cfg.Batch > 0 {
		return s.cfg.Batch
	}
	if s.cfg.BatchMax <= s.cfg.BatchMin {
		return s.cfg.BatchMin
	}
	return s.cfg.BatchMin + s.rng.IntN(s.cfg.BatchMax-s.cfg.BatchMin+1)
}

type outcome int

const (
	itemDone outcome = iota
	itemSkipped
	itemUnavailable
	itemBlocked
)

// Run works through the tracking table until the batch is spent or the
// session has to stop. Suspected blocking ends the session without an
// error; the reason is in the report.
func (s *Session) Run(ctx context.Context) (report Report, err error) {
	report = Report{ID: uuid.NewString(), Budget: s.batchSize()}
	log := s.log.With(zap.String("session", report.ID), zap.String("site", s.site.Name()))

	guard := NewGuard(s.cfg.MaxSuspicions)
	waiter := NewWaiter(s.page, guard,
		s.cfg.WaitTimeout,
		NewPacer(s.rng, s.sleep, s.cfg.BackoffMin, s.cfg.BackoffMax),
		log)

	start := s.now()
	defer func() {
		report.Duration = s.now().Sub(start)
		report.Timeouts = waiter.Timeouts()
		report.Suspicions = guard.Count()
	}()

	log.Info("starting session", zap.Int("batch", report.Budget))

	if err := s.site.Prepare(ctx); err != nil {
		return s.fail(ctx, &report, fmt.Errorf("prepare %s: %w", s.site.Name(), err))
	}

	// items the site does not show are left out for the rest of the session
	unavailable := map[string]bool{}
	eligible := func(item domain.WorkItem) bool {
		return !unavailable[item.ID] && s.site.Eligible(item)
	}

	budget := report.Budget
	for budget > 0 {
		if err := ctx.Err(); err != nil {
			report.Reason = StopCancelled
			return report, err
		}

		// fresh read every time, other writers may have finished items
		candidates, err := s.tracker.Pending(ctx, eligible)
		if err != nil {
			return s.fail(ctx, &report, err)
		}
		if len(candidates) == 0 {
			log.Info("no remaining items")
			report.Reason = StopExhausted
			break
		}

		item := candidates[s.rng.IntN(len(candidates))]
		report.Attempts++
		log.Info("scraping item",
			zap.String("id", item.ID),
			zap.Int("row", item.Row),
			zap.Int("errors", item.Errors),
			zap.Int("remaining", budget))

		out, err := s.scrapeItem(ctx, log, item, waiter)
		if err != nil {
			return s.fail(ctx, &report, err)
		}

		switch out {
		case itemDone:
			budget--
			report.Completed++
		case itemUnavailable:
			unavailable[item.ID] = true
		case itemBlocked:
			report.Reason = StopBlocked
			s.progress(ctx, log, &report)
			return report, nil
		}
	}

	if report.Reason == "" {
		report.Reason = StopBudget
	}
	s.progress(ctx, log, &report)
	return report, nil
}

func (s *Session) scrapeItem(ctx context.Context, log *zap.Logger, item domain.WorkItem, waiter *Waiter) (outcome, error) {
	for _, task := range s.site.Layout().SubTasks {
		if item.Done[task.Name] {
			continue
		}

		waiter.StartTask()
		at := s.now()

		html, err := s.site.Fetch(ctx, item, task, waiter)
		switch {
		case errors.Is(err, ErrBlocked):
			if err := s.recordError(ctx, log, item); err != nil {
				return itemBlocked, err
			}
			return itemBlocked, nil
		case errors.Is(err, ErrRetryExhausted):
			if err := s.recordError(ctx, log, item); err != nil {
				return itemSkipped, err
			}
			return itemSkipped, s.site.Finish(ctx, item)
		case errors.Is(err, ErrItemUnavailable):
			if err := s.recordError(ctx, log, item); err != nil {
				return itemUnavailable, err
			}
			return itemUnavailable, s.site.Finish(ctx, item)
		case err != nil:
			return itemSkipped, fmt.Errorf("fetch %s for %s: %w", task.Name, item.ID, err)
		}

		name := s.site.PageFile(item, task)
		if err := s.pages.Save(name, html); err != nil {
			return itemSkipped, err
		}
		if err := s.tracker.MarkDone(ctx, item, task, at); err != nil {
			return itemSkipped, err
		}
		log.Info("saved page", zap.String("task", task.Name), zap.String("file", name))
	}

	return itemDone, s.site.Finish(ctx, item)
}

func (s *Session) recordError(ctx context.Context, log *zap.Logger, item domain.WorkItem) error {
	n, err := s.tracker.RecordError(ctx, item)
	if err != nil {
		return err
	}
	log.Warn("recorded item error", zap.String("id", item.ID), zap.Int("errors", n))
	return nil
}

func (s *Session) fail(ctx context.Context, report *Report, err error) (Report, error) {
	report.Reason = StopFailed
	if ctx.Err() != nil {
		report.Reason = StopCancelled
	}
	return *report, err
}

func (s *Session) progress(ctx context.Context, log *zap.Logger, report *Report) {
	p, err := s.tracker.Progress(ctx)
	if err != nil {
		log.Warn("could not compute progress", zap.Error(err))
		return
	}
	report.Progress = p
	log.Info("session finished",
		zap.String("reason", string(report.Reason)),
		zap.Int("completed", report.Completed),
		zap.Int("done", p.Done),
		zap.Int("total", p.Total),
		zap.Float64("progress_pct", p.Percent()))
}
