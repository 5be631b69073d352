package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"oddscrawler/src/browser"
)

var (
	// ErrBlocked means the suspicion threshold was reached and the
	// session has to stop.
	ErrBlocked = errors.New("too many block suspicions")
	// ErrRetryExhausted means a wait timed out again after its one retry.
	ErrRetryExhausted = errors.New("readiness wait timed out after retry")
	// ErrItemUnavailable lets a site skip an item whose page lacks what it
	// needs. The item gets an error recorded and the session moves on.
	ErrItemUnavailable = errors.New("item not available on page")
)

// Guard counts consecutive readiness timeouts. Any successful wait
// resets it.
type Guard struct {
	max   int
	count int
}

func NewGuard(max int) *Guard {
	return &Guard{max: max}
}

// Suspect records a timeout and reports whether the threshold is reached.
func (g *Guard) Suspect() bool {
	g.count++
	return g.count >= g.max
}

func (g *Guard) Reset() {
	g.count = 0
}

func (g *Guard) Count() int {
	return g.count
}

type Page interface {
	WaitPresent(selector string, timeout time.Duration) error
}

// Waiter runs bounded readiness waits for the site drivers. A timed out
// wait is retried once per sub-task after a backoff.
type Waiter struct {
	page     Page
	guard    *Guard
	timeout  time.Duration
	backoff  *Pacer
	log      *zap.Logger
	retried  bool
	timeouts int
}

func NewWaiter(page Page, guard *Guard, timeout time.Duration, backoff *Pacer, log *zap.Logger) *Waiter {
	return &Waiter{
		page:    page,
		guard:   guard,
		timeout: timeout,
		backoff: backoff,
		log:     log,
	}
}

// StartTask gives the waiter a fresh retry for the next sub-task.
func (w *Waiter) StartTask() {
	w.retried = false
}

func (w *Waiter) Timeouts() int {
	return w.timeouts
}

func (w *Waiter) Wait(ctx context.Context, selector string) error {
	for {
		err := w.page.WaitPresent(selector, w.timeout)
		if err == nil {
			w.guard.Reset()
			return nil
		}
		if !errors.Is(err, browser.ErrTimeout) {
			return err
		}

		w.timeouts++
		blocked := w.guard.Suspect()
		w.log.Warn("timeout waiting for selector",
			zap.String("selector", selector),
			zap.Int("block_suspicions", w.guard.Count()))

		if blocked {
			w.log.Error("too many block suspicions, stopping session")
			return ErrBlocked
		}

		d, err := w.backoff.Pause(ctx)
		if err != nil {
			return err
		}
		w.log.Info("backed off", zap.Duration("backoff", d))

		if w.retried {
			return ErrRetryExhausted
		}
		w.retried = true
	}
}
