package session

import (
	"context"
	"math/rand/v2"
	"time"
)

type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Uniform draws a duration in [min, max].
func Uniform(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int64N(int64(max-min)+1))
}

func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Pacer sleeps a random interval between Min and Max.
type Pacer struct {
	Min   time.Duration
	Max   time.Duration
	rng   *rand.Rand
	sleep SleepFunc
}

func NewPacer(rng *rand.Rand, sleep SleepFunc, min, max time.Duration) *Pacer {
	if sleep == nil {
		sleep = Sleep
	}
	return &Pacer{Min: min, Max: max, rng: rng, sleep: sleep}
}

// Pause sleeps and returns how long it slept.
func (p *Pacer) Pause(ctx context.Context) (time.Duration, error) {
	d := Uniform(p.rng, p.Min, p.Max)
	return d, p.sleep(ctx, d)
}
