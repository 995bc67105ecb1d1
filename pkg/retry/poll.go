package retry

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

// Defaults for async-operation polling: 1s fixed interval with a hard ceiling
// of 300 attempts, roughly a five minute budget.
const (
	DefaultPollInterval = time.Second
	DefaultMaxAttempts  = 300
)

// ErrPollTimeout means the polling budget was exhausted before the operation
// completed. It is a client-side "gave up waiting", not an upstream failure.
var ErrPollTimeout = errors.New("polling budget exhausted before operation completed")

// PollConfig controls the fixed-interval poll loop
type PollConfig struct {
	Interval    string `toml:"interval"`     // delay between polls, default "1s"
	MaxAttempts int    `toml:"max_attempts"` // hard ceiling, default 300
}

// Validate checks poll configuration
func (c *PollConfig) Validate() error {
	if c.MaxAttempts < 0 {
		return errors.New("max_attempts must not be negative")
	}
	if c.Interval != "" {
		if _, err := time.ParseDuration(c.Interval); err != nil {
			return errors.New("interval is invalid: " + err.Error())
		}
	}
	return nil
}

func (c PollConfig) interval() time.Duration {
	if c.Interval == "" {
		return DefaultPollInterval
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

func (c PollConfig) maxAttempts() int {
	if c.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return c.MaxAttempts
}

// Poller re-fetches a long-running operation until it reports done. The delay
// between polls suspends only the calling goroutine; cancellation is observed
// through ctx at every wait.
type Poller struct {
	cfg   PollConfig
	clock clockwork.Clock
}

// NewPoller creates a Poller using the wall clock
func NewPoller(cfg PollConfig) *Poller {
	return NewPollerWithClock(cfg, clockwork.NewRealClock())
}

// NewPollerWithClock creates a Poller with an injected clock
func NewPollerWithClock(cfg PollConfig, clock clockwork.Clock) *Poller {
	return &Poller{cfg: cfg, clock: clock}
}

// Wait sleeps one interval then calls fetch, repeating until fetch reports
// done, fetch fails, ctx is cancelled, or MaxAttempts fetches have been made.
// Exhausting the budget returns ErrPollTimeout.
func (p *Poller) Wait(ctx context.Context, fetch func(context.Context) (bool, error)) error {
	interval := p.cfg.interval()
	maxAttempts := p.cfg.maxAttempts()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(interval):
		}

		done, err := fetch(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	return ErrPollTimeout
}
