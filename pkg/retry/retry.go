package retry

import (
	"context"
	"errors"
	"time"

	"github.com/eapache/go-resiliency/retrier"
)

// Defaults for remote call retries
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// Config controls the bounded retry policy
type Config struct {
	MaxRetries int    `toml:"max_retries"` // retries after the first attempt, default 3
	BaseDelay  string `toml:"base_delay"`  // first backoff delay, default "1s"
}

// Validate checks retry configuration
func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max_retries must not be negative")
	}
	if c.BaseDelay != "" {
		if _, err := time.ParseDuration(c.BaseDelay); err != nil {
			return errors.New("base_delay is invalid: " + err.Error())
		}
	}
	return nil
}

func (c Config) maxRetries() int {
	if c.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return c.MaxRetries
}

func (c Config) baseDelay() time.Duration {
	if c.BaseDelay == "" {
		return DefaultBaseDelay
	}
	d, err := time.ParseDuration(c.BaseDelay)
	if err != nil || d <= 0 {
		return DefaultBaseDelay
	}
	return d
}

// statusCoder is implemented by errors carrying an upstream HTTP status
type statusCoder interface {
	UpstreamStatus() int
}

// transientClassifier retries only upstream 429/500/503; everything else
// (including malformed input and 4xx auth failures) fails immediately.
type transientClassifier struct{}

func (transientClassifier) Classify(err error) retrier.Action {
	if err == nil {
		return retrier.Succeed
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch sc.UpstreamStatus() {
		case 429, 500, 503:
			return retrier.Retry
		}
	}

	return retrier.Fail
}

// Executor wraps remote calls with bounded exponential-backoff retries.
// Delays follow baseDelay x 2^attempt with no jitter; after MaxRetries
// retries the last error is returned unchanged.
type Executor struct {
	cfg Config
}

// New creates an Executor with the given config
func New(cfg Config) *Executor {
	return &Executor{cfg: cfg}
}

// Do runs fn, retrying transient upstream failures
func (e *Executor) Do(ctx context.Context, fn func(context.Context) error) error {
	r := retrier.New(
		retrier.ExponentialBackoff(e.cfg.maxRetries(), e.cfg.baseDelay()),
		transientClassifier{},
	)
	return r.RunCtx(ctx, fn)
}
