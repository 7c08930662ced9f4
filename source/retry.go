package source

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fulldump/lazytable/record"
)

// Retry wraps a Source and retries failed fetches with exponential backoff.
type Retry struct {
	Source   Source
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
	Logger   *zap.Logger
}

func NewRetry(s Source, attempts int, delay time.Duration, logger *zap.Logger) *Retry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retry{
		Source:   s,
		Attempts: attempts,
		Delay:    delay,
		MaxDelay: 30 * time.Second,
		Logger:   logger,
	}
}

func (r *Retry) FetchPage(ctx context.Context, offset, limit int) ([]record.Raw, error) {

	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	delay := r.Delay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var rows []record.Raw
		rows, err = r.Source.FetchPage(ctx, offset, limit)
		if err == nil {
			return rows, nil
		}

		transportErr := &TransportError{}
		if !errors.As(err, &transportErr) || attempt == attempts {
			break
		}

		r.Logger.Warn("fetch page failed, retrying",
			zap.Int("offset", offset),
			zap.Int("limit", limit),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}

		delay *= 2
		if r.MaxDelay > 0 && delay > r.MaxDelay {
			delay = r.MaxDelay
		}
	}

	return nil, err
}
