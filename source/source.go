package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulldump/lazytable/record"
)

// Source returns pages of a remote collection.
type Source interface {
	// FetchPage returns at most limit records starting at offset, in
	// collection order.
	FetchPage(ctx context.Context, offset, limit int) ([]record.Raw, error)
}

// TransportError means the remote call did not complete.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	s := "transport: " + e.Op + " " + e.URL
	if e.StatusCode != 0 {
		s += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

var ErrInvalidWindow = errors.New("invalid window")

func checkWindow(offset, limit int) error {
	if offset < 0 {
		return fmt.Errorf("%w: offset must be non-negative, got %d", ErrInvalidWindow, offset)
	}
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidWindow, limit)
	}
	return nil
}
