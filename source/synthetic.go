package source

import (
	"context"
	"sync/atomic"

	"github.com/fulldump/lazytable/record"
)

// Synthetic serves a generated collection of Total records. A negative Total
// never runs out.
type Synthetic struct {
	Total int

	calls atomic.Int64
}

func NewSynthetic(total int) *Synthetic {
	return &Synthetic{Total: total}
}

// Calls is the number of FetchPage invocations so far.
func (s *Synthetic) Calls() int {
	return int(s.calls.Load())
}

func (s *Synthetic) FetchPage(ctx context.Context, offset, limit int) ([]record.Raw, error) {

	s.calls.Add(1)

	if err := checkWindow(offset, limit); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := limit
	if s.Total >= 0 {
		n = min(limit, s.Total-offset)
	}

	rows := make([]record.Raw, 0, max(n, 0))
	for _, r := range record.Generate(offset, n) {
		rows = append(rows, r.Raw())
	}

	return rows, nil
}
