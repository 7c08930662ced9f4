package pagination

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fulldump/lazytable/record"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"
	PhaseExhausted Phase = "exhausted"
)

const (
	DefaultInitialPage = 30
	DefaultPageSize    = 10
	DefaultThreshold   = 5
)

// Loader returns up to limit records starting at offset.
type Loader func(ctx context.Context, offset, limit int) ([]record.Record, error)

type Options struct {
	InitialPage int
	PageSize    int
	// Threshold is how close, in rows, the end of the visible window must be
	// to the end of the loaded rows to request more.
	Threshold int
	Logger    *zap.Logger
}

type State struct {
	Phase       Phase  `json:"phase"`
	LoadedCount int    `json:"loadedCount"`
	TotalKnown  *int   `json:"totalKnown"`
	IsLoading   bool   `json:"isLoading"`
	HasMore     bool   `json:"hasMore"`
	LastError   string `json:"lastError,omitempty"`
	Requests    int    `json:"requests"`
}

// Controller grows an append only collection one page at a time. At most one
// load is in flight; requests made meanwhile are dropped.
type Controller struct {
	loader  Loader
	options Options
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mutex     sync.Mutex
	phase     Phase
	rows      []record.Record
	lastError error
	requests  int

	inflight sync.WaitGroup
}

func New(loader Loader, options Options) *Controller {

	if options.InitialPage <= 0 {
		options.InitialPage = DefaultInitialPage
	}
	if options.PageSize <= 0 {
		options.PageSize = DefaultPageSize
	}
	if options.Threshold <= 0 {
		options.Threshold = DefaultThreshold
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		loader:  loader,
		options: options,
		logger:  options.Logger,
		ctx:     ctx,
		cancel:  cancel,
		phase:   PhaseIdle,
		rows:    []record.Record{},
	}
}

// Start requests the initial page.
func (c *Controller) Start() bool {
	return c.Request(c.options.InitialPage)
}

// Request starts loading limit more rows. It returns false, without doing
// anything, when a load is already in flight, the collection is exhausted or
// the controller is closed.
func (c *Controller) Request(limit int) bool {

	if limit <= 0 {
		limit = c.options.PageSize
	}

	c.mutex.Lock()
	if c.phase != PhaseIdle || c.ctx.Err() != nil {
		c.mutex.Unlock()
		return false
	}
	c.phase = PhaseLoading
	offset := len(c.rows)
	c.requests++
	c.inflight.Add(1)
	c.mutex.Unlock()

	go c.load(offset, limit)

	return true
}

func (c *Controller) load(offset, limit int) {
	defer c.inflight.Done()

	rows, err := c.loader(c.ctx, offset, limit)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.ctx.Err() != nil {
		c.logger.Debug("discarding page after close", zap.Int("offset", offset), zap.Int("rows", len(rows)))
		return
	}

	if err != nil {
		c.phase = PhaseIdle
		c.lastError = err
		c.logger.Error("load page",
			zap.Int("offset", offset),
			zap.Int("limit", limit),
			zap.Error(err),
		)
		return
	}

	c.lastError = nil
	c.rows = append(c.rows, rows...)

	if len(rows) < limit {
		c.phase = PhaseExhausted
		c.logger.Info("collection exhausted", zap.Int("loaded", len(c.rows)))
		return
	}

	c.phase = PhaseIdle
}

// RangeChanged is called with the index of the last visible row. It requests
// a page when that row is within Threshold rows of the end of what is loaded.
func (c *Controller) RangeChanged(endIndex int) bool {

	c.mutex.Lock()
	remaining := len(c.rows) - endIndex
	c.mutex.Unlock()

	if remaining > c.options.Threshold {
		return false
	}

	return c.Request(c.options.PageSize)
}

// RunTicker requests a page every interval until ctx is done or the
// controller is closed.
func (c *Controller) RunTicker(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Request(c.options.PageSize)
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		}
	}
}

// Wait blocks until no load is in flight.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Close cancels any load in flight and discards its result.
func (c *Controller) Close() {
	c.mutex.Lock()
	c.cancel()
	c.mutex.Unlock()
	c.inflight.Wait()
}

func (c *Controller) State() State {

	c.mutex.Lock()
	defer c.mutex.Unlock()

	s := State{
		Phase:       c.phase,
		LoadedCount: len(c.rows),
		IsLoading:   c.phase == PhaseLoading,
		HasMore:     c.phase != PhaseExhausted,
		Requests:    c.requests,
	}
	if c.phase == PhaseExhausted {
		total := len(c.rows)
		s.TotalKnown = &total
	}
	if c.lastError != nil {
		s.LastError = c.lastError.Error()
	}

	return s
}

// Rows returns a copy of up to limit rows starting at start. A limit <= 0
// means every row from start.
func (c *Controller) Rows(start, limit int) []record.Record {

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if start < 0 {
		start = 0
	}
	if start >= len(c.rows) {
		return []record.Record{}
	}

	end := len(c.rows)
	if limit > 0 && limit < end-start {
		end = start + limit
	}

	result := make([]record.Record, end-start)
	copy(result, c.rows[start:end])
	return result
}
