package view

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fulldump/lazytable/cache"
	"github.com/fulldump/lazytable/columns"
	"github.com/fulldump/lazytable/database"
	"github.com/fulldump/lazytable/pagination"
	"github.com/fulldump/lazytable/record"
	"github.com/fulldump/lazytable/source"
	"github.com/fulldump/lazytable/transform"
)

const DefaultStoreName = "rows"

var ErrNotMounted = errors.New("table is not mounted")

type Options struct {
	// StoreName is the cache store used by this table.
	StoreName    string
	InitialPage  int
	PageSize     int
	Threshold    int
	TickInterval time.Duration
	// ResetOnMount wipes the cache every time the table is mounted. When
	// false, pages already cached are served without going remote.
	ResetOnMount bool
	Logger       *zap.Logger
}

type State struct {
	pagination.State
	Mounted       bool     `json:"mounted"`
	Columns       []string `json:"columns"`
	AllSelected   bool     `json:"allSelected"`
	CacheHits     int64    `json:"cacheHits"`
	RemoteFetches int64    `json:"remoteFetches"`
}

// Table is a headless lazily loaded table. It grows its rows page by page
// from a remote source while the client reports its visible range.
type Table struct {
	source  source.Source
	stage   *transform.Stage
	db      *database.Database
	columns *columns.Selection
	options Options
	logger  *zap.Logger

	mutex      sync.RWMutex
	mounted    bool
	store      cache.Store
	controller *pagination.Controller
	stopTicker context.CancelFunc
	group      *errgroup.Group

	cacheHits     atomic.Int64
	remoteFetches atomic.Int64
}

func NewTable(src source.Source, stage *transform.Stage, db *database.Database, descriptors []columns.Descriptor, options Options) *Table {

	if options.StoreName == "" {
		options.StoreName = DefaultStoreName
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if descriptors == nil {
		descriptors = columns.DefaultColumns()
	}

	return &Table{
		source:  src,
		stage:   stage,
		db:      db,
		columns: columns.NewSelection(descriptors),
		options: options,
		logger:  options.Logger,
	}
}

// Mount prepares the cache, resets the column selection and requests the
// initial page. Mounting a mounted table does nothing.
func (t *Table) Mount(ctx context.Context) error {

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.mounted {
		return nil
	}

	var store cache.Store
	var err error
	if t.options.ResetOnMount {
		store, err = t.db.Reset(t.options.StoreName)
	} else {
		store, err = t.db.Open(t.options.StoreName)
	}
	if err != nil {
		t.logger.Error("mount table", zap.String("store", t.options.StoreName), zap.Error(err))
		return err
	}

	t.store = store
	t.columns.Reset()
	t.cacheHits.Store(0)
	t.remoteFetches.Store(0)
	t.controller = pagination.New(t.loader(store), pagination.Options{
		InitialPage: t.options.InitialPage,
		PageSize:    t.options.PageSize,
		Threshold:   t.options.Threshold,
		Logger:      t.logger.Named("pagination"),
	})

	tickerCtx, stopTicker := context.WithCancel(ctx)
	t.stopTicker = stopTicker
	t.group, tickerCtx = errgroup.WithContext(tickerCtx)
	if t.options.TickInterval > 0 {
		controller := t.controller
		t.group.Go(func() error {
			controller.RunTicker(tickerCtx, t.options.TickInterval)
			return nil
		})
	}

	t.mounted = true
	t.controller.Start()

	t.logger.Info("table mounted",
		zap.String("store", t.options.StoreName),
		zap.Bool("reset", t.options.ResetOnMount),
	)

	return nil
}

// Unmount stops the ticker and discards any page in flight. Rows are
// dropped, the cache is kept.
func (t *Table) Unmount() error {

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.mounted {
		return nil
	}
	t.mounted = false

	t.stopTicker()
	err := t.group.Wait()
	t.controller.Close()
	t.controller = nil
	t.store = nil

	t.logger.Info("table unmounted")

	return err
}

func (t *Table) Mounted() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.mounted
}

// loader returns the pagination loader of a mount: cache first when the cache
// was kept, then remote source, transform stage and write back to the cache.
func (t *Table) loader(store cache.Store) pagination.Loader {
	return func(ctx context.Context, offset, limit int) ([]record.Record, error) {

		if !t.options.ResetOnMount {
			rows, err := store.GetRange(offset, limit)
			if err != nil {
				t.logger.Warn("read cache", zap.Int("offset", offset), zap.Error(err))
			} else if len(rows) == limit {
				t.cacheHits.Add(1)
				return rows, nil
			}
		}

		t.remoteFetches.Add(1)
		raws, err := t.source.FetchPage(ctx, offset, limit)
		if err != nil {
			return nil, err
		}

		rows, err := t.stage.Process(ctx, raws)
		if err != nil {
			return nil, err
		}

		// the cache is optional, a failing write must not lose the page
		err = store.Put(rows)
		if err != nil {
			t.logger.Error("write cache", zap.Int("offset", offset), zap.Int("rows", len(rows)), zap.Error(err))
		}

		return rows, nil
	}
}

func (t *Table) mountedController() (*pagination.Controller, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	if !t.mounted {
		return nil, ErrNotMounted
	}
	return t.controller, nil
}

// RangeChanged reports the index of the last visible row.
func (t *Table) RangeChanged(endIndex int) (State, error) {
	controller, err := t.mountedController()
	if err != nil {
		return State{}, err
	}
	controller.RangeChanged(endIndex)
	return t.State(), nil
}

// LoadMore requests the next page regardless of the visible range.
func (t *Table) LoadMore() (State, error) {
	controller, err := t.mountedController()
	if err != nil {
		return State{}, err
	}
	controller.Request(0)
	return t.State(), nil
}

// Wait blocks until no page is in flight.
func (t *Table) Wait() {
	controller, err := t.mountedController()
	if err != nil {
		return
	}
	controller.Wait()
}

func (t *Table) State() State {

	t.mutex.RLock()
	controller := t.controller
	mounted := t.mounted
	t.mutex.RUnlock()

	s := State{
		Mounted:       mounted,
		Columns:       t.columns.Keys(),
		AllSelected:   t.columns.AllSelected(),
		CacheHits:     t.cacheHits.Load(),
		RemoteFetches: t.remoteFetches.Load(),
	}
	if controller != nil {
		s.State = controller.State()
	}

	return s
}

// Rows returns the visible cells of up to limit loaded rows starting at skip.
func (t *Table) Rows(skip, limit int) ([]map[string]any, error) {
	controller, err := t.mountedController()
	if err != nil {
		return nil, err
	}

	rows := controller.Rows(skip, limit)
	result := make([]map[string]any, len(rows))
	for i, r := range rows {
		result[i] = t.columns.ProjectMap(r)
	}
	return result, nil
}

func (t *Table) Columns() []columns.Column {
	return t.columns.Columns()
}

func (t *Table) SetSelection(keys []string) []string {
	return t.columns.SetSelection(keys)
}

func (t *Table) ToggleAll() []string {
	return t.columns.ToggleAll()
}

// Find queries the cache behind the table.
func (t *Table) Find(filter map[string]any, skip, limit int) ([]record.Record, error) {
	t.mutex.RLock()
	store := t.store
	t.mutex.RUnlock()
	if store == nil {
		return nil, ErrNotMounted
	}
	return store.Find(filter, skip, limit)
}
