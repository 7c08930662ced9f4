package database

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/fulldump/lazytable/cache"
)

const (
	StatusOpening   = "opening"
	StatusOperating = "operating"
	StatusClosing   = "closing"
)

const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	Dir     string
	Backend string
	// MemoRows bounds the rows memoized in front of every store, 0 disables
	// memoization.
	MemoRows int64
	Fs       afero.Fs
	Logger   *zap.Logger
}

// Database owns the cache stores living in Dir. Opening a store is
// idempotent and concurrent opens of the same name are serialized.
type Database struct {
	config      *Config
	statusMutex sync.RWMutex
	status      string
	storesMutex sync.Mutex
	stores      map[string]cache.Store
	exit        chan struct{}
	exitOnce    sync.Once
}

func NewDatabase(config *Config) *Database {
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Backend == "" {
		config.Backend = BackendJSONL
	}

	return &Database{
		config: config,
		status: StatusOpening,
		stores: map[string]cache.Store{},
		exit:   make(chan struct{}),
	}
}

func (db *Database) GetStatus() string {
	db.statusMutex.RLock()
	defer db.statusMutex.RUnlock()
	return db.status
}

func (db *Database) setStatus(status string) {
	db.statusMutex.Lock()
	db.status = status
	db.statusMutex.Unlock()
}

func (db *Database) filename(name string) string {
	switch db.config.Backend {
	case BackendSQLite:
		return path.Join(db.config.Dir, name+".sqlite")
	default:
		return path.Join(db.config.Dir, name+".jsonl")
	}
}

func (db *Database) openStore(name string) (cache.Store, error) {

	var s cache.Store
	var err error

	filename := db.filename(name)
	switch db.config.Backend {
	case BackendJSONL:
		s, err = cache.OpenCollection(db.config.Fs, filename)
	case BackendSQLite:
		s, err = cache.OpenSQLite(filename)
	case BackendMemory:
		s, err = cache.NewMemory()
	default:
		err = &cache.StoreError{Op: "open", Err: fmt.Errorf("unknown backend '%s'", db.config.Backend)}
	}
	if err != nil {
		return nil, err
	}

	if db.config.MemoRows > 0 {
		memo, err := cache.NewMemo(s, db.config.MemoRows)
		if err != nil {
			s.Close()
			return nil, err
		}
		s = memo
	}

	return s, nil
}

func (db *Database) removeFile(name string) error {
	switch db.config.Backend {
	case BackendMemory:
		return nil
	case BackendSQLite:
		// sqlite works on the os file system
		return os.Remove(db.filename(name))
	}
	return db.config.Fs.Remove(db.filename(name))
}

// Open returns the store called name, creating it on first use.
func (db *Database) Open(name string) (cache.Store, error) {

	db.storesMutex.Lock()
	defer db.storesMutex.Unlock()

	if db.GetStatus() == StatusClosing {
		return nil, &cache.StoreError{Op: "open", Err: errors.New("database is closing")}
	}

	s, exists := db.stores[name]
	if exists {
		return s, nil
	}

	s, err := db.openStore(name)
	if err != nil {
		return nil, err
	}
	db.config.Logger.Info("store opened", zap.String("name", name), zap.String("backend", db.config.Backend))

	db.stores[name] = s

	return s, nil
}

// Reset wipes the store called name and opens it again, empty. An open store
// drops itself; otherwise whatever a previous run left on disk is removed.
func (db *Database) Reset(name string) (cache.Store, error) {

	db.storesMutex.Lock()
	defer db.storesMutex.Unlock()

	var err error
	s, exists := db.stores[name]
	if exists {
		delete(db.stores, name)
		err = s.Drop()
	} else {
		err = db.removeFile(name)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &cache.StoreError{Op: "reset", Err: err}
	}
	db.config.Logger.Info("store reset", zap.String("name", name))

	s, err = db.openStore(name)
	if err != nil {
		return nil, err
	}
	db.stores[name] = s

	return s, nil
}

func (db *Database) Load() error {

	db.config.Logger.Info("loading database", zap.String("dir", db.config.Dir), zap.String("backend", db.config.Backend))
	err := db.config.Fs.MkdirAll(db.config.Dir, 0755)
	if err != nil {
		db.setStatus(StatusClosing)
		return &cache.StoreError{Op: "load", Err: err}
	}

	db.setStatus(StatusOperating)

	return nil
}

// Start loads the database unless already loaded and blocks until Stop.
func (db *Database) Start() error {

	if db.GetStatus() == StatusOpening {
		err := db.Load()
		if err != nil {
			return err
		}
	}

	<-db.exit

	return nil
}

func (db *Database) Stop() error {

	defer db.exitOnce.Do(func() {
		close(db.exit)
	})

	db.setStatus(StatusClosing)

	db.storesMutex.Lock()
	defer db.storesMutex.Unlock()

	var lastErr error
	for name, s := range db.stores {
		db.config.Logger.Info("closing store", zap.String("name", name))
		err := s.Close()
		if err != nil {
			db.config.Logger.Error("close store", zap.String("name", name), zap.Error(err))
			lastErr = err
		}
	}
	db.stores = map[string]cache.Store{}

	return lastErr
}
