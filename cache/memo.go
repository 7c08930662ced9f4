package cache

import (
	"encoding/json"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	ristretto "github.com/dgraph-io/ristretto/v2"

	"github.com/fulldump/lazytable/record"
)

// Memo keeps recent GetRange and Find results of a Store in memory. Any write
// drops every memoized result.
type Memo struct {
	Store

	// readers share, writers are exclusive so no stale result is memoized
	mutex sync.RWMutex
	cache *ristretto.Cache[uint64, []record.Record]
}

// NewMemo wraps s keeping at most maxRows memoized rows.
func NewMemo(s Store, maxRows int64) (*Memo, error) {

	cache, err := ristretto.NewCache(&ristretto.Config[uint64, []record.Record]{
		NumCounters:        max(maxRows*10, 1000),
		MaxCost:            maxRows,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, storeError("open", err)
	}

	return &Memo{
		Store: s,
		cache: cache,
	}, nil
}

// memoKey hashes an operation and its arguments. encoding/json sorts map keys
// so equal filters hash equal.
func memoKey(op string, args ...any) (uint64, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return 0, err
	}
	h := xxhash.New()
	h.WriteString(op)
	h.Write(b)
	return h.Sum64(), nil
}

func (m *Memo) remember(key uint64, load func() ([]record.Record, error)) ([]record.Record, error) {

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rows, found := m.cache.Get(key)
	if found {
		return slices.Clone(rows), nil
	}

	rows, err := load()
	if err != nil {
		return nil, err
	}

	m.cache.Set(key, slices.Clone(rows), int64(len(rows))+1)
	m.cache.Wait()

	return rows, nil
}

func (m *Memo) GetRange(start, limit int) ([]record.Record, error) {
	key, err := memoKey("range", start, limit)
	if err != nil {
		return m.Store.GetRange(start, limit)
	}
	return m.remember(key, func() ([]record.Record, error) {
		return m.Store.GetRange(start, limit)
	})
}

func (m *Memo) Find(filter map[string]any, skip, limit int) ([]record.Record, error) {
	key, err := memoKey("find", filter, skip, limit)
	if err != nil {
		return m.Store.Find(filter, skip, limit)
	}
	return m.remember(key, func() ([]record.Record, error) {
		return m.Store.Find(filter, skip, limit)
	})
}

func (m *Memo) Put(rows []record.Record) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	defer m.cache.Clear()
	return m.Store.Put(rows)
}

func (m *Memo) Clear() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	defer m.cache.Clear()
	return m.Store.Clear()
}

func (m *Memo) Close() error {
	m.cache.Close()
	return m.Store.Close()
}

func (m *Memo) Drop() error {
	m.cache.Close()
	return m.Store.Drop()
}
