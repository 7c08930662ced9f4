package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	memdb "github.com/hashicorp/go-memdb"

	"github.com/fulldump/lazytable/record"
)

const memoryTable = "rows"

var ErrStoreClosed = errors.New("store closed")

// memoryRow is the object kept in memdb. Seq is zero padded so the radix
// order of the seq index is the insertion order.
type memoryRow struct {
	ID      int64
	Seq     string
	Payload []byte
}

func memorySchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			memoryTable: {
				Name: memoryTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					"seq": {
						Name:    "seq",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Seq"},
					},
				},
			},
		},
	}
}

// Memory is a Store that lives only in process memory. Nothing survives a
// restart.
type Memory struct {
	db     *memdb.MemDB
	next   int64 // only touched inside write transactions
	closed atomic.Bool
}

func NewMemory() (*Memory, error) {
	db, err := memdb.NewMemDB(memorySchema())
	if err != nil {
		return nil, storeError("open", err)
	}
	return &Memory{db: db}, nil
}

func (m *Memory) check(op string) error {
	if m.closed.Load() {
		return storeError(op, ErrStoreClosed)
	}
	return nil
}

func (m *Memory) Put(rows []record.Record) error {

	if err := m.check("put"); err != nil {
		return err
	}

	txn := m.db.Txn(true)
	defer txn.Abort()

	next := m.next
	for _, r := range rows {
		payload, err := json.Marshal(r)
		if err != nil {
			return storeError("put", fmt.Errorf("json encode payload: %w", err))
		}

		row := &memoryRow{ID: r.ID, Payload: payload}

		existing, err := txn.First(memoryTable, "id", r.ID)
		if err != nil {
			return storeError("put", err)
		}
		if existing != nil {
			row.Seq = existing.(*memoryRow).Seq
		} else {
			next++
			row.Seq = fmt.Sprintf("%020d", next)
		}

		err = txn.Insert(memoryTable, row)
		if err != nil {
			return storeError("put", fmt.Errorf("failed to put row %d: %w", r.ID, err))
		}
	}

	m.next = next
	txn.Commit()

	return nil
}

// scan yields every payload in insertion order until f returns false.
func (m *Memory) scan(f func(payload []byte) (bool, error)) error {

	txn := m.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(memoryTable, "seq_prefix", "")
	if err != nil {
		return err
	}

	for obj := it.Next(); obj != nil; obj = it.Next() {
		next, err := f(obj.(*memoryRow).Payload)
		if err != nil {
			return err
		}
		if !next {
			return nil
		}
	}

	return nil
}

func (m *Memory) GetRange(start, limit int) ([]record.Record, error) {

	if err := m.check("get range"); err != nil {
		return nil, err
	}
	if start < 0 || limit <= 0 {
		return nil, storeError("get range", fmt.Errorf("bad range start=%d limit=%d", start, limit))
	}

	result := []record.Record{}
	i := 0
	err := m.scan(func(payload []byte) (bool, error) {
		defer func() { i++ }()
		if i < start {
			return true, nil
		}
		r := record.Record{}
		if err := json.Unmarshal(payload, &r); err != nil {
			return false, err
		}
		result = append(result, r)
		return len(result) < limit, nil
	})
	if err != nil {
		return nil, storeError("get range", err)
	}

	return result, nil
}

func (m *Memory) Find(filter map[string]any, skip, limit int) ([]record.Record, error) {
	if err := m.check("find"); err != nil {
		return nil, err
	}
	return findPayloads(filter, skip, limit, m.scan)
}

func (m *Memory) Len() (int, error) {
	if err := m.check("len"); err != nil {
		return 0, err
	}
	n := 0
	err := m.scan(func(payload []byte) (bool, error) {
		n++
		return true, nil
	})
	return n, storeError("len", err)
}

func (m *Memory) Clear() error {

	if err := m.check("clear"); err != nil {
		return err
	}

	txn := m.db.Txn(true)
	defer txn.Abort()

	_, err := txn.DeleteAll(memoryTable, "seq_prefix", "")
	if err != nil {
		return storeError("clear", err)
	}

	m.next = 0
	txn.Commit()

	return nil
}

func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}

// Drop closes the store. There is nothing to remove.
func (m *Memory) Drop() error {
	return m.Close()
}
