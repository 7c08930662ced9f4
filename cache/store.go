package cache

import (
	"github.com/fulldump/lazytable/record"
)

// Store is a durable key-value store of rows keyed by record id. Put and
// GetRange are each atomic with respect to each other.
type Store interface {
	// Put appends rows in order. A row whose id already exists replaces the
	// stored value and keeps its position.
	Put(rows []record.Record) error
	// GetRange returns up to limit rows starting at start, in insertion order.
	GetRange(start, limit int) ([]record.Record, error)
	// Find returns the rows matching a connor filter.
	Find(filter map[string]any, skip, limit int) ([]record.Record, error)
	Len() (int, error)
	// Clear removes every row.
	Clear() error
	Close() error
	// Drop closes the store and removes whatever it persisted.
	Drop() error
}

// StoreError wraps any failure opening or operating a store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
