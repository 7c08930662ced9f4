package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/SierraSoftworks/connor"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/fulldump/lazytable/record"
)

// Collection is a Store persisted as an append only log of commands in a
// JSON lines file. The log is replayed into memory on open.
type Collection struct {
	fs        afero.Fs
	filename  string // Just informative...
	file      afero.File
	Rows      []*Row
	rowsMutex *sync.RWMutex
	index     *IndexID
}

type Row struct {
	I       int // position in Rows
	ID      int64
	Payload json.RawMessage
}

func OpenCollection(fs afero.Fs, filename string) (*Collection, error) {

	f, err := fs.OpenFile(filename, os.O_RDONLY|os.O_CREATE, 0666)
	if err != nil {
		return nil, storeError("open", fmt.Errorf("open file for read: %w", err))
	}
	defer f.Close()

	collection := &Collection{
		fs:        fs,
		filename:  filename,
		Rows:      []*Row{},
		rowsMutex: &sync.RWMutex{},
		index:     NewIndexID(),
	}

	j := json.NewDecoder(f)
	for {
		command := &Command{}
		err := j.Decode(&command)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, storeError("open", fmt.Errorf("decode json: %w", err))
		}

		switch command.Name {
		case CommandPut:
			_, err := collection.addRow(command.Payload)
			if err != nil {
				return nil, storeError("open", err)
			}
		case CommandPatch:
			params := &patchPayload{}
			err := json.Unmarshal(command.Payload, params)
			if err != nil {
				return nil, storeError("open", fmt.Errorf("decode patch: %w", err))
			}
			if params.I < 0 || params.I >= len(collection.Rows) {
				return nil, storeError("open", fmt.Errorf("patch row %d does not exist", params.I))
			}
			err = collection.patchRow(collection.Rows[params.I], params.Diff)
			if err != nil {
				return nil, storeError("open", err)
			}
		case CommandClear:
			collection.reset()
		}
	}

	// Open file for append only
	collection.file, err = fs.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
	if err != nil {
		return nil, storeError("open", fmt.Errorf("open file for write: %w", err))
	}

	return collection, nil
}

func rowID(payload json.RawMessage) (int64, error) {
	item := struct {
		ID *int64 `json:"id"`
	}{}
	err := json.Unmarshal(payload, &item)
	if err != nil {
		return 0, fmt.Errorf("unmarshal: %w", err)
	}
	if item.ID == nil {
		return 0, errors.New("field `id` is mandatory")
	}
	return *item.ID, nil
}

// addRow must be called with rowsMutex held (or during replay).
func (c *Collection) addRow(payload json.RawMessage) (*Row, error) {

	id, err := rowID(payload)
	if err != nil {
		return nil, err
	}

	row := &Row{
		I:       len(c.Rows),
		ID:      id,
		Payload: payload,
	}
	c.Rows = append(c.Rows, row)
	c.index.AddRow(row)

	return row, nil
}

func (c *Collection) patchRow(row *Row, diff json.RawMessage) error {
	newPayload, err := jsonpatch.MergePatch(row.Payload, diff)
	if err != nil {
		return fmt.Errorf("cannot apply patch: %w", err)
	}
	row.Payload = newPayload
	return nil
}

func (c *Collection) reset() {
	c.Rows = []*Row{}
	c.index.Clear()
}

func (c *Collection) persist(name string, payload json.RawMessage) error {
	command := &Command{
		Name:      name,
		Uuid:      uuid.New().String(),
		Timestamp: time.Now().UnixNano(),
		Payload:   payload,
	}

	err := json.NewEncoder(c.file).Encode(command)
	if err != nil {
		return fmt.Errorf("json encode command: %w", err)
	}

	return nil
}

// Put writes each command to the log before touching memory, so a failed
// write leaves rows, positions and index as they were.
func (c *Collection) Put(rows []record.Record) error {

	c.rowsMutex.Lock()
	defer c.rowsMutex.Unlock()

	if c.file == nil {
		return storeError("put", errors.New("collection is closed"))
	}

	for _, r := range rows {
		payload, err := json.Marshal(r)
		if err != nil {
			return storeError("put", fmt.Errorf("json encode payload: %w", err))
		}

		existing, exists := c.index.Get(r.ID)
		if !exists {
			err = c.persist(CommandPut, payload)
			if err != nil {
				return storeError("put", err)
			}
			_, err = c.addRow(payload)
			if err != nil {
				return storeError("put", err)
			}
			continue
		}

		diff, err := jsonpatch.CreateMergePatch(existing.Payload, payload)
		if err != nil {
			return storeError("put", fmt.Errorf("cannot diff: %w", err))
		}
		if string(diff) == "{}" {
			continue
		}
		patch, err := json.Marshal(patchPayload{I: existing.I, Diff: diff})
		if err != nil {
			return storeError("put", err)
		}
		err = c.persist(CommandPatch, patch)
		if err != nil {
			return storeError("put", err)
		}
		err = c.patchRow(existing, diff)
		if err != nil {
			return storeError("put", err)
		}
	}

	return nil
}

// TraverseRange visits up to limit rows starting at position from. A limit
// <= 0 means no upper bound. Scans from the first row.
func (c *Collection) TraverseRange(from, limit int, f func(row *Row)) {
	visited := 0
	for i, row := range c.Rows {
		if i < from {
			continue
		}
		if limit > 0 && visited >= limit {
			break
		}
		f(row)
		visited++
	}
}

func (c *Collection) GetRange(start, limit int) ([]record.Record, error) {

	if start < 0 || limit <= 0 {
		return nil, storeError("get range", fmt.Errorf("bad range start=%d limit=%d", start, limit))
	}

	c.rowsMutex.RLock()
	defer c.rowsMutex.RUnlock()

	result := []record.Record{}
	var err error
	c.TraverseRange(start, limit, func(row *Row) {
		if err != nil {
			return
		}
		r := record.Record{}
		err = json.Unmarshal(row.Payload, &r)
		result = append(result, r)
	})
	if err != nil {
		return nil, storeError("get range", err)
	}

	return result, nil
}

func (c *Collection) Find(filter map[string]any, skip, limit int) ([]record.Record, error) {

	c.rowsMutex.RLock()
	defer c.rowsMutex.RUnlock()

	return findPayloads(filter, skip, limit, func(f func(payload []byte) (bool, error)) error {
		for _, row := range c.Rows {
			next, err := f(row.Payload)
			if err != nil || !next {
				return err
			}
		}
		return nil
	})
}

// findPayloads applies a connor filter over the payloads yielded by each.
func findPayloads(filter map[string]any, skip, limit int, each func(f func(payload []byte) (bool, error)) error) ([]record.Record, error) {

	hasFilter := len(filter) > 0

	result := []record.Record{}
	err := each(func(payload []byte) (bool, error) {
		if limit == 0 {
			return false, nil
		}

		if hasFilter {
			rowData := map[string]any{}
			err := json.Unmarshal(payload, &rowData)
			if err != nil {
				return false, err
			}
			match, err := connor.Match(filter, rowData)
			if err != nil {
				return false, fmt.Errorf("match: %w", err)
			}
			if !match {
				return true, nil
			}
		}

		if skip > 0 {
			skip--
			return true, nil
		}

		r := record.Record{}
		err := json.Unmarshal(payload, &r)
		if err != nil {
			return false, err
		}
		result = append(result, r)
		limit--
		return true, nil
	})
	if err != nil {
		return nil, storeError("find", err)
	}

	return result, nil
}

func (c *Collection) Len() (int, error) {
	c.rowsMutex.RLock()
	defer c.rowsMutex.RUnlock()
	return len(c.Rows), nil
}

func (c *Collection) Clear() error {

	c.rowsMutex.Lock()
	defer c.rowsMutex.Unlock()

	if c.file == nil {
		return storeError("clear", errors.New("collection is closed"))
	}

	c.reset()

	return storeError("clear", c.persist(CommandClear, nil))
}

func (c *Collection) Close() error {
	c.rowsMutex.Lock()
	defer c.rowsMutex.Unlock()

	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return storeError("close", err)
}

func (c *Collection) Drop() error {
	err := c.Close()
	if err != nil {
		return err
	}

	err = c.fs.Remove(c.filename)
	if err != nil {
		return storeError("drop", err)
	}

	return nil
}
