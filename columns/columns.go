package columns

import (
	"sync"

	"github.com/fulldump/lazytable/record"
)

// Descriptor describes one column of the table. The set of descriptors is
// static for the lifetime of a table.
type Descriptor struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	Width       int    `json:"width,omitempty"`
	IsIndex     bool   `json:"isIndex,omitempty"`
}

func DefaultColumns() []Descriptor {
	return []Descriptor{
		{Key: "id", DisplayName: "ID", Width: 80, IsIndex: true},
		{Key: "title", DisplayName: "Title", Width: 240},
		{Key: "body", DisplayName: "Body"},
		{Key: "userId", DisplayName: "User", Width: 80},
	}
}

// Column is a descriptor with its current visibility.
type Column struct {
	Descriptor
	Visible bool `json:"visible"`
}

// Cell is a projected value. Value is nil when the record has no such field.
type Cell struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Selection keeps the set of visible column keys.
type Selection struct {
	all      []Descriptor
	mutex    sync.RWMutex
	selected map[string]bool
}

// NewSelection starts with every column visible.
func NewSelection(all []Descriptor) *Selection {
	s := &Selection{
		all: all,
	}
	s.selectAll()
	return s
}

func (s *Selection) selectAll() {
	s.selected = make(map[string]bool, len(s.all))
	for _, d := range s.all {
		s.selected[d.Key] = true
	}
}

// Reset makes every column visible again.
func (s *Selection) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.selectAll()
}

// ToggleAll clears the selection when every column is selected, otherwise it
// selects every column.
func (s *Selection) ToggleAll() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.selected) == len(s.all) {
		s.selected = map[string]bool{}
	} else {
		s.selectAll()
	}

	return s.keys()
}

// SetSelection replaces the selection with the given keys. Unknown keys and
// duplicates are ignored.
func (s *Selection) SetSelection(keys []string) []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	known := map[string]bool{}
	for _, d := range s.all {
		known[d.Key] = true
	}

	s.selected = map[string]bool{}
	for _, key := range keys {
		if known[key] {
			s.selected[key] = true
		}
	}

	return s.keys()
}

func (s *Selection) AllSelected() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.selected) == len(s.all)
}

// Keys returns the selected keys in column order.
func (s *Selection) Keys() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.keys()
}

func (s *Selection) keys() []string {
	result := make([]string, 0, len(s.selected))
	for _, d := range s.all {
		if s.selected[d.Key] {
			result = append(result, d.Key)
		}
	}
	return result
}

func (s *Selection) Columns() []Column {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]Column, len(s.all))
	for i, d := range s.all {
		result[i] = Column{Descriptor: d, Visible: s.selected[d.Key]}
	}
	return result
}

// Visible returns the selected descriptors in column order.
func (s *Selection) Visible() []Descriptor {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := []Descriptor{}
	for _, d := range s.all {
		if s.selected[d.Key] {
			result = append(result, d)
		}
	}
	return result
}

// Project returns the visible cells of r in column order.
func (s *Selection) Project(r record.Record) []Cell {
	visible := s.Visible()
	cells := make([]Cell, len(visible))
	for i, d := range visible {
		value, ok := r.Field(d.Key)
		if !ok {
			value = nil
		}
		cells[i] = Cell{Key: d.Key, Value: value}
	}
	return cells
}

// ProjectMap is Project keyed by column, handy for JSON output.
func (s *Selection) ProjectMap(r record.Record) map[string]any {
	result := map[string]any{}
	for _, cell := range s.Project(r) {
		result[cell.Key] = cell.Value
	}
	return result
}
