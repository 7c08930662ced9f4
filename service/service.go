package service

import (
	"fmt"

	"github.com/fulldump/lazytable/columns"
	"github.com/fulldump/lazytable/record"
	"github.com/fulldump/lazytable/view"
)

type Service struct {
	table *view.Table
}

func NewService(table *view.Table) *Service {
	return &Service{
		table: table,
	}
}

func (s *Service) GetTable() view.State {
	return s.table.State()
}

func (s *Service) RangeChanged(endIndex int) (view.State, error) {
	if endIndex < 0 {
		return view.State{}, fmt.Errorf("%w: endIndex must be >= 0, got %d", ErrorInvalidWindow, endIndex)
	}
	return s.table.RangeChanged(endIndex)
}

func (s *Service) LoadMore() (view.State, error) {
	return s.table.LoadMore()
}

func (s *Service) ListRows(skip, limit int) ([]map[string]any, error) {
	if skip < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: skip and limit must be >= 0", ErrorInvalidWindow)
	}
	return s.table.Rows(skip, limit)
}

func (s *Service) ListColumns() []columns.Column {
	return s.table.Columns()
}

func (s *Service) SetSelection(keys []string) []string {
	return s.table.SetSelection(keys)
}

func (s *Service) ToggleAll() []string {
	return s.table.ToggleAll()
}

func (s *Service) Find(filter map[string]any, skip, limit int) ([]record.Record, error) {
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must be >= 0", ErrorInvalidWindow)
	}
	return s.table.Find(filter, skip, limit)
}
