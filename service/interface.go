package service

import (
	"github.com/fulldump/lazytable/columns"
	"github.com/fulldump/lazytable/record"
	"github.com/fulldump/lazytable/source"
	"github.com/fulldump/lazytable/view"
)

var ErrorInvalidWindow = source.ErrInvalidWindow

type Servicer interface {
	GetTable() view.State
	RangeChanged(endIndex int) (view.State, error)
	LoadMore() (view.State, error)
	ListRows(skip, limit int) ([]map[string]any, error)
	ListColumns() []columns.Column
	SetSelection(keys []string) []string
	ToggleAll() []string
	Find(filter map[string]any, skip, limit int) ([]record.Record, error)
}
