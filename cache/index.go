package cache

import (
	"github.com/google/btree"
)

// IndexID keeps rows ordered by record id.
type IndexID struct {
	Btree *btree.BTreeG[*Row]
}

func NewIndexID() *IndexID {
	return &IndexID{
		Btree: btree.NewG(32, func(a, b *Row) bool {
			return a.ID < b.ID
		}),
	}
}

func (i *IndexID) Get(id int64) (*Row, bool) {
	return i.Btree.Get(&Row{ID: id})
}

func (i *IndexID) AddRow(r *Row) {
	i.Btree.ReplaceOrInsert(r)
}

func (i *IndexID) Clear() {
	i.Btree.Clear(false)
}
