package cache

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func Environment(f func(fs afero.Fs, filename string)) {
	f(afero.NewMemMapFs(), "rows.jsonl")
}

// stores yields every backend, freshly opened.
func stores(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"jsonl": func() Store {
			c, err := OpenCollection(afero.NewMemMapFs(), "rows.jsonl")
			if err != nil {
				t.Fatalf("open collection: %v", err)
			}
			t.Cleanup(func() { c.Close() })
			return c
		},
		"memory": func() Store {
			m, err := NewMemory()
			if err != nil {
				t.Fatalf("open memory: %v", err)
			}
			t.Cleanup(func() { m.Close() })
			return m
		},
		"memo": func() Store {
			c, err := OpenCollection(afero.NewMemMapFs(), "rows.jsonl")
			if err != nil {
				t.Fatalf("open collection: %v", err)
			}
			m, err := NewMemo(c, 1000)
			if err != nil {
				t.Fatalf("open memo: %v", err)
			}
			t.Cleanup(func() { m.Close() })
			return m
		},
		"sqlite": func() Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "rows.sqlite"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}
