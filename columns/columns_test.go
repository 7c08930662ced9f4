package columns

import (
	"testing"

	. "github.com/fulldump/biff"

	"github.com/fulldump/lazytable/record"
)

func TestSelection(t *testing.T) {

	Alternative("Selection", func(a *A) {

		s := NewSelection(DefaultColumns())

		a.Alternative("Everything selected at start", func(a *A) {
			AssertTrue(s.AllSelected())
			AssertEqual(s.Keys(), []string{"id", "title", "body", "userId"})
		})

		a.Alternative("Toggle all from all", func(a *A) {
			AssertEqual(s.ToggleAll(), []string{})
			AssertFalse(s.AllSelected())

			a.Alternative("Toggle back", func(a *A) {
				AssertEqual(s.ToggleAll(), []string{"id", "title", "body", "userId"})
				AssertTrue(s.AllSelected())
			})
		})

		a.Alternative("Toggle all from partial selects everything", func(a *A) {
			s.SetSelection([]string{"title"})
			s.ToggleAll()
			AssertTrue(s.AllSelected())
		})

		a.Alternative("Set selection", func(a *A) {
			keys := s.SetSelection([]string{"body", "unknown", "id", "body"})
			AssertEqual(keys, []string{"id", "body"})
			AssertFalse(s.AllSelected())

			a.Alternative("Project", func(a *A) {
				r := record.Record{ID: 3, Title: "t", Body: "b", UserID: 1}
				AssertEqual(s.Project(r), []Cell{
					{Key: "id", Value: int64(3)},
					{Key: "body", Value: "b"},
				})
			})

			a.Alternative("Columns", func(a *A) {
				columns := s.Columns()
				AssertEqual(len(columns), 4)
				AssertTrue(columns[0].Visible)
				AssertFalse(columns[1].Visible)
				AssertTrue(columns[2].Visible)
				AssertFalse(columns[3].Visible)
			})

			a.Alternative("Reset", func(a *A) {
				s.Reset()
				AssertTrue(s.AllSelected())
			})
		})

		a.Alternative("Set full selection", func(a *A) {
			s.SetSelection([]string{"userId", "body", "title", "id"})
			AssertTrue(s.AllSelected())
		})

		a.Alternative("Empty selection yields empty rows", func(a *A) {
			s.SetSelection(nil)
			AssertEqual(s.Project(record.Record{ID: 1}), []Cell{})
			AssertEqual(s.ProjectMap(record.Record{ID: 1}), map[string]any{})
		})

		a.Alternative("Missing field projects nil", func(a *A) {
			cols := NewSelection(append(DefaultColumns(), Descriptor{Key: "extraField"}))
			cells := cols.Project(record.Record{ID: 1})
			AssertEqual(cells[4], Cell{Key: "extraField", Value: nil})
		})
	})
}
