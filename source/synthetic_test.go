package source

import (
	"context"
	"testing"

	"github.com/fulldump/biff"
)

func TestSynthetic_FetchPage(t *testing.T) {

	s := NewSynthetic(40)
	ctx := context.Background()

	for offset := 0; offset <= 45; offset += 5 {
		for _, limit := range []int{1, 7, 10, 30} {
			rows, err := s.FetchPage(ctx, offset, limit)
			biff.AssertNil(err)
			if len(rows) > limit {
				t.Fatalf("offset %d limit %d: got %d rows", offset, limit, len(rows))
			}
			for i, row := range rows {
				if row["id"] != int64(offset+i+1) {
					t.Fatalf("offset %d limit %d: unexpected id %v at %d", offset, limit, row["id"], i)
				}
			}
		}
	}

	rows, _ := s.FetchPage(ctx, 35, 10)
	biff.AssertEqual(len(rows), 5)
}

func TestSynthetic_Unbounded(t *testing.T) {

	s := NewSynthetic(-1)

	rows, err := s.FetchPage(context.Background(), 1000, 10)
	biff.AssertNil(err)
	biff.AssertEqual(len(rows), 10)
	biff.AssertEqual(s.Calls(), 1)
}
