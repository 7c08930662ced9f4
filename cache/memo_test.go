package cache

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulldump/lazytable/record"
)

type countingStore struct {
	Store
	ranges atomic.Int64
	finds  atomic.Int64
}

func (c *countingStore) GetRange(start, limit int) ([]record.Record, error) {
	c.ranges.Add(1)
	return c.Store.GetRange(start, limit)
}

func (c *countingStore) Find(filter map[string]any, skip, limit int) ([]record.Record, error) {
	c.finds.Add(1)
	return c.Store.Find(filter, skip, limit)
}

func newCountingMemo(t *testing.T) (*countingStore, *Memo) {
	inner, err := NewMemory()
	require.NoError(t, err)
	counting := &countingStore{Store: inner}
	memo, err := NewMemo(counting, 1000)
	require.NoError(t, err)
	t.Cleanup(func() { memo.Close() })
	return counting, memo
}

func TestMemo_GetRange(t *testing.T) {

	counting, memo := newCountingMemo(t)
	require.NoError(t, memo.Put(record.Generate(0, 20)))

	first, err := memo.GetRange(5, 5)
	require.NoError(t, err)
	second, err := memo.GetRange(5, 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), counting.ranges.Load())

	// results are copies
	second[0].Title = "mutated"
	third, err := memo.GetRange(5, 5)
	require.NoError(t, err)
	assert.Equal(t, "Title 6", third[0].Title)
}

func TestMemo_WriteInvalidates(t *testing.T) {

	counting, memo := newCountingMemo(t)
	require.NoError(t, memo.Put(record.Generate(0, 5)))

	_, err := memo.GetRange(0, 10)
	require.NoError(t, err)

	require.NoError(t, memo.Put(record.Generate(5, 5)))

	rows, err := memo.GetRange(0, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 10)
	assert.Equal(t, int64(2), counting.ranges.Load())

	require.NoError(t, memo.Clear())
	rows, err = memo.GetRange(0, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 0)
}

func TestMemo_Find(t *testing.T) {

	counting, memo := newCountingMemo(t)
	require.NoError(t, memo.Put(record.Generate(0, 30)))

	titles := map[string]any{"$in": []any{"Title 2", "Title 22", "Title 5"}}
	bodies := map[string]any{"$in": []any{"Body of record 2", "Body of record 22"}}

	a, err := memo.Find(map[string]any{"title": titles, "body": bodies}, 0, 5)
	require.NoError(t, err)
	b, err := memo.Find(map[string]any{"body": bodies, "title": titles}, 0, 5)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 22}, ids(a))
	assert.Equal(t, a, b)
	assert.Equal(t, int64(1), counting.finds.Load())

	_, err = memo.Find(map[string]any{"title": titles}, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counting.finds.Load())
}

func TestMemoKey(t *testing.T) {

	k1, err := memoKey("find", map[string]any{"a": 1, "b": 2}, 0, 1)
	require.NoError(t, err)
	k2, err := memoKey("find", map[string]any{"b": 2, "a": 1}, 0, 1)
	require.NoError(t, err)
	k3, err := memoKey("range", map[string]any{"b": 2, "a": 1}, 0, 1)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}
