package view

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fulldump/lazytable/database"
	"github.com/fulldump/lazytable/record"
	"github.com/fulldump/lazytable/source"
	"github.com/fulldump/lazytable/transform"
)

type sourceFunc func(ctx context.Context, offset, limit int) ([]record.Raw, error)

func (f sourceFunc) FetchPage(ctx context.Context, offset, limit int) ([]record.Raw, error) {
	return f(ctx, offset, limit)
}

func newTable(t *testing.T, src source.Source, options Options) *Table {

	db := database.NewDatabase(&database.Config{
		Dir:    "/data",
		Fs:     afero.NewMemMapFs(),
		Logger: options.Logger,
	})
	require.NoError(t, db.Load())

	stage := transform.NewStage(transform.Normalize, 1, options.Logger)

	table := NewTable(src, stage, db, nil, options)
	t.Cleanup(func() {
		table.Unmount()
		stage.Close()
		db.Stop()
	})

	return table
}

func TestTable_EndToEnd(t *testing.T) {

	synthetic := source.NewSynthetic(1000)
	table := newTable(t, synthetic, Options{ResetOnMount: true})

	require.NoError(t, table.Mount(context.Background()))
	table.Wait()

	state := table.State()
	assert.True(t, state.Mounted)
	assert.Equal(t, 30, state.LoadedCount)
	assert.Equal(t, 1, synthetic.Calls())

	// the last visible row is 5 rows from the end
	state, err := table.RangeChanged(25)
	require.NoError(t, err)
	table.Wait()

	assert.Equal(t, 2, synthetic.Calls())
	state = table.State()
	assert.Equal(t, 40, state.LoadedCount)
	assert.True(t, state.HasMore)
	assert.Equal(t, int64(2), state.RemoteFetches)

	// far from the end, nothing happens
	_, err = table.RangeChanged(10)
	require.NoError(t, err)
	table.Wait()
	assert.Equal(t, 2, synthetic.Calls())

	rows, err := table.Rows(38, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(39), rows[0]["id"])
	assert.Equal(t, "Title 40", rows[1]["title"])
}

func TestTable_NotMounted(t *testing.T) {

	table := newTable(t, source.NewSynthetic(10), Options{})

	_, err := table.RangeChanged(0)
	assert.ErrorIs(t, err, ErrNotMounted)

	_, err = table.LoadMore()
	assert.ErrorIs(t, err, ErrNotMounted)

	_, err = table.Rows(0, 10)
	assert.ErrorIs(t, err, ErrNotMounted)

	_, err = table.Find(nil, 0, 10)
	assert.ErrorIs(t, err, ErrNotMounted)

	assert.False(t, table.State().Mounted)
}

func TestTable_CacheFirst(t *testing.T) {

	synthetic := source.NewSynthetic(1000)
	table := newTable(t, synthetic, Options{ResetOnMount: false})

	require.NoError(t, table.Mount(context.Background()))
	table.Wait()
	assert.Equal(t, 1, synthetic.Calls())
	require.NoError(t, table.Unmount())

	require.NoError(t, table.Mount(context.Background()))
	table.Wait()

	state := table.State()
	assert.Equal(t, 30, state.LoadedCount)
	assert.Equal(t, int64(1), state.CacheHits)
	assert.Equal(t, int64(0), state.RemoteFetches)
	assert.Equal(t, 1, synthetic.Calls())

	// beyond the cache goes remote
	table.LoadMore()
	table.Wait()
	assert.Equal(t, 2, synthetic.Calls())
	assert.Equal(t, 40, table.State().LoadedCount)
}

func TestTable_ResetOnMount(t *testing.T) {

	synthetic := source.NewSynthetic(1000)
	table := newTable(t, synthetic, Options{ResetOnMount: true})

	require.NoError(t, table.Mount(context.Background()))
	table.Wait()
	require.NoError(t, table.Unmount())

	table.SetSelection([]string{"id"})

	require.NoError(t, table.Mount(context.Background()))
	table.Wait()

	state := table.State()
	assert.Equal(t, 2, synthetic.Calls())
	assert.Equal(t, int64(0), state.CacheHits)
	assert.True(t, state.AllSelected)

	found, err := table.Find(map[string]any{}, 0, 100)
	require.NoError(t, err)
	assert.Len(t, found, 30)
}

func TestTable_TransportError(t *testing.T) {

	core, logs := observer.New(zap.ErrorLevel)
	failing := atomic.Bool{}
	failing.Store(true)
	synthetic := source.NewSynthetic(1000)
	src := sourceFunc(func(ctx context.Context, offset, limit int) ([]record.Raw, error) {
		if failing.Load() {
			return nil, &source.TransportError{Op: "fetch", URL: "http://upstream/posts", StatusCode: 500}
		}
		return synthetic.FetchPage(ctx, offset, limit)
	})

	table := newTable(t, src, Options{ResetOnMount: true, Logger: zap.New(core)})
	require.NoError(t, table.Mount(context.Background()))
	table.Wait()

	state := table.State()
	assert.Equal(t, 0, state.LoadedCount)
	assert.False(t, state.IsLoading)
	assert.True(t, state.HasMore)
	assert.NotEmpty(t, state.LastError)
	assert.Equal(t, 1, logs.FilterMessage("load page").Len())

	failing.Store(false)
	table.LoadMore()
	table.Wait()

	state = table.State()
	assert.Equal(t, 10, state.LoadedCount)
	assert.Empty(t, state.LastError)
}

func TestTable_InvalidInput(t *testing.T) {

	mutex := sync.Mutex{}
	offsets := []int{}
	src := sourceFunc(func(ctx context.Context, offset, limit int) ([]record.Raw, error) {
		mutex.Lock()
		offsets = append(offsets, offset)
		mutex.Unlock()
		return []record.Raw{{"id": 1, "title": "ok"}, {"title": "no id"}}, nil
	})

	table := newTable(t, src, Options{ResetOnMount: true})
	require.NoError(t, table.Mount(context.Background()))
	table.Wait()

	// the whole page is rejected
	state := table.State()
	assert.Equal(t, 0, state.LoadedCount)
	assert.Contains(t, state.LastError, "invalid input")
	assert.Equal(t, "idle", string(state.Phase))
	assert.True(t, state.HasMore)

	// and asked again from the same offset
	_, err := table.LoadMore()
	require.NoError(t, err)
	table.Wait()

	mutex.Lock()
	defer mutex.Unlock()
	assert.Equal(t, []int{0, 0}, offsets)
}

func TestTable_UnmountDiscardsInflight(t *testing.T) {

	started := make(chan struct{})
	src := sourceFunc(func(ctx context.Context, offset, limit int) ([]record.Raw, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	table := newTable(t, src, Options{ResetOnMount: true})
	require.NoError(t, table.Mount(context.Background()))
	<-started

	require.NoError(t, table.Unmount())

	state := table.State()
	assert.False(t, state.Mounted)
	assert.Equal(t, 0, state.LoadedCount)
}

func TestTable_Projection(t *testing.T) {

	table := newTable(t, source.NewSynthetic(1000), Options{ResetOnMount: true})
	require.NoError(t, table.Mount(context.Background()))
	table.Wait()

	table.SetSelection([]string{"title", "id"})
	rows, err := table.Rows(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": int64(1), "title": "Title 1"}}, rows)

	keys := table.ToggleAll()
	assert.Equal(t, []string{"id", "title", "body", "userId"}, keys)

	keys = table.ToggleAll()
	assert.Empty(t, keys)
	rows, err = table.Rows(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{}, {}}, rows)
}

func TestTable_MountFailure(t *testing.T) {

	db := database.NewDatabase(&database.Config{Dir: "/data", Fs: afero.NewMemMapFs()})
	require.NoError(t, db.Load())
	require.NoError(t, db.Stop())

	table := NewTable(source.NewSynthetic(10), nil, db, nil, Options{})
	err := table.Mount(context.Background())
	require.Error(t, err)
	assert.False(t, table.Mounted())
	assert.False(t, errors.Is(err, ErrNotMounted))
}
