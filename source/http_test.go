package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fulldump/biff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostsServer(t *testing.T, total int, failures *atomic.Int64) *httptest.Server {

	t.Helper()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failures != nil && failures.Add(-1) >= 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		rows, _ := NewSynthetic(total).FetchPage(r.Context(), start, limit)
		json.NewEncoder(w).Encode(rows)
	}))
	t.Cleanup(s.Close)

	return s
}

func TestHTTP_FetchPage(t *testing.T) {

	s := newPostsServer(t, 35, nil)
	h := NewHTTP(s.URL + "/posts")

	biff.Alternative("First page", func(a *biff.A) {
		rows, err := h.FetchPage(context.Background(), 0, 30)
		biff.AssertNil(err)
		biff.AssertEqual(len(rows), 30)
		biff.AssertEqual(rows[0]["id"], float64(1))
		biff.AssertEqual(rows[29]["id"], float64(30))
	})

	biff.Alternative("Short page", func(a *biff.A) {
		rows, err := h.FetchPage(context.Background(), 30, 10)
		biff.AssertNil(err)
		biff.AssertEqual(len(rows), 5)
		biff.AssertEqual(rows[0]["title"], "Title 31")
	})

	biff.Alternative("Past the end", func(a *biff.A) {
		rows, err := h.FetchPage(context.Background(), 100, 10)
		biff.AssertNil(err)
		biff.AssertEqual(len(rows), 0)
	})
}

func TestHTTP_FetchPage_AtMostLimit(t *testing.T) {

	// ignores the limit parameter
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rows, _ := NewSynthetic(100).FetchPage(r.Context(), 0, 100)
		json.NewEncoder(w).Encode(rows)
	}))
	defer s.Close()

	rows, err := NewHTTP(s.URL).FetchPage(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 10)
}

func TestHTTP_FetchPage_TransportError(t *testing.T) {

	s := newPostsServer(t, 10, nil)
	s.Close()

	_, err := NewHTTP(s.URL).FetchPage(context.Background(), 0, 10)

	transportErr := &TransportError{}
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.MethodGet, transportErr.Op)
}

func TestHTTP_FetchPage_BadStatus(t *testing.T) {

	failures := &atomic.Int64{}
	failures.Store(1)
	s := newPostsServer(t, 10, failures)

	_, err := NewHTTP(s.URL).FetchPage(context.Background(), 0, 10)

	transportErr := &TransportError{}
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusServiceUnavailable, transportErr.StatusCode)
}

func TestHTTP_FetchPage_NotAnArray(t *testing.T) {

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hello":"world"}`))
	}))
	defer s.Close()

	_, err := NewHTTP(s.URL).FetchPage(context.Background(), 0, 10)

	transportErr := &TransportError{}
	assert.True(t, errors.As(err, &transportErr))
}

func TestHTTP_FetchPage_CustomParams(t *testing.T) {

	var query string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))
	defer s.Close()

	h := NewHTTP(s.URL + "/posts?sort=id")
	h.StartParam = "_start"
	h.LimitParam = "_limit"

	_, err := h.FetchPage(context.Background(), 30, 10)
	require.NoError(t, err)
	assert.Equal(t, "_limit=10&_start=30&sort=id", query)
}

func TestHTTP_FetchPage_InvalidWindow(t *testing.T) {

	h := NewHTTP("http://localhost")

	_, err := h.FetchPage(context.Background(), -1, 10)
	assert.Error(t, err)

	_, err = h.FetchPage(context.Background(), 0, 0)
	assert.Error(t, err)
}

func TestRetry(t *testing.T) {

	failures := &atomic.Int64{}
	failures.Store(2)
	s := newPostsServer(t, 10, failures)

	r := NewRetry(NewHTTP(s.URL), 3, time.Millisecond, nil)

	rows, err := r.FetchPage(context.Background(), 0, 5)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestRetry_GivesUp(t *testing.T) {

	failures := &atomic.Int64{}
	failures.Store(10)
	s := newPostsServer(t, 10, failures)

	r := NewRetry(NewHTTP(s.URL), 3, time.Millisecond, nil)

	_, err := r.FetchPage(context.Background(), 0, 5)
	transportErr := &TransportError{}
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, int64(10-3), failures.Load())
}

func TestRetry_Cancelled(t *testing.T) {

	failures := &atomic.Int64{}
	failures.Store(10)
	s := newPostsServer(t, 10, failures)

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetry(NewHTTP(s.URL), 5, time.Hour, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := r.FetchPage(ctx, 0, 5)
	assert.ErrorIs(t, err, context.Canceled)
}
