package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fulldump/lazytable/record"
	"github.com/fulldump/lazytable/service"
	"github.com/fulldump/lazytable/source"
)

// listPosts serves a page of upstream as a JSON array. It accepts both
// start/limit and _start/_limit query parameters.
func listPosts(upstream source.Source) func(ctx context.Context, r *http.Request) ([]record.Raw, error) {
	return func(ctx context.Context, r *http.Request) ([]record.Raw, error) {

		start, err := firstInt(r, 0, "start", "_start")
		if err != nil {
			return nil, err
		}
		limit, err := firstInt(r, 10, "limit", "_limit")
		if err != nil {
			return nil, err
		}

		return upstream.FetchPage(ctx, start, limit)
	}
}

func firstInt(r *http.Request, defaultValue int, keys ...string) (int, error) {
	query := r.URL.Query()
	for _, key := range keys {
		value := query.Get(key)
		if value == "" {
			continue
		}
		i, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer, got '%s'", service.ErrorInvalidWindow, key, value)
		}
		return i, nil
	}
	return defaultValue, nil
}
