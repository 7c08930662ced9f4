package apitablev1

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fulldump/lazytable/service"
)

// listRows writes the projected rows as JSON lines.
func listRows(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		return err
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return err
	}

	rows, err := GetServicer(ctx).ListRows(skip, limit)
	if err != nil {
		return err
	}

	e := json.NewEncoder(w)
	for _, row := range rows {
		err := e.Encode(row)
		if err != nil {
			return err
		}
	}

	return nil
}

func queryInt(r *http.Request, key string, defaultValue int) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got '%s'", service.ErrorInvalidWindow, key, value)
	}
	return i, nil
}
