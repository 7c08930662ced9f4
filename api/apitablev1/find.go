package apitablev1

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

type findRequest struct {
	Filter map[string]interface{} `json:"filter"`
	Skip   int                    `json:"skip"`
	Limit  int                    `json:"limit"`
}

// find writes the cached rows matching a filter as JSON lines.
func find(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	requestBody, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	input := findRequest{
		Filter: map[string]interface{}{},
		Skip:   0,
		Limit:  1,
	}
	if len(requestBody) > 0 {
		err = json.Unmarshal(requestBody, &input)
		if err != nil {
			return err
		}
	}

	rows, err := GetServicer(ctx).Find(input.Filter, input.Skip, input.Limit)
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
