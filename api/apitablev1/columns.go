package apitablev1

import (
	"context"
	"slices"

	"github.com/fulldump/lazytable/columns"
)

type SelectionResponse struct {
	Keys        []string `json:"keys"`
	AllSelected bool     `json:"allSelected"`
}

func newSelectionResponse(ctx context.Context, keys []string) *SelectionResponse {
	all := GetServicer(ctx).ListColumns()
	return &SelectionResponse{
		Keys:        keys,
		AllSelected: len(keys) == len(all),
	}
}

func listColumns(ctx context.Context) []columns.Column {
	return GetServicer(ctx).ListColumns()
}

type setSelectionRequest struct {
	Keys []string `json:"keys"`
}

func setSelection(ctx context.Context, input *setSelectionRequest) *SelectionResponse {
	keys := GetServicer(ctx).SetSelection(slices.Clone(input.Keys))
	return newSelectionResponse(ctx, keys)
}

func toggleAll(ctx context.Context) *SelectionResponse {
	keys := GetServicer(ctx).ToggleAll()
	return newSelectionResponse(ctx, keys)
}
