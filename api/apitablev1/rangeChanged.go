package apitablev1

import (
	"context"

	"github.com/fulldump/lazytable/view"
)

type rangeChangedRequest struct {
	EndIndex int `json:"endIndex"`
}

func rangeChanged(ctx context.Context, input *rangeChangedRequest) (*view.State, error) {

	state, err := GetServicer(ctx).RangeChanged(input.EndIndex)
	if err != nil {
		return nil, err
	}

	return &state, nil
}
