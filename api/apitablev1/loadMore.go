package apitablev1

import (
	"context"

	"github.com/fulldump/lazytable/view"
)

func loadMore(ctx context.Context) (*view.State, error) {

	state, err := GetServicer(ctx).LoadMore()
	if err != nil {
		return nil, err
	}

	return &state, nil
}
