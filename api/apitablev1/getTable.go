package apitablev1

import (
	"context"

	"github.com/fulldump/lazytable/view"
)

func getTable(ctx context.Context) view.State {
	return GetServicer(ctx).GetTable()
}
