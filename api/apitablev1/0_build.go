package apitablev1

import (
	"github.com/fulldump/box"

	"github.com/fulldump/lazytable/service"
)

func BuildV1Table(v1 *box.R, s service.Servicer) *box.R {

	table := v1.Resource("/table").
		WithActions(
			box.Get(getTable),
			box.ActionPost(rangeChanged),
			box.ActionPost(loadMore),
		)

	v1.Resource("/table/rows").
		WithActions(
			box.Get(listRows),
		)

	v1.Resource("/columns").
		WithActions(
			box.Get(listColumns),
			box.ActionPost(setSelection),
			box.ActionPost(toggleAll),
		)

	v1.Resource("/cache").
		WithActions(
			box.ActionPost(find),
		)

	return table
}
