package api

import (
	"context"
	"net/http"

	"github.com/fulldump/box"
	"github.com/fulldump/box/boxopenapi"

	"github.com/fulldump/lazytable/api/apitablev1"
	"github.com/fulldump/lazytable/service"
	"github.com/fulldump/lazytable/source"
)

// Build mounts the table API under /v1. When upstream is not nil it is also
// served at /posts, so the table can use this same process as its remote
// collection.
func Build(s service.Servicer, upstream source.Source, version string) *box.B {

	b := box.NewBox()

	v1 := b.Resource("/v1")
	v1.WithInterceptors(
		injectServicer(s),
	)
	apitablev1.BuildV1Table(v1, s)

	if upstream != nil {
		b.Resource("/posts").
			WithActions(
				box.Get(listPosts(upstream)).WithName("listPosts"),
			)
	}

	b.Resource("/release").
		WithActions(box.Get(func() string {
			return version
		}))

	spec := boxopenapi.Spec(b)
	spec.Info.Title = "lazytable"
	spec.Info.Description = "A lazily loaded windowed table backed by a remote collection and a local cache."
	b.Handle("GET", "/openapi.json", func(r *http.Request) any {

		spec.Servers = []boxopenapi.Server{
			{
				Url: "http://" + r.Host,
			},
		}

		return spec
	})

	return b
}

func injectServicer(s service.Servicer) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {
			next(apitablev1.SetServicer(ctx, s))
		}
	}
}
