package apitablev1

import (
	"context"

	"github.com/fulldump/lazytable/service"
)

const ContextServicerKey = "6c0b1f0e-6d7a-4a37-9d47-2f0c5b1d8a13"

func SetServicer(ctx context.Context, s service.Servicer) context.Context {
	return context.WithValue(ctx, ContextServicerKey, s)
}

func GetServicer(ctx context.Context) service.Servicer {
	return ctx.Value(ContextServicerKey).(service.Servicer)
}
