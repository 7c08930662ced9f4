package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/fulldump/box"
	"go.uber.org/zap"
)

// RecoverFromPanic turns a panic in a handler into a 500 response.
func RecoverFromPanic(logger *zap.Logger) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic serving request",
						zap.Any("panic", r),
						zap.ByteString("stack", debug.Stack()),
					)
					box.SetError(ctx, fmt.Errorf("panic: %v", r))
				}
			}()
			next(ctx)
		}
	}
}

func AccessLog(l *log.Logger) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {
			r := box.GetRequest(ctx)
			now := time.Now()
			defer func() {
				l.Println(now.UTC().Format(time.RFC3339Nano), formatRemoteAddr(r), r.Method, r.URL.String(), time.Since(now))
			}()

			next(ctx)
		}
	}
}

func formatRemoteAddr(r *http.Request) string {
	xorigin := strings.TrimSpace(strings.Split(
		r.Header.Get("X-Forwarded-For"), ",")[0])
	if xorigin != "" {
		return xorigin
	}

	i := strings.LastIndex(r.RemoteAddr, ":")
	if i < 0 {
		return r.RemoteAddr
	}
	return r.RemoteAddr[0:i]
}
