package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fulldump/box"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fulldump/lazytable/api"
	"github.com/fulldump/lazytable/configuration"
	"github.com/fulldump/lazytable/database"
	"github.com/fulldump/lazytable/service"
	"github.com/fulldump/lazytable/source"
	"github.com/fulldump/lazytable/transform"
	"github.com/fulldump/lazytable/view"
)

var VERSION = "dev"

func NewLogger(level string) (*zap.Logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	config := zap.NewProductionConfig()
	config.Level = atomicLevel
	return config.Build()
}

// Bootstrap wires every component. start blocks until stop is called or a
// termination signal arrives.
func Bootstrap(c *configuration.Configuration, logger *zap.Logger) (start, stop func(), err error) {

	if logger == nil {
		logger = zap.NewNop()
	}

	db := database.NewDatabase(&database.Config{
		Dir:      c.Dir,
		Backend:  c.CacheBackend,
		MemoRows: c.CacheMemoRows,
		Logger:   logger.Named("database"),
	})

	ln, err := net.Listen("tcp", c.HttpAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen: %w", err)
	}
	logger.Info("listening", zap.String("addr", ln.Addr().String()))

	// Without a remote collection the table reads the demo one served below.
	demo := source.NewSynthetic(c.DemoTotal)
	base := c.SourceBase
	if base == "" {
		base = "http://" + ln.Addr().String() + "/posts"
	}
	remote := source.NewHTTP(base)
	remote.StartParam = c.StartParam
	remote.LimitParam = c.LimitParam
	src := source.NewRetry(remote, c.RetryAttempts, c.RetryDelay, logger.Named("source"))

	mapper := transform.Normalize
	if c.Annotate {
		mapper = transform.Annotate
	}
	stage := transform.NewStage(mapper, 4, logger.Named("transform"))

	table := view.NewTable(src, stage, db, nil, view.Options{
		InitialPage:  c.InitialPage,
		PageSize:     c.PageSize,
		Threshold:    c.Threshold,
		TickInterval: c.TickInterval,
		ResetOnMount: c.ResetOnMount,
		Logger:       logger.Named("table"),
	})

	b := api.Build(service.NewService(table), demo, VERSION)
	if c.EnableCompression {
		b.WithInterceptors(api.Compression)
	}
	b.WithInterceptors(
		api.AccessLog(zap.NewStdLog(logger.Named("access"))),
		api.PrettyErrorInterceptor,
		api.InterceptorUnavailable(db),
		api.RecoverFromPanic(logger),
	)

	s := &http.Server{
		Addr:    c.HttpAddr,
		Handler: box.Box2Http(b),
	}

	stopOnce := sync.Once{}
	stop = func() {
		stopOnce.Do(func() {
			err := table.Unmount()
			if err != nil {
				logger.Error("unmount table", zap.Error(err))
			}
			stage.Close()
			err = db.Stop()
			if err != nil {
				logger.Error("stop database", zap.Error(err))
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.Shutdown(ctx)
		})
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		for sig := range signalChan {
			logger.Info("signal received", zap.String("signal", sig.String()))
			stop()
		}
	}()

	start = func() {

		err := db.Load()
		if err != nil {
			logger.Error("load database", zap.Error(err))
			return
		}

		g, ctx := errgroup.WithContext(context.Background())

		g.Go(db.Start)

		g.Go(func() error {
			err := s.Serve(ln)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})

		err = table.Mount(ctx)
		if err != nil {
			logger.Error("mount table", zap.Error(err))
			stop()
		}

		err = g.Wait()
		if err != nil {
			logger.Error("stopped with error", zap.Error(err))
		}
	}

	return start, stop, nil
}
