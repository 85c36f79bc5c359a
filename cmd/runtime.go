package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lepinkainen/novelseek/internal/aggregate"
	"github.com/lepinkainen/novelseek/internal/cache"
	"github.com/lepinkainen/novelseek/internal/config"
	"github.com/lepinkainen/novelseek/internal/sources"
)

// runtime is everything a command needs to run searches.
type runtime struct {
	settings *config.Settings
	svc      *aggregate.Service
	table    *aggregate.Table
	cache    *cache.CacheDB
	closers  []func() error
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

var newRuntime = openRuntime

func openRuntime() (*runtime, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := cache.GetGlobalCache()
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	rt := &runtime{settings: settings, cache: db}
	rt.closers = append(rt.closers, cache.ResetGlobalCache)

	registry, err := sources.NewRegistry(settings, db)
	if err != nil {
		return nil, errors.Join(err, rt.Close())
	}
	rt.closers = append(rt.closers, registry.Close)

	agg, err := aggregate.NewAggregator(registry.Platforms(), settings.AggregateOptions())
	if err != nil {
		return nil, errors.Join(err, rt.Close())
	}
	rt.table = aggregate.NewTable(settings.Search.SessionTTL, settings.Search.MaxCachedPages)
	rt.svc = aggregate.NewService(agg, rt.table)

	slog.Debug("Runtime ready", "platforms", len(agg.Platforms()), "cache", db.Path())
	return rt, nil
}

// withRuntime runs fn with a runtime and a context cancelled on interrupt.
func withRuntime(fn func(ctx context.Context, rt *runtime) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Warn("Failed to release resources", "error", err)
		}
	}()
	return fn(ctx, rt)
}

// open starts a search, or a single-platform browse when platform is set.
func open(ctx context.Context, svc *aggregate.Service, user, platform, keyword string, page int) (*aggregate.Result, error) {
	if platform = strings.ToLower(strings.TrimSpace(platform)); platform != "" {
		return svc.Browse(ctx, user, platform, keyword, page)
	}
	return svc.Search(ctx, user, keyword, page)
}
