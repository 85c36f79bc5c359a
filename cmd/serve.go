package cmd

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/novelseek/internal/server"
)

// ServeCmd serves the search API until interrupted.
type ServeCmd struct {
	Addr string `help:"Listen address (defaults to server.addr)"`
}

func (s *ServeCmd) Run() error {
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		addr := s.Addr
		if addr == "" {
			addr = rt.settings.Server.Addr
		}
		go rt.table.Run(ctx, 0)
		return server.New(rt.svc).ListenAndServe(ctx, addr)
	})
}

// PingCmd checks every enabled platform.
type PingCmd struct {
	Timeout time.Duration `help:"Timeout per platform" default:"10s"`
}

func (p *PingCmd) Run() error {
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		return ping(ctx, rt, p.Timeout)
	})
}

func ping(ctx context.Context, rt *runtime, timeout time.Duration) error {
	platforms := rt.svc.Aggregator().Platforms()
	results := make([]error, len(platforms))
	elapsed := make([]time.Duration, len(platforms))

	var g errgroup.Group
	for i, p := range platforms {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			start := time.Now()
			results[i] = p.Source.Ping(pctx)
			elapsed[i] = time.Since(start)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, p := range platforms {
		if results[i] != nil {
			failed++
			printf("%-10s FAIL  %v\n", p.Name(), results[i])
			continue
		}
		printf("%-10s ok    %s\n", p.Name(), elapsed[i].Round(time.Millisecond))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d platforms unreachable", failed, len(platforms))
	}
	return nil
}
