package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"opsdash/internal/auth"
	"opsdash/internal/config"
	"opsdash/internal/events"
	"opsdash/internal/httpserver"
	"opsdash/internal/logging"
	"opsdash/internal/metrics"
	"opsdash/internal/querycache"
	"opsdash/internal/transport"
	"opsdash/internal/upstream"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "opsdash",
		Short:         "Live cache sync for the IT support operations dashboard",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newRouteCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Listen for live events and serve dashboard resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func newRouteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <event-type>...",
		Short: "Print the cache keys each event type invalidates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printRoutes(cmd.OutOrStdout(), args)
			return nil
		},
	}
}

func printRoutes(w io.Writer, types []string) {
	for _, t := range types {
		keys := events.Route(events.Event{Type: events.Type(t)}).Sorted()
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = string(k)
		}
		if len(names) == 0 {
			fmt.Fprintf(w, "%s\t(ignored)\n", t)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", t, strings.Join(names, ","))
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	var tokens *auth.Service
	var verifier events.TokenVerifier
	if cfg.TokenSecret != "" {
		tokens = auth.NewService(cfg.TokenSecret, "opsdash")
		verifier = tokens
		httpClient.Transport = &auth.Transport{Tokens: tokens, Scope: "api:read"}
	} else {
		logger.Warn("no token secret configured; upstream calls and event pushes are unauthenticated")
	}

	api := upstream.NewClient(cfg.APIBaseURL, httpClient)
	cache := querycache.New(api.Loaders(), querycache.Options{
		Eager:          cfg.EagerRefetch,
		RefreshTimeout: cfg.UpstreamTimeout,
		Logger:         logger,
		Metrics:        m,
	})

	var sources []transport.Source
	if cfg.WSURL != "" {
		ws := transport.NewWSSource(cfg.WSURL, logger, m)
		if tokens != nil {
			ws.Header = func() (http.Header, error) { return tokens.Header("events:subscribe") }
		}
		sources = append(sources, ws)
	}
	if cfg.NotifyDSN != "" {
		sources = append(sources, transport.NewNotifySource(cfg.NotifyDSN, cfg.NotifyChannel, logger, m))
	}

	liveEvents := make(chan events.Event, 64)
	dispatcher := events.NewDispatcher(cache, logger, m)
	server := httpserver.New(cfg.HTTPAddr, httpserver.NewRouter(httpserver.Deps{
		Logger:   logger,
		Cache:    cache,
		Events:   liveEvents,
		Tokens:   verifier,
		Gatherer: reg,
	}), logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(ctx, liveEvents) })
	g.Go(func() error { return transport.RunAll(ctx, liveEvents, sources...) })
	g.Go(func() error { return server.Run(ctx) })

	err := g.Wait()
	cache.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
