package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yetanothergithubaccount/ObsPi/internal/api"
	"github.com/yetanothergithubaccount/ObsPi/internal/auth"
	"github.com/yetanothergithubaccount/ObsPi/internal/cache"
	"github.com/yetanothergithubaccount/ObsPi/internal/catalogue"
	"github.com/yetanothergithubaccount/ObsPi/internal/health"
	"github.com/yetanothergithubaccount/ObsPi/internal/store"
	"github.com/yetanothergithubaccount/ObsPi/internal/stream"
	"github.com/yetanothergithubaccount/ObsPi/internal/twilight"
	"github.com/yetanothergithubaccount/ObsPi/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalogue API and compute tonight's catalogue daily",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			broker := stream.NewBroker(0)
			a, err := newApp(cfg, logger, func(p catalogue.Progress) {
				broker.Publish(stream.Event{Type: stream.EventProgress, Date: p.Date, Data: p})
			})
			if err != nil {
				return err
			}

			cats := cache.New(cache.Config{
				Retention:     cfg.Cache.Retention,
				Prewarm:       cfg.Cache.Prewarm,
				CheckInterval: cfg.Cache.CheckInterval,
				OnStart: func(date time.Time) {
					broker.Begin(date.Format(store.DateLayout))
				},
				OnRun: func(date time.Time, report catalogue.Report, err error) {
					ev := stream.Event{Type: stream.EventDone, Date: date.Format(store.DateLayout), Data: report}
					if err != nil {
						ev.Type = stream.EventFailed
						ev.Data = map[string]string{"error": err.Error()}
					}
					broker.Publish(ev)
				},
				OnEvict: func(cutoff time.Time) {
					if n := broker.PruneBefore(cutoff); n > 0 {
						logger.Debug("stream history pruned", "component", "stream", "dates", n)
					}
				},
			}, a.evaluator, catalogue.Names, logger.With("component", "cache"))

			streamHandler := stream.NewHandler(broker, stream.Config{
				MaxConcurrentPerIP: cfg.Stream.MaxConcurrentPerIP,
				KeepaliveInterval:  cfg.Stream.KeepaliveInterval,
				TrustProxy:         cfg.Stream.TrustProxy,
			}, logger.With("component", "stream"))

			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return fmt.Errorf("data dir: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := api.NewServer(cfg.HTTP.Addr, logger, auth.Config{
				Enabled: cfg.HTTP.AuthEnabled,
				Token:   cfg.HTTP.AuthToken,
			}, api.Deps{
				Catalogues:  cats,
				Objects:     a.evaluator,
				Describer:   a.sky,
				Nights:      twilight.NewCalculator(cfg.Location, cfg.Timezone),
				Stream:      streamHandler,
				RunStarted:  broker.Begin,
				Static:      web.Content,
				BaseContext: ctx,
				Ready: []health.Check{
					{Name: "store", Fn: func() error {
						_, err := os.Stat(a.store.Dir())
						return err
					}},
					{Name: "resolver", Fn: resolverReady(cfg.Resolver.Offline, a.names.Known)},
				},
			})

			// Start cache background worker.
			go cats.Start(ctx)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server",
					"addr", cfg.HTTP.Addr,
					"auth_enabled", cfg.HTTP.AuthEnabled,
					"location", cfg.Location.Name,
					"workers", cfg.Workers,
					"offline", cfg.Resolver.Offline,
					"known_objects", a.names.Known(),
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server listen: %w", err)
			case <-ctx.Done():
			}
			logger.Info("shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}

			logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	cmd.Flags().Bool("no-prewarm", false, "do not compute tonight's catalogue at startup")
	return cmd
}

// resolverReady fails offline mode when no object can be resolved locally.
func resolverReady(offline bool, known func() int) func() error {
	return func() error {
		if offline && known() == 0 {
			return errors.New("offline and no objects known locally")
		}
		return nil
	}
}
