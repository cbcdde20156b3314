package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WatchBeam/clock"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/mistriapp/mistri/server/config"
	"github.com/mistriapp/mistri/server/datastore/mysql"
	"github.com/mistriapp/mistri/server/pubsub"
	"github.com/mistriapp/mistri/server/service"
	"github.com/mistriapp/mistri/server/worker"
	"github.com/spf13/cobra"
	"github.com/throttled/throttled/v2/store/memstore"
)

func createServeCmd(configManager config.Manager) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Launch the mistri server",
		Long: `
Launch the mistri server

Use mistri serve to run the main HTTP server and the settlement outbox
worker. The server expects a prepared MySQL database (see mistri prepare db).
`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := configManager.LoadConfig()
			logger := initLogger(cfg)

			ds, err := mysql.New(cfg.Mysql, mysql.WithLogger(logger))
			if err != nil {
				initFatal(err, "initializing datastore")
			}
			defer ds.Close()

			svc, err := service.NewService(ds, logger, cfg, clock.C)
			if err != nil {
				initFatal(err, "initializing service")
			}
			svc = service.NewLoggingService(svc, kitlog.With(logger, "component", "service"))

			limitStore, err := memstore.New(0)
			if err != nil {
				initFatal(err, "initializing rate limit store")
			}

			mediaStore := service.NewMemMediaStore(cfg.Server.URLPrefix)

			// settlement outbox worker
			w := worker.NewWorker(ds, kitlog.With(logger, "component", "worker"))
			w.Register(&worker.Ledger{
				Datastore: ds,
				Log:       kitlog.With(logger, "component", "ledger"),
			})

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			go func() {
				ticker := time.NewTicker(cfg.Worker.ProcessInterval)
				defer ticker.Stop()
				for {
					if err := w.ProcessJobs(ctx); err != nil {
						level.Error(logger).Log("msg", "process outbox jobs", "err", err)
					}
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
				}
			}()

			// optional cross-instance job event stream; the handler falls
			// back to interval polling when it is nil
			var stream *pubsub.JobEventStream
			if cfg.Redis.Address != "" {
				pool := pubsub.NewRedisPool(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Database, false)
				defer pool.Close()

				stream = pubsub.NewJobEventStream(pool)
				if err := stream.HealthCheck(); err != nil {
					initFatal(err, "connecting to redis")
				}
				svc = pubsub.NewPublishingService(svc, stream, kitlog.With(logger, "component", "events"))
				level.Info(logger).Log("msg", "redis job event stream enabled", "address", cfg.Redis.Address)
			}

			handler := service.MakeHandler(svc, ds, mediaStore, cfg, logger, limitStore, stream)
			srv := &http.Server{
				Addr:              cfg.Server.Address,
				Handler:           handler,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errs := make(chan error, 2)
			go func() {
				if !cfg.Logging.DisableBanner {
					level.Info(logger).Log("msg", "mistri server starting", "address", cfg.Server.Address)
				}
				errs <- srv.ListenAndServe()
			}()
			go func() {
				sig := make(chan os.Signal, 1)
				signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
				<-sig
				cancel()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer shutdownCancel()
				errs <- srv.Shutdown(shutdownCtx)
			}()

			level.Info(logger).Log("terminated", <-errs)
		},
	}

	return serveCmd
}

func initLogger(cfg config.MistriConfig) kitlog.Logger {
	var logger kitlog.Logger
	if cfg.Logging.JSON {
		logger = kitlog.NewJSONLogger(kitlog.NewSyncWriter(os.Stderr))
	} else {
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	}
	if cfg.Logging.Debug {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	return kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
}
