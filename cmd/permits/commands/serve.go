package commands

import (
	"context"
	"log/slog"

	"rrcpermits-backend/internal/components/chrono"
	"rrcpermits-backend/internal/components/telemetry"
	"rrcpermits-backend/internal/config"
	"rrcpermits-backend/internal/db"
	"rrcpermits-backend/internal/jobs"
	"rrcpermits-backend/internal/service"
	"rrcpermits-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var servePort *int

func init() {
	servePort = serveCmd.Flags().IntP("port", "p", 0, "The port to listen on, overrides service.port.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--port <port>]",
	Short: "Serves the scrape job api and the scraped data.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := config.Load(*configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if *servePort != 0 {
			cfg.Service.Port = *servePort
		}

		shutdown, err := telemetry.SetupOtel(ctx, "permits", cfg.Telemetry)
		if err != nil {
			serviceutil.Fatal("failed to setup otel", err)
		}
		defer shutdown(context.Background())

		tel := telemetry.SlogAPI{}
		telemetry.InstrumentPerfStats(ctx, tel)

		timeAPI, err := chrono.NewStandardImpl()
		if err != nil {
			serviceutil.Fatal("failed to load time zone", err)
		}

		database, err := db.Open(ctx, cfg.Service.Database)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		store := jobs.NewStore(database, timeAPI)
		interrupted, err := store.FailUnfinished(ctx)
		if err != nil {
			serviceutil.Fatal("failed to reset unfinished jobs", err)
		}
		if interrupted > 0 {
			slog.Warn("marked interrupted jobs as failed", "count", interrupted)
		}

		searcher, retriever := scrapers(cfg, tel)
		runner := jobs.NewRunner(
			store,
			searcher,
			retriever,
			cfg.Service.DataDir,
			telemetry.NewScopedAPI("jobs", tel),
		)
		manager := jobs.NewManager(ctx, store, runner)
		defer manager.Wait()

		loadConfig := func() (config.Config, error) {
			return config.Load(*configPath)
		}

		if cfg.Service.Schedule != "" {
			cron := chrono.NewStandardCron(timeAPI, tel)
			defer cron.Stop()
			err = cron.Cron(cfg.Service.Schedule, func() {
				scheduled, err := loadConfig()
				if err == nil {
					err = scheduled.Validate()
				}
				if err != nil {
					tel.ReportBroken("schedule", err)
					return
				}
				job, err := manager.Submit(ctx, scheduled.SearchConfig())
				if err != nil {
					tel.ReportBroken("schedule", err)
					return
				}
				slog.Info("submitted scheduled scrape", "job_id", job.ID)
			})
			if err != nil {
				serviceutil.Fatal("invalid service.schedule", err)
			}
			slog.Info("scheduled scrapes", "schedule", cfg.Service.Schedule)
		}

		svc := service.NewService(manager, loadConfig, cfg.Service.DataDir, tel)
		err = serviceutil.StartHttpServer(
			ctx,
			cfg.Service.Port,
			otelhttp.NewHandler(svc.Handler(), "permits"),
		)
		if err != nil {
			serviceutil.Fatal("failed to serve", err)
		}
		slog.Info("shutting down, waiting for running jobs")
	},
}
