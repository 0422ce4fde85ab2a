package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/orchestrator"
	"github.com/i474232898/weather-dashboard/internal/render"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
)

// viewSink logs every view change. With tty set it also prints the
// rendered dashboard to out.
func viewSink(log logrus.FieldLogger, tty bool, out io.Writer) orchestrator.Sink {
	logSink := render.NewLogSink(log.WithField("component", "view"))
	if !tty {
		return logSink
	}
	return render.Multi{logSink, render.NewWriter(out)}
}

func newServeCmd() *cobra.Command {
	var tty bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over a local HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, func(log logrus.FieldLogger) orchestrator.Sink {
				return viewSink(log, tty, cmd.OutOrStdout())
			})
			if err != nil {
				return err
			}
			defer a.Close()
			log := a.Log.WithField("component", "serve")

			// Scheduler that periodically refreshes the dashboard.
			sched := scheduler.New(a.Config.RefreshInterval, a.Dashboard, a.Log.WithField("component", "scheduler"))
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			app := httpapi.NewApp("weather-dashboard")
			app.Use(logger.New())
			app.Use(recover.New())
			httpapi.RegisterRoutes(app, a.Dashboard, a.Auth)
			httpapi.RegisterMetrics(app, a.Registry)

			go func() {
				log.WithFields(logrus.Fields{"port": a.Config.Port, "api": a.Config.APIBaseURL}).Info("starting server")
				if err := app.Listen(":" + a.Config.Port); err != nil {
					log.WithError(err).Error("fiber server stopped")
					stop()
				}
			}()

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				log.WithError(err).Warn("error during shutdown")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&tty, "tty", false, "print the dashboard on every change")
	return cmd
}
