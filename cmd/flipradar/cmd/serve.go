package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mbaumgartner/flipradar/internal/api/handlers"
	mw "github.com/mbaumgartner/flipradar/internal/api/middleware"
	"github.com/mbaumgartner/flipradar/internal/config"
	"github.com/mbaumgartner/flipradar/internal/engine"
	"github.com/mbaumgartner/flipradar/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scan scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()

	eng, st, err := buildEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	scheduler, err := engine.NewScheduler(eng, cfg.Schedule.ScanInterval, log)
	if err != nil {
		return fmt.Errorf("building scheduler: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(mw.RequestLog(log))
	e.Use(mw.Recovery(log))
	e.Use(mw.Metrics())

	healthH := handlers.NewHealthHandler(st)
	e.GET("/healthz", healthH.Healthz)
	e.GET("/readyz", healthH.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("flipradar", Version))
	handlers.RegisterListingRoutes(api, handlers.NewListingsHandler(st))
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(st))
	handlers.RegisterSystemStateRoutes(api, handlers.NewSystemStateHandler(st))
	handlers.RegisterTriggerRoutes(api, handlers.NewScanHandler(eng))

	scheduler.Start()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("scheduler did not stop before timeout")
	}

	log.Info("server stopped")
	return nil
}
