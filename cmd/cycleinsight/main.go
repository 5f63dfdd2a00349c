package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/terraincognita07/cycleinsight/internal/api"
	"github.com/terraincognita07/cycleinsight/internal/cli"
	"github.com/terraincognita07/cycleinsight/internal/config"
	"github.com/terraincognita07/cycleinsight/internal/db"
	"github.com/terraincognita07/cycleinsight/internal/logger"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if len(os.Args) > 1 && os.Args[1] == "analyze" {
		patientID, err := parseAnalyzeArgs(os.Args[2:], os.Stderr)
		if err != nil {
			os.Exit(2)
		}
		if err := cli.RunAnalyzeCommand(context.Background(), *cfg, patientID, os.Stdout, log); err != nil {
			log.Fatal("analyze failed", zap.Error(err))
		}
		return
	}

	if err := serve(*cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func parseAnalyzeArgs(args []string, output io.Writer) (string, error) {
	flags := flag.NewFlagSet("analyze", flag.ContinueOnError)
	flags.SetOutput(output)
	patientID := flags.String("patient", "", "patient id to analyze")
	if err := flags.Parse(args); err != nil {
		return "", err
	}
	if *patientID == "" {
		fmt.Fprintln(output, "usage: cycleinsight analyze -patient <id>")
		return "", errors.New("patient id is required")
	}
	return *patientID, nil
}

func newApp(handler *api.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "CycleInsight",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(compress.New())
	api.RegisterRoutes(app, handler)
	return app
}

func serve(cfg config.Config, log *zap.Logger) error {
	database, err := db.OpenDatabase(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}

	handler, err := api.NewHandler(database, cfg, log)
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}
	app := newApp(handler)

	lifecycleCtx, cancelLifecycle := context.WithCancel(context.Background())
	defer cancelLifecycle()
	if cfg.Refresher.Enabled {
		handler.PredictionRefresher(cfg.Refresher.Interval).Start(lifecycleCtx)
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		handler.Readiness().MarkNotReady("shutting down")
		cancelLifecycle()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Warn("server shutdown failed", zap.Error(err))
		}
	}()

	handler.Readiness().MarkReady()
	log.Info("cycleinsight listening",
		zap.Int("port", cfg.Server.Port),
		zap.String("driver", cfg.Database.Driver),
		zap.String("timezone", cfg.Server.Timezone),
		zap.Bool("refresher", cfg.Refresher.Enabled),
	)
	return app.Listen(":" + strconv.Itoa(cfg.Server.Port))
}
