package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/feed-inspector/app/api"
	"github.com/lysyi3m/feed-inspector/app/blob"
	"github.com/lysyi3m/feed-inspector/app/callback"
	"github.com/lysyi3m/feed-inspector/app/cfg"
	"github.com/lysyi3m/feed-inspector/app/database"
	"github.com/lysyi3m/feed-inspector/app/feed"
	"github.com/lysyi3m/feed-inspector/app/metrics"
	"github.com/lysyi3m/feed-inspector/app/tasks"
)

func main() {
	os.Exit(run())
}

func run() int {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	if appCfg == nil {
		return 0
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Feed Inspector", "version", appCfg.Version, "command", appCfg.Command)

	store := newBlobStore(appCfg)
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close blob stores", "error", err)
		}
	}()

	profiles := feed.NewProfileCache(appCfg.ProfilesDir)
	if err := profiles.Run(); err != nil {
		slog.Error("Failed to load marker profiles", "dir", appCfg.ProfilesDir, "error", err)
		return 1
	}
	slog.Info("Marker profiles loaded", "dir", appCfg.ProfilesDir, "count", profiles.GetProfileCount())

	analyzer := feed.NewAnalyzer(store, profiles, feed.Options{
		QueueSize:      appCfg.QueueSize,
		MaxRecordBytes: appCfg.MaxRecordBytes,
		SpoolDir:       appCfg.SpoolDir,
	})

	if appCfg.Command == cfg.CommandAnalyze {
		return runAnalyze(appCfg, analyzer, logLevel)
	}
	return runServe(appCfg, analyzer, profiles, logLevel)
}

func newBlobStore(appCfg *cfg.Cfg) *blob.Router {
	router := blob.NewRouter()
	router.Register(blob.SchemeFile, blob.NewLocalStore())
	router.RegisterFactory(blob.SchemeS3, func(ctx context.Context) (blob.Store, error) {
		return blob.NewS3Store(blob.S3Config{
			Endpoint:  appCfg.S3Endpoint,
			AccessKey: appCfg.S3AccessKey,
			SecretKey: appCfg.S3SecretKey,
			Region:    appCfg.S3Region,
			UseSSL:    appCfg.S3UseSSL,
		})
	})
	router.RegisterFactory(blob.SchemeGCS, func(ctx context.Context) (blob.Store, error) {
		return blob.NewGCSStore(ctx)
	})
	return router
}

// runAnalyze performs one analysis with its run log mirrored to stdout.
func runAnalyze(appCfg *cfg.Cfg, analyzer *feed.Analyzer, logLevel slog.Level) int {
	job := feed.Job{
		PartnerID:     appCfg.PartnerID,
		Source:        appCfg.Source,
		Destination:   appCfg.Destination,
		DistinguishID: appCfg.DistinguishID,
	}

	runLog, err := feed.OpenRunLog(appCfg.LogsDir, job, time.Now(), os.Stdout, logLevel)
	if err != nil {
		slog.Error("Failed to open run log", "error", err)
		return 1
	}
	defer runLog.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(appCfg.LogTimeout)*time.Second)
	defer cancel()

	_, runErr := analyzer.Run(ctx, job, runLog.Logger)

	if appCfg.PushgatewayURL != "" {
		if err := metrics.Push(appCfg.PushgatewayURL, "feed_inspector_analyze"); err != nil {
			slog.Warn("Failed to push metrics", "error", err)
		}
	}

	if runErr != nil {
		return 1
	}
	return 0
}

func runServe(appCfg *cfg.Cfg, analyzer *feed.Analyzer, profiles *feed.ProfileCache, logLevel slog.Level) int {
	slog.Info("Opening job store", "path", appCfg.DBPath)
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open job store", "error", err)
		return 1
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return 1
	}
	slog.Info("Job store ready", "schema_version", version, "dirty", dirty)

	jobRepo := database.NewJobRepository(db)
	activityRepo := database.NewActivityRepository(db)

	runner := &tasks.Runner{
		Analyzer:     analyzer,
		JobRepo:      jobRepo,
		ActivityRepo: activityRepo,
		Notifier:     callback.NewNotifier(nil),
		LogsDir:      appCfg.LogsDir,
		LogLevel:     logLevel,
		Console:      os.Stdout,
		CallbackURL:  appCfg.CallbackURL,
	}

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(jobRepo, runner.NewTask,
		time.Duration(appCfg.SchedulerInterval)*time.Second,
		appCfg.WorkerCount,
		time.Duration(appCfg.LogTimeout)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(jobRepo, activityRepo, profiles, scheduler)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
		exitCode = 1
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return exitCode
}
