package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cathcr/cathcr/internal/categorize"
	"github.com/cathcr/cathcr/internal/eventlog"
	"github.com/cathcr/cathcr/internal/httpapi"
	"github.com/cathcr/cathcr/internal/jobs"
	"github.com/cathcr/cathcr/internal/notifications"
	"github.com/cathcr/cathcr/internal/store"
	"github.com/cathcr/cathcr/internal/transcription"
)

type App struct {
	cfg      Config
	logger   *log.Logger
	db       *pgxpool.Pool
	store    *store.Store
	eventLog *eventlog.Logger

	selector *transcription.Selector
	service  *transcription.Service
	batch    *transcription.Batch
	monitor  *transcription.Monitor

	categorize categorize.Client
	apns       *notifications.APNsClient
	discord    *notifications.Discord
	retention  *jobs.RetentionJob

	healthCancel context.CancelFunc
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := store.New(db)
	el := eventlog.New(db)

	// Migrations are applied externally by the CI deploy job (docker exec psql).
	// No automatic migration runner at startup.

	a := &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		store:    s,
		eventLog: el,
	}

	a.buildTranscription()

	if cfg.OpenAIAPIKey != "" {
		a.categorize = categorize.NewOpenAIClient(categorize.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.CategorizeModel,
		})
	}

	apns, err := notifications.NewAPNsClient(notifications.APNsConfig{
		KeyPath:    cfg.APNsKeyPath,
		KeyID:      cfg.APNsKeyID,
		TeamID:     cfg.APNsTeamID,
		BundleID:   cfg.APNsBundleID,
		Production: cfg.APNsProduction,
	}, logger)
	if err != nil {
		logger.Printf("APNs setup failed, push notifications disabled: %v", err)
	}
	a.apns = apns

	if cfg.DiscordWebhookURL != "" {
		a.discord = notifications.NewDiscord(cfg.DiscordWebhookURL, logger)
	}

	a.retention = jobs.NewRetentionJob(s, logger, cfg.RetentionWindow, 0)

	return a, nil
}

// buildTranscription wires the configured recognizers into the selector,
// single-request service, batch transcriber and health monitor.
func (a *App) buildTranscription() {
	var recognizers []transcription.Recognizer
	if a.cfg.HuggingFaceAPIKey != "" {
		recognizers = append(recognizers, transcription.NewHuggingFaceClient(transcription.HuggingFaceConfig{
			APIKey: a.cfg.HuggingFaceAPIKey,
			URL:    a.cfg.HuggingFaceURL,
		}))
	}
	if a.cfg.OpenAIAPIKey != "" {
		recognizers = append(recognizers, transcription.NewOpenAIClient(transcription.OpenAIConfig{
			APIKey: a.cfg.OpenAIAPIKey,
			Model:  a.cfg.WhisperModel,
		}))
	}

	var local transcription.Recognizer
	if a.cfg.LocalWhisperEnabled {
		local = transcription.NewLocalWhisperClient(transcription.LocalWhisperConfig{
			URL: a.cfg.LocalWhisperURL,
		})
	}

	a.selector = transcription.NewSelector(a.cfg.FallbackChain, recognizers, local)
	a.service = transcription.NewService(a.selector, a.logger, transcription.ServiceConfig{
		BackendTimeout: a.cfg.BackendTimeout,
	})

	defaultBackend := transcription.BackendWebSpeech
	if chain := a.selector.FallbackChain(); len(chain) > 0 {
		defaultBackend = chain[0].Name()
	}
	a.batch = transcription.NewBatch(a.service, a.logger, transcription.BatchConfig{
		GroupSize:      a.cfg.BatchGroupSize,
		GroupDelay:     a.cfg.BatchGroupDelay,
		DefaultBackend: defaultBackend,
	})

	a.monitor = transcription.NewMonitor(a.selector, a.logger, a.cfg.HealthProbeTimeout)

	a.logger.Printf("transcription: %d server backend(s) configured, local=%v",
		len(a.selector.FallbackChain()), a.cfg.LocalWhisperEnabled)
}

func (a *App) Router() http.Handler {
	return httpapi.NewRouter(httpapi.RouterConfig{
		JWTSecret: a.cfg.JWTSecret,
	}, a.logger, httpapi.Deps{
		Store:       a.store,
		EventLog:    a.eventLog,
		Transcriber: a.service,
		Batch:       a.batch,
		Health:      a.monitor,
		Categorize:  a.categorize,
		APNs:        a.apns,
		Discord:     a.discord,
	})
}

// StartBackground launches the periodic health probes and the retention
// sweep. Both stop when Close is called.
func (a *App) StartBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	a.healthCancel = cancel
	go a.monitor.Run(ctx, a.cfg.HealthProbeInterval)
	a.retention.Start()
}

func (a *App) Close() error {
	if a.healthCancel != nil {
		a.healthCancel()
	}
	if a.retention != nil {
		a.retention.Stop()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
