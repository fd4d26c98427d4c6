package cmd

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/bnema/smartani/internal/adapters/completion/gemini"
	csvdataset "github.com/bnema/smartani/internal/adapters/dataset/csv"
	sqlitedataset "github.com/bnema/smartani/internal/adapters/dataset/sqlite"
	"github.com/bnema/smartani/internal/adapters/export/jsonfile"
	"github.com/bnema/smartani/internal/adapters/render/terminal"
	tomlrepo "github.com/bnema/smartani/internal/adapters/repo/toml"
	"github.com/bnema/smartani/internal/adapters/search/semanticscholar"
	chainstore "github.com/bnema/smartani/internal/adapters/secrets/chain"
	filestore "github.com/bnema/smartani/internal/adapters/secrets/file"
	passstore "github.com/bnema/smartani/internal/adapters/secrets/pass"
	"github.com/bnema/smartani/internal/application"
	"github.com/bnema/smartani/internal/config"
	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/logging"
	"github.com/bnema/smartani/internal/ports"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app holds what every command needs. The resolver stack is only built by
// commands that talk to the completion service.
type app struct {
	config      config.Config
	logger      *zap.Logger
	credentials *application.CredentialService
	render      renderers
	now         func() time.Time
}

type renderers struct {
	outcome     func(domain.ResolutionOutcome) (string, error)
	status      func(application.SystemStatus) (string, error)
	credentials func([]application.CredentialView) (string, error)
}

// resolver is the fully wired resolution stack.
type resolver struct {
	pool         *application.CredentialPool
	orchestrator *application.Orchestrator
	sessions     *application.SessionManager
	history      *application.HistoryService
	status       *application.StatusService
}

func wireApp() (*app, error) {
	v := viper.New()
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire credential repository: %w", err)
	}

	secretStore, err := newSecretStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	return &app{
		config:      cfg,
		logger:      logger,
		credentials: application.NewCredentialService(repo, secretStore),
		render: renderers{
			outcome:     terminal.RenderOutcome,
			status:      terminal.RenderStatus,
			credentials: terminal.RenderCredentials,
		},
		now: time.Now,
	}, nil
}

func newSecretStore(cfg config.Config) (ports.SecretStore, error) {
	switch cfg.SecretBackend {
	case config.SecretBackendFile:
		return filestore.NewStore(cfg.SecretsDir), nil
	case config.SecretBackendPass:
		return passstore.NewStore(passstore.DefaultPrefix), nil
	default:
		return chainstore.NewPassFirstWithFileFallback(passstore.DefaultPrefix, cfg.SecretsDir)
	}
}

func newDatasetSource(cfg config.DatasetConfig) (ports.DatasetSource, error) {
	switch cfg.Driver {
	case "csv":
		return csvdataset.NewSource(cfg.Path)
	default:
		return sqlitedataset.NewSource(cfg.Path, cfg.Table)
	}
}

func (a *app) wireResolver(ctx context.Context) (*resolver, error) {
	cfg := a.config

	pool, err := a.credentials.BuildPool(ctx, cfg.EnvKeys)
	if err != nil {
		return nil, fmt.Errorf("wire credential pool: %w", err)
	}

	dataset, err := newDatasetSource(cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("wire dataset source: %w", err)
	}

	completion := gemini.New(gemini.Options{Model: cfg.Model})
	search := semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:        cfg.Search.BaseURL,
		APIKey:         cfg.Search.APIKey,
		Limit:          cfg.Search.Limit,
		MaxRetries:     cfg.Search.MaxRetries,
		RetryDelay:     cfg.Search.RetryDelay,
		Timeout:        cfg.Search.Timeout,
		RequestsPerSec: cfg.Search.RequestsPerSec,
	}, &http.Client{Timeout: cfg.Search.Timeout}, a.logger.Named("search"))

	retry := application.NewRetryController(pool, application.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}, ports.Sleep, a.logger.Named("retry"))

	sessions := application.NewSessionManager(dataset, completion, application.SessionManagerConfig{
		Strategy: cfg.Grounding,
		Sentinel: cfg.Sentinel,
	}, ports.SystemClock{}, a.logger.Named("sessions"))

	orchestrator := application.NewOrchestrator(application.OrchestratorDeps{
		Sessions:   sessions,
		Completion: completion,
		Retry:      retry,
		Search:     search,
		Logger:     a.logger.Named("orchestrator"),
	}, application.OrchestratorConfig{
		Sentinel:      cfg.Sentinel,
		CleanMarkdown: cfg.Response.CleanMarkdown,
	})

	exporter := jsonfile.NewExporter(filepath.Join(cfg.DataDir, "exports"), ports.SystemClock{})

	return &resolver{
		pool:         pool,
		orchestrator: orchestrator,
		sessions:     sessions,
		history:      application.NewHistoryService(sessions, exporter),
		status:       application.NewStatusService(completion, retry, sessions, ports.SystemClock{}),
	}, nil
}
