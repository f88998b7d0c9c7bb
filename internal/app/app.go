package app

import (
	"fmt"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/antonahmetgaliev/skf/external/simgrid"
	"github.com/antonahmetgaliev/skf/internal/config"
	"github.com/antonahmetgaliev/skf/internal/domain/bwp"
	"github.com/antonahmetgaliev/skf/internal/infrastructure/repository/memory"
	"github.com/antonahmetgaliev/skf/internal/infrastructure/repository/postgres"
	"github.com/antonahmetgaliev/skf/internal/interfaces/httpapi"
	idgen "github.com/antonahmetgaliev/skf/internal/platform/id"
	"github.com/antonahmetgaliev/skf/internal/platform/logging"
	"github.com/antonahmetgaliev/skf/internal/platform/resilience"
	"github.com/antonahmetgaliev/skf/internal/usecase"
)

// App bundles the HTTP server with the long-lived pieces the entrypoint
// manages: the cache pre-warmer and the database handle.
type App struct {
	Server  *http.Server
	Refresh *usecase.RefreshService

	closeDB func() error
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	bwpRepo, closeDB, err := newBWPRepository(cfg, logger)
	if err != nil {
		return nil, err
	}

	simGridClient := simgrid.NewClient(simgrid.ClientConfig{
		BaseURL:    cfg.SimGridBaseURL,
		APIKey:     cfg.SimGridAPIKey,
		Timeout:    cfg.SimGridTimeout,
		MaxRetries: cfg.SimGridMaxRetries,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.SimGridCircuitEnabled,
			FailureThreshold: cfg.SimGridCircuitFailureCount,
			OpenTimeout:      cfg.SimGridCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.SimGridCircuitHalfOpenMax,
		},
		Logger:              logger,
		DisableHTMLFallback: cfg.SimGridHTMLFallbackDisabled,
	})

	standingsSvc := usecase.NewStandingsService(simGridClient, logger, usecase.StandingsServiceConfig{
		StandingsTTL: cfg.StandingsCacheTTL,
		MetadataTTL:  cfg.MetadataCacheTTL,
	})
	bwpSvc := usecase.NewBWPService(bwpRepo, idgen.NewRandomGenerator(), cfg.BWPPointValidity)
	refreshSvc := usecase.NewRefreshService(standingsSvc, logger)

	handler := httpapi.NewHandler(standingsSvc, bwpSvc, refreshSvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.AdminToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		_ = closeDB()
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{
		Server:  server,
		Refresh: refreshSvc,
		closeDB: closeDB,
	}, nil
}

// Close releases resources held by the app, currently just the database.
func (a *App) Close() error {
	if a == nil || a.closeDB == nil {
		return nil
	}
	return a.closeDB()
}

// newBWPRepository selects the penalty bookkeeping store. Without DB_URL the
// service runs on the in-memory store, which loses state on restart.
func newBWPRepository(cfg config.Config, logger *logging.Logger) (bwp.Repository, func() error, error) {
	if cfg.DBURL == "" {
		logger.Warn("DB_URL not set, using in-memory penalty store")
		return memory.NewBWPRepository(), func() error { return nil }, nil
	}

	dbURL := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dbURL,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("connected to postgres", "database", dbNameFromURL(cfg.DBURL))

	return postgres.NewBWPRepository(db), db.Close, nil
}
