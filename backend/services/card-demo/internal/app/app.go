package app

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"vendkiosk/backend/libs/db"
	libhttp "vendkiosk/backend/libs/httpserver"
	"vendkiosk/backend/services/card-demo/internal/card"
	"vendkiosk/backend/services/card-demo/internal/config"
	httpserver "vendkiosk/backend/services/card-demo/internal/http"
	"vendkiosk/backend/services/card-demo/internal/http/handlers"
	"vendkiosk/backend/services/card-demo/internal/http/middleware"
	"vendkiosk/backend/services/card-demo/internal/repository"
	"vendkiosk/backend/services/card-demo/internal/service"
)

// App wires the card demo service.
type App struct {
	server *libhttp.Server
	db     *sql.DB
	logger *zap.Logger
}

// New constructs application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	var ledger service.Ledger
	if cfg.Database.DSN != "" {
		sqlDB, err := db.NewPostgresDB(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repo := repository.NewDebitRepository(sqlDB)
		if err := repo.EnsureSchema(ctx); err != nil {
			sqlDB.Close()
			return nil, err
		}
		a.db = sqlDB
		ledger = repo
	} else {
		logger.Info("no database configured, debits are not recorded")
	}

	cardLog := card.NewLog(100)
	demoCard, err := card.New(card.Config{
		BalanceMinorUnits: cfg.Card.BalanceMinorUnits,
		PIN:               cfg.Card.PIN,
		StudentNumber:     cfg.Card.StudentNumber,
		MaxPINAttempts:    cfg.Card.MaxPINAttempts,
	}, card.NewBcryptHasher(cfg.Card.BcryptCost), cardLog, logger.Named("card"))
	if err != nil {
		a.Close()
		return nil, err
	}
	if cfg.Card.InsertedAtStart {
		demoCard.Insert()
	}

	vending, err := service.NewVendingService(demoCard, cfg.Catalog.Items, cfg.Catalog.PriceMinorUnits, ledger, cardLog, logger.Named("vending"))
	if err != nil {
		a.Close()
		return nil, err
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Card: handlers.NewCardHandlers(vending, logger),
		Demo: handlers.NewDemoHandlers(demoCard),
	}, middleware.DeviceAuthMiddleware(cfg.JWT.Secret, logger))

	a.server = libhttp.NewServer(
		"card demo http server",
		cfg.HTTPAddress(),
		router,
		logger,
		libhttp.RecoveryMiddleware(logger),
		libhttp.LoggingMiddleware(logger),
	)
	return a, nil
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
