package app

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vendkiosk/backend/libs/clock"
	"vendkiosk/backend/libs/devicetoken"
	libhttp "vendkiosk/backend/libs/httpserver"
	libredis "vendkiosk/backend/libs/redis"
	"vendkiosk/backend/services/kiosk/internal/clients"
	"vendkiosk/backend/services/kiosk/internal/config"
	"vendkiosk/backend/services/kiosk/internal/display"
	"vendkiosk/backend/services/kiosk/internal/effects"
	httpserver "vendkiosk/backend/services/kiosk/internal/http"
	"vendkiosk/backend/services/kiosk/internal/http/handlers"
	"vendkiosk/backend/services/kiosk/internal/journal"
	"vendkiosk/backend/services/kiosk/internal/models"
	"vendkiosk/backend/services/kiosk/internal/presence"
	"vendkiosk/backend/services/kiosk/internal/session"
)

// App wires the kiosk controller.
type App struct {
	server       *libhttp.Server
	machine      *session.Machine
	hub          *display.Hub
	redisJournal *journal.Redis
	redis        *goredis.Client
	logger       *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	catalog, err := models.NewCatalog(cfg.Catalog.Items, cfg.Catalog.PriceMinorUnits)
	if err != nil {
		return nil, err
	}

	var tokens clients.TokenSource
	if cfg.Backend.DeviceSecret != "" {
		issuer, err := devicetoken.NewIssuer(cfg.Kiosk.ID, cfg.Backend.DeviceSecret, 0)
		if err != nil {
			return nil, err
		}
		tokens = issuer
	}
	cardClient := clients.NewCardClient(
		cfg.Backend.URL,
		clients.NewDefaultHTTPClient(cfg.BackendTimeout()),
		tokens,
		logger.Named("card-client"),
	)

	a := &App{logger: logger}

	var activity journal.Journal = journal.NewMemory(cfg.Journal.Capacity)
	if cfg.Redis.Addr != "" {
		client, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.redisJournal = journal.NewRedis(client, cfg.Kiosk.ID, cfg.Journal.Capacity, logger.Named("journal"))
		activity = a.redisJournal
	}

	a.hub = display.NewHub(catalog.Items(), logger.Named("display"))
	emitter := effects.Fanout{a.hub, effects.LogEmitter{Logger: logger.Named("effects")}}

	a.machine = session.NewMachine(session.Config{
		Intervals: presence.Intervals{
			Detect:  cfg.Polling.DetectInterval,
			Monitor: cfg.Polling.MonitorInterval,
		},
		DisconnectThreshold: cfg.Polling.DisconnectThreshold,
		ProbeTimeout:        cfg.BackendTimeout(),
		CallTimeout:         cfg.BackendTimeout(),
		ConfirmDelay:        cfg.Timing.ConfirmDelay,
		SettleDelay:         cfg.Timing.SettleDelay,
		RemovalNoticeDelay:  cfg.Timing.RemovalNoticeDelay,
		ErrorNoticeDelay:    cfg.Timing.ErrorNoticeDelay,
		MinBrewDuration:     cfg.Timing.MinBrewDuration,
	}, cardClient, catalog, emitter, activity, clock.New(), logger.Named("session"))

	wsServer := display.NewServer(a.hub, display.NewActionRouter(a.machine, logger.Named("display")), cfg.BackendTimeout(), logger.Named("display"))
	status := handlers.NewStatusHandlers(a.machine, activity, a.hub, logger)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Status:    status,
		DisplayWS: wsServer.HandleWS,
	})
	a.server = libhttp.NewServer(
		"kiosk http server",
		cfg.HTTPAddress(),
		router,
		logger,
		libhttp.RecoveryMiddleware(logger),
		libhttp.LoggingMiddleware(logger),
	)
	return a, nil
}

// Run starts the machine, the display hub and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	if a.redisJournal != nil {
		go a.redisJournal.Run(ctx)
	}
	go a.hub.Start(ctx)
	go a.machine.Run(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	a.machine.Stop()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
