package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "time/tzdata" // VENUE_TIMEZONE must resolve on minimal images

	"github.com/iliyamo/venue-reservations/internal/booking"
	"github.com/iliyamo/venue-reservations/internal/config"
	"github.com/iliyamo/venue-reservations/internal/database"
	"github.com/iliyamo/venue-reservations/internal/handler"
	"github.com/iliyamo/venue-reservations/internal/live"
	"github.com/iliyamo/venue-reservations/internal/logging"
	"github.com/iliyamo/venue-reservations/internal/metrics"
	"github.com/iliyamo/venue-reservations/internal/middleware"
	"github.com/iliyamo/venue-reservations/internal/queue"
	"github.com/iliyamo/venue-reservations/internal/repository"
	"github.com/iliyamo/venue-reservations/internal/router"
	"github.com/iliyamo/venue-reservations/internal/service"
	"github.com/iliyamo/venue-reservations/internal/session"
	"github.com/iliyamo/venue-reservations/internal/tracing"
)

const serviceName = "venue-reservations"

// backend is the chosen store plus what the rest of main needs from it.
type backend struct {
	store repository.Store
	feed  live.Feed // non-nil when the store brings its own change feed
	ping  func(context.Context) error
	close func()
}

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer be.close()

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	feed := chooseFeed(be, rdb, cfg.ChangeChannel)

	var hubOpts []live.Option
	if cfg.AMQPURL != "" {
		hubOpts = append(hubOpts, live.WithEvents(service.NewEventPublisher(cfg.AMQPURL, logger)))
		go queue.NewConsumer(cfg.AMQPURL, cfg.EventsLogDir, logger).Run(ctx)
	} else {
		logger.Info("RABBITMQ_URL not set, reservation events disabled")
	}
	hub := live.NewHub(be.store, feed, logger, hubOpts...)
	defer hub.Close()

	loc := cfg.Location()
	set := session.Settings{
		Location: loc,
		Contact: booking.Contact{
			Host:        cfg.ContactHost,
			CountryCode: cfg.ContactCountryCode,
			Location:    loc,
		},
		ConfirmationTTL: cfg.FormConfirmationTTL,
	}
	reg := session.NewRegistry(hub, set, cfg.SessionTTL, logger)
	go reg.Run(ctx, time.Minute)

	cacheCfg := config.LoadCacheConfig()
	if rdb != nil && cacheCfg.Enabled {
		purge := hub.Subscribe(middleware.CachePurger(cacheCfg, rdb, logger))
		defer purge.Close()
	}

	e := echo.New()
	e.HideBanner = true
	// Request contexts end with the process so that open event streams
	// let go during shutdown.
	e.Server.BaseContext = func(net.Listener) context.Context { return ctx }
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(tracing.Middleware())
	e.Use(metrics.Middleware)
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger))

	router.RegisterRoutes(e, router.Deps{
		Health:       handler.HealthHandler{Ping: be.ping},
		Reservations: handler.NewReservationHandler(hub, set, logger),
		Sessions:     handler.NewSessionHandler(reg, cfg.SessionSecret, 24*time.Hour, logger),
		Secret:       cfg.SessionSecret,
		ListCache:    listCache(cacheCfg, rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	reg.CloseAll()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

// chooseFeed picks the change feed for the hub. A store that watches
// itself wins, since it also sees writes made outside this service; Redis
// only carries this service's own writes across instances.
func chooseFeed(be backend, rdb *redis.Client, channel string) live.Feed {
	switch {
	case be.feed != nil:
		return be.feed
	case rdb != nil:
		return live.NewRedisFeed(rdb, channel)
	default:
		return live.NewLocalFeed()
	}
}

func listCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if rdb == nil {
		return nil
	}
	return middleware.NewRedisCache(cfg, rdb)
}

// openBackend connects the store selected by STORE_DRIVER.
func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return backend{}, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return backend{}, err
		}
		return backend{
			store: repository.NewReservationRepo(db),
			ping:  db.PingContext,
			close: func() { _ = db.Close() },
		}, nil

	case config.DriverFirestore:
		client, err := config.NewFirestoreClient(ctx, cfg)
		if err != nil {
			return backend{}, err
		}
		fs := repository.NewFirestoreStore(client, cfg.FirestoreCollection)
		return backend{
			store: fs,
			feed:  live.NewFirestoreFeed(fs.Query()),
			close: func() { _ = client.Close() },
		}, nil

	default:
		logger.Warn("using the in-memory store; reservations are lost on restart")
		return backend{store: repository.NewMemoryStore(), close: func() {}}, nil
	}
}
