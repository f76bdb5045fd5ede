package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/router"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// stores is the backend selected by SEAT_STORE.
type stores struct {
	showtimes service.ShowtimeStore
	catalog   handler.Catalog
	close     func(context.Context) error
}

// mysqlCatalog joins the two MySQL repositories behind handler.Catalog.
type mysqlCatalog struct {
	*repository.RoomRepo
	*repository.MovieRepo
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	switch cfg.Store.Backend {
	case config.StoreMySQL:
		db, err := database.Open(cfg.DB)
		if err != nil {
			return nil, err
		}
		if cfg.DB.Migrate {
			if err := database.Migrate(db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return &stores{
			showtimes: repository.NewShowtimeRepo(db),
			catalog:   mysqlCatalog{repository.NewRoomRepo(db), repository.NewMovieRepo(db)},
			close:     func(context.Context) error { return db.Close() },
		}, nil

	case config.StoreMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		m := repository.NewMongoStore(db)
		return &stores{showtimes: m, catalog: m, close: client.Disconnect}, nil

	default:
		m := repository.NewMemoryStore()
		if cfg.Store.SeedDemo {
			repository.SeedDemo(m, time.Now())
		}
		return &stores{showtimes: m, catalog: m, close: func(context.Context) error { return nil }}, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", "error", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal("open seat store", "backend", cfg.Store.Backend, "error", err)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable: caching and rate limiting disabled", "addr", cfg.Redis.Address())
	}
	layoutTTL := cfg.Cache.LayoutTTL
	if !cfg.Cache.Enabled {
		layoutTTL = 0
	}
	layouts := repository.NewCachedLayouts(st.catalog, rdb, layoutTTL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		events    service.EventPublisher
		publisher *queue.Publisher
	)
	if cfg.AMQP.Enabled {
		publisher = queue.NewPublisher(cfg.AMQP.BrokerURL(), cfg.AMQP.Queue)
		events = publisher
	}
	if cfg.AMQP.AuditConsumer {
		go func() {
			err := queue.StartAuditConsumer(ctx, cfg.AMQP.BrokerURL(), cfg.AMQP.Queue, cfg.AMQP.AuditLogDir)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	seats := service.NewSeatService(st.showtimes, layouts, events, service.NewMetrics(reg))

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, router.Deps{
		Config:    cfg,
		Funciones: handler.NewFuncionesHandler(seats),
		Catalog:   handler.NewCatalogHandler(st.catalog, layouts),
		Redis:     rdb,
		Gatherer:  reg,
	})

	addr := ":" + cfg.App.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.App.Env, "store", cfg.Store.Backend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := st.close(shutdownCtx); err != nil {
		log.Error("close seat store", "error", err)
	}
}
