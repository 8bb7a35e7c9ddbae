package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	offerapp "github.com/cristianortiz/gridshare/internal/offer/application"
	offerdomain "github.com/cristianortiz/gridshare/internal/offer/domain"
	"github.com/cristianortiz/gridshare/internal/offer/infra/distance"
	"github.com/cristianortiz/gridshare/internal/offer/infra/repository/memory"
	"github.com/cristianortiz/gridshare/internal/offer/infra/repository/postgres"
	"github.com/cristianortiz/gridshare/internal/offer/infra/repository/sqlite"
	offerrest "github.com/cristianortiz/gridshare/internal/offer/infra/rest"
	offerws "github.com/cristianortiz/gridshare/internal/offer/infra/websocket"
	priceapp "github.com/cristianortiz/gridshare/internal/price/application"
	pricedomain "github.com/cristianortiz/gridshare/internal/price/domain"
	"github.com/cristianortiz/gridshare/internal/price/infra/aeso"
	"github.com/cristianortiz/gridshare/internal/price/infra/cache"
	"github.com/cristianortiz/gridshare/internal/price/infra/eia"
	pricerest "github.com/cristianortiz/gridshare/internal/price/infra/rest"
	"github.com/cristianortiz/gridshare/internal/shared/config"
	"github.com/cristianortiz/gridshare/internal/shared/db"
	"github.com/cristianortiz/gridshare/internal/shared/db/migrations"
	"github.com/cristianortiz/gridshare/internal/shared/httpclient"
	"github.com/cristianortiz/gridshare/internal/shared/httpserver"
	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/cristianortiz/gridshare/internal/shared/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logger := logger.GetLogger()
	defer logger.Sync()

	logger.Info("Starting gridshare server...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	offerRepo, closeStore, err := openOfferStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Offer store unavailable", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	distanceClient := httpclient.New(httpclient.Config{Name: "distance", Timeout: cfg.DistanceTimeout, RateLimit: cfg.UpstreamRateLimit})
	distances := distance.NewMatrixCalculator(distanceClient, cfg.DistanceBaseURL, cfg.DistanceAPIKey)
	if cfg.DistanceAPIKey == "" {
		logger.Warn("DISTANCE_API_KEY not set, listing searches will fail")
	}

	publisher := offerws.NewPublisher(hub)
	offerService := offerapp.NewOfferService(
		offerapp.NewCreateOfferUseCase(offerRepo, publisher, time.Now),
		offerapp.NewUpdateOfferUseCase(offerRepo, publisher, time.Now),
		offerapp.NewSearchOffersUseCase(offerRepo, distances, cfg.DistanceTimeout),
		offerapp.NewQueryUserOffersUseCase(offerRepo),
	)

	priceCache, closeCache := openPriceCache(cfg)
	defer closeCache()
	// one breaker per provider
	aesoClient := httpclient.New(httpclient.Config{Name: "aeso", Timeout: 10 * time.Second, RateLimit: cfg.UpstreamRateLimit})
	eiaClient := httpclient.New(httpclient.Config{Name: "eia", Timeout: 10 * time.Second, RateLimit: cfg.UpstreamRateLimit})
	priceService := priceapp.NewPriceService(
		aeso.NewSource(aesoClient, cfg.AESOReportURL),
		eia.NewSource(eiaClient, cfg.EIABaseURL, cfg.EIAAPIKey),
		priceCache,
		cfg.PriceCacheTTL,
	)

	poller, err := priceapp.NewPoller(priceService, cfg.PricePollSpec, cfg.PricePollStates)
	if err != nil {
		logger.Fatal("Invalid price poll schedule", zap.Error(err))
	}
	poller.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		poller.Stop(stopCtx)
	}()

	server := httpserver.NewServer(
		offerrest.NewOfferHandler(offerService),
		pricerest.NewPriceHandler(priceService),
	)
	wsHandler := offerws.NewOfferWSHandler(offerService, hub)
	wsHandler.RegisterRoutes(ctx, server.App())
	go wsHandler.ListenForMessages(ctx)

	if err := server.Start(ctx, cfg.HTTPAddr); err != nil {
		logger.Error("HTTP server failed", zap.Error(err))
	}
}

// openOfferStore selects the offer repository named by STORE_DRIVER and
// brings its schema up to date.
func openOfferStore(ctx context.Context, cfg *config.Config) (offerdomain.OfferRepository, func(), error) {
	log := logger.GetLogger()
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("Using in-memory offer store, data is lost on restart")
		return memory.NewOfferRepository(), func() {}, nil

	case config.StoreDriverSQLite:
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunSQLiteMigrations(conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return sqlite.NewOfferRepository(conn), func() { conn.Close() }, nil

	default:
		pool, err := db.GetPostgresDBPool(ctx, cfg.DataNamespace)
		if err != nil {
			return nil, nil, err
		}
		if err := db.EnsureNamespace(ctx, pool, cfg.DataNamespace); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("Running database migrations...")
		if err := migrations.RunPostgresMigrations(db.BuildPostgresDSN(cfg.DataNamespace)); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewOfferRepository(pool), pool.Close, nil
	}
}

func openPriceCache(cfg *config.Config) (pricedomain.PriceCache, func()) {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return cache.NewRedisCache(client, cfg.DataNamespace), func() { _ = client.Close() }
}
