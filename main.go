package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"canteen/internal/analytics"
	"canteen/internal/cart"
	"canteen/internal/checkout"
	"canteen/internal/config"
	"canteen/internal/database"
	"canteen/internal/handlers"
	applog "canteen/internal/logger"
	"canteen/internal/middleware"
	"canteen/internal/orders"
	"canteen/internal/storage/memory"
	"canteen/internal/storage/mongostore"
)

type backend struct {
	orders interface {
		orders.Store
		orders.Reader
	}
	menu   handlers.MenuCatalog
	carts  cart.Storage
	health func(ctx context.Context) error
	close  func()
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal("failed to load config: ", err)
	}
	cfg := config.AppEnv

	logger, err := applog.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	store, err := openBackend(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer store.close()

	engine := orders.NewEngine(store.orders, store.menu, orders.EngineConfig{
		ReserveStock:       cfg.ReserveStock,
		RepriceConcurrency: cfg.RepriceConcurrency,
	}, logger)
	reads := orders.NewReadModel(store.orders)
	carts := cart.NewService(store.carts, logger)
	flow := checkout.NewService(carts, engine, checkout.Config{
		GatewayURL:           cfg.PaymentGatewayURL,
		SessionTTL:           cfg.CheckoutSessionTTL,
		SimulateConfirmAfter: cfg.PaymentSimulateAfter,
	}, logger)
	insights := analytics.NewService(reads, analytics.ScriptRunner{
		Interpreter: cfg.AnalyticsPython,
		Dir:         filepath.Clean(cfg.AnalyticsScriptDir),
		Timeout:     cfg.AnalyticsTimeout,
	}, logger)

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.RegisterValidators(); err != nil {
		logger.Fatal("failed to register validators", zap.Error(err))
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	handlers.Register(r, handlers.Deps{
		Engine:       engine,
		Reads:        reads,
		Carts:        carts,
		Checkout:     flow,
		Menu:         store.menu,
		Analytics:    insights,
		Health:       store.health,
		JWTSecret:    cfg.JWTSecret,
		PollInterval: cfg.TrackingPollInterval,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server",
			zap.String("port", cfg.Port),
			zap.String("storage", cfg.StorageBackend),
			zap.Bool("reserve_stock", cfg.ReserveStock))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

func openBackend(cfg config.Config, logger *zap.Logger) (backend, error) {
	if cfg.StorageBackend == config.BackendMemory {
		menu := memory.NewMenu()
		logger.Warn("using in-memory storage; data is lost on restart")
		return backend{
			orders: memory.NewOrderStore(menu),
			menu:   menu,
			carts:  memory.NewCartStorage(),
			close:  func() {},
		}, nil
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		return backend{}, err
	}
	db := client.Database(cfg.DBName)
	logger.Info("MongoDB connected", zap.String("database", db.Name()))

	ensureIndexes(db, logger)

	return backend{
		orders: mongostore.NewOrderStore(db),
		menu:   mongostore.NewMenu(db),
		carts:  mongostore.NewCartStorage(db),
		health: func(ctx context.Context) error { return database.Ping(ctx, db) },
		close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				logger.Warn("mongo disconnect failed", zap.Error(err))
			}
		},
	}, nil
}

func ensureIndexes(db *mongo.Database, logger *zap.Logger) {
	if err := database.EnsureOrderIndexes(db, logger); err != nil {
		logger.Warn("order index warning", zap.Error(err))
	}
	if err := database.EnsureMenuIndexes(db, logger); err != nil {
		logger.Warn("menu index warning", zap.Error(err))
	}
	if err := database.EnsureCartIndexes(db, logger); err != nil {
		logger.Warn("cart index warning", zap.Error(err))
	}
}
