package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_storefront/internal/cart/cache"
	"github.com/fjod/go_storefront/internal/cart/repository"
	cartservice "github.com/fjod/go_storefront/internal/cart/service"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/cms"
	"github.com/fjod/go_storefront/internal/config"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/logger"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/publisher"
	"github.com/fjod/go_storefront/internal/reconcile"
	outbox "github.com/fjod/go_storefront/internal/reconcile/repository"
	"github.com/fjod/go_storefront/internal/reviews"
	"github.com/fjod/go_storefront/internal/search"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("storefront stopped", zap.Error(err))
	}
}

// warnInsecureConfig reports payment secrets left unset. The service still starts so local
// environments work without them.
func warnInsecureConfig(cfg *config.Config, zlog *zap.Logger) {
	if cfg.PaymentEventsSecret == "" {
		zlog.Warn("PAYMENT_EVENTS_SECRET is not set, webhook checksum verification is disabled")
	}
	if cfg.PaymentIntegritySecret == "" && cfg.PaymentSignatureURL == "" {
		zlog.Warn("PAYMENT_INTEGRITY_SECRET is not set, checkout signatures cannot be computed")
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	warnInsecureConfig(cfg, zlog)

	// Redis: cart cache, checkout sessions, webhook idempotency
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	zlog.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	cartRepo, closeRepo, err := openCartRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()
	zlog.Info("cart store ready", zap.String("backend", cfg.CartStore))

	creds := &outbox.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	events, err := outbox.NewRepository(creds)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer events.Close()
	if err := events.RunMigrations(creds); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	zlog.Info("outbox migrations completed")

	// Separate breakers: catalog traffic (search-as-you-type) must not take checkout down with it.
	cmsClient := cms.NewClient(cfg.CMSURL, cfg.CMSAPIToken, cfg.RequestTimeout, cms.WithBreakerName("cms-orders"))
	catalogCMS := cms.NewClient(cfg.CMSURL, cfg.CMSAPIToken, cfg.RequestTimeout, cms.WithBreakerName("cms-catalog"))
	products := catalog.New(catalogCMS)
	orderClient := orders.NewClient(cmsClient, zlog)

	var signer payment.SignatureProvider = payment.NewIntegritySigner(cfg.PaymentIntegritySecret)
	if cfg.PaymentSignatureURL != "" {
		signer = payment.NewSignatureClient(cms.NewClient(cfg.PaymentSignatureURL, "", cfg.RequestTimeout))
	}

	carts := cartservice.NewCartService(cartRepo, cache.NewRedisCache(redisClient), products, zlog, cfg.CartIdleTTL)
	defer carts.Close()

	machine := checkout.NewMachine(
		checkout.NewRedisSessionStore(redisClient, cfg.CheckoutSessionTTL),
		carts,
		orderClient,
		signer,
		checkout.Config{
			Currency:         cfg.Currency,
			PublicKey:        cfg.PaymentPublicKey,
			ConfirmationPath: cfg.ConfirmationPath,
		},
		zlog,
	)

	reconciler := reconcile.NewReconciler(
		orders.NewAdmin(cmsClient),
		reconcile.NewRedisDeduper(redisClient, reconcile.DefaultDeliveryTTL),
		events,
		cfg.PaymentEventsSecret,
		cfg.Currency,
		zlog,
	)

	router := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(carts, cfg.RequestTimeout, zlog),
		Checkout: h.NewCheckoutHandler(machine, cfg.RequestTimeout, zlog),
		Orders:   h.NewOrdersHandler(orderClient, cfg.RequestTimeout),
		Search:   h.NewSearchHandler(search.NewSearcher(products, cfg.SearchDebounce, catalog.DefaultSearchLimit), zlog),
		Payment:  h.NewPaymentHandler(signer, reconciler, cfg.Currency, cfg.MaxRequestBody, zlog),
		Reviews:  h.NewReviewsHandler(reviews.NewClient(catalogCMS), cfg.RequestTimeout, zlog),
	}, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCHealthPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	poller := publisher.NewOutboxPoller(events, cfg.PaymentEventsTopic, cfg.PollInterval, zlog, cfg.KafkaBrokers...)

	var wg sync.WaitGroup
	serveErr := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	go func() {
		zlog.Info("grpc health listening", zap.String("port", cfg.GRPCHealthPort))
		if err := grpcServer.Serve(lis); err != nil {
			serveErr <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	go func() {
		zlog.Info("storefront listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http serve: %w", err)
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
	case runErr = <-serveErr:
		zlog.Error("server failed, shutting down", zap.Error(runErr))
	}

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("http server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	stop()
	wg.Wait()

	zlog.Info("storefront exited")
	return runErr
}

type indexer interface {
	CreateIndexes(ctx context.Context) error
}

// openCartRepository selects the durable cart backend from CART_STORE.
func openCartRepository(ctx context.Context, cfg *config.Config) (repository.CartRepository, func(), error) {
	switch cfg.CartStore {
	case "sqlite":
		repo, err := repository.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		if err := repo.RunMigrations(cfg.CartMigrationsPath); err != nil {
			repo.Close()
			return nil, nil, fmt.Errorf("failed to run cart migrations: %w", err)
		}
		return repo, func() { repo.Close() }, nil
	default:
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoRepository(db)
		if ix, ok := repo.(indexer); ok {
			if err := ix.CreateIndexes(ctx); err != nil {
				return nil, nil, fmt.Errorf("failed to create cart indexes: %w", err)
			}
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Client().Disconnect(disconnectCtx)
		}
		return repo, closeFn, nil
	}
}
