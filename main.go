package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appCheckout "github.com/shoply/checkout/internal/application/checkout"
	appStock "github.com/shoply/checkout/internal/application/stock"
	appWallet "github.com/shoply/checkout/internal/application/wallet"
	httptransport "github.com/shoply/checkout/internal/infrastructure/http"
	"github.com/shoply/checkout/internal/infrastructure/id"
	"github.com/shoply/checkout/internal/infrastructure/memory"
	"github.com/shoply/checkout/internal/infrastructure/postgres"
	"github.com/shoply/checkout/internal/infrastructure/prometrics"
	"github.com/shoply/checkout/internal/infrastructure/redislock"
	"github.com/shoply/checkout/internal/lock"
	"github.com/shoply/checkout/internal/pkg/logging"
	"github.com/shoply/checkout/internal/worker"
)

func main() {
	_ = godotenv.Load()

	serviceName := getenvDefault("SERVICE_NAME", "checkout")
	env := getenvDefault("ENV", "dev")
	baseLogger := logging.MustNewLogger(serviceName, env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, baseLogger)

	// Default registry so promhttp picks the collectors up.
	metrics := prometrics.New(prometheus.DefaultRegisterer)

	// Persistence: postgres when DATABASE_URL is set, in-memory otherwise.
	repos, cleanup, err := buildRepositories(ctx)
	if err != nil {
		baseLogger.Fatal("persistence_init_failed", zap.Error(err))
	}
	defer cleanup()

	// Lock store: redis when REDIS_ADDR is set, in-process otherwise.
	lockStore, lockCleanup, err := buildLockStore()
	if err != nil {
		baseLogger.Fatal("lock_store_init_failed", zap.Error(err))
	}
	defer lockCleanup()

	locker := lock.New(lockStore,
		lock.WithTTL(getenvDuration("LOCK_TTL", lock.DefaultTTL)),
		lock.WithWaitTimeout(getenvDuration("LOCK_WAIT_TIMEOUT", lock.DefaultWaitTimeout)),
		lock.WithWaitObserver(func(d time.Duration) {
			metrics.LockWaitSeconds.Observe(d.Seconds())
		}),
	)

	idGenerator := id.NewUUIDGenerator()

	checkoutOpts := []appCheckout.Option{appCheckout.WithMetrics(metrics)}
	if getenvBool("STOCK_LOCK", false) {
		checkoutOpts = append(checkoutOpts, appCheckout.WithStockLock(locker))
	}
	checkoutService := appCheckout.NewService(repos.checkout, repos.tx, idGenerator, checkoutOpts...)
	walletService := appWallet.NewService(repos.checkout.Wallets, idGenerator)
	stockService := appStock.NewService(repos.checkout.Stocks, appStock.WithLocker(locker))

	reconciler := worker.NewReconciler(
		repos.checkout.Orders,
		getenvDuration("RECONCILE_INTERVAL", time.Minute),
		getenvDuration("RECONCILE_OLDER_THAN", 5*time.Minute),
	)
	go reconciler.Run(ctx)

	handler := httptransport.NewHandler(checkoutService, walletService, stockService)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    getenvDefault("HTTP_ADDR", ":8080"),
		Handler: mux,
	}

	go func() {
		baseLogger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		baseLogger.Info("http_server_stopped")
	}
}

type repositories struct {
	checkout appCheckout.Repositories
	tx       appCheckout.TxManager
}

func buildRepositories(ctx context.Context) (*repositories, func(), error) {
	databaseURL := os.Getenv("DATABASE_URL")

	// Product, cart and address storage are external collaborators; the
	// in-memory adapters stand in for them in every mode.
	products := memory.NewProductRepository()
	carts := memory.NewCartRepository()
	addresses := memory.NewAddressRepository()

	if databaseURL == "" {
		return &repositories{
			checkout: appCheckout.Repositories{
				Orders:    memory.NewOrderRepository(),
				Wallets:   memory.NewWalletRepository(),
				Stocks:    memory.NewStockRepository(),
				Coupons:   memory.NewCouponRepository(),
				Products:  products,
				Carts:     carts,
				Addresses: addresses,
			},
			tx: memory.NewTxManager(),
		}, func() {}, nil
	}

	db, err := postgres.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	return &repositories{
		checkout: appCheckout.Repositories{
			Orders:    postgres.NewOrderRepository(db),
			Wallets:   postgres.NewWalletRepository(db),
			Stocks:    postgres.NewStockRepository(db),
			Coupons:   postgres.NewCouponRepository(db),
			Products:  products,
			Carts:     carts,
			Addresses: addresses,
		},
		tx: postgres.NewTxManager(db),
	}, db.Close, nil
}

func buildLockStore() (lock.Store, func(), error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return memory.NewLockStore(), func() {}, nil
	}

	cfg := redislock.DefaultConfig()
	cfg.Addr = addr
	cfg.Password = os.Getenv("REDIS_PASSWORD")
	store, err := redislock.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
