package app

import (
	"context"
	"errors"
	"fmt"
	"gw-wallet-ledger/internal/api/handlers"
	"gw-wallet-ledger/internal/api/middlew"
	"gw-wallet-ledger/internal/config"
	"gw-wallet-ledger/internal/db"
	"gw-wallet-ledger/internal/kafka"
	"gw-wallet-ledger/internal/metrics"
	"gw-wallet-ledger/internal/nbp_client"
	"gw-wallet-ledger/internal/server"
	"gw-wallet-ledger/internal/service"
	"gw-wallet-ledger/internal/storage"
	"gw-wallet-ledger/internal/storage/postgres"
	"gw-wallet-ledger/internal/storage/redisstore"
	"gw-wallet-ledger/migrations"
	"gw-wallet-ledger/pkg/logger"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
)

type App struct {
	log           *slog.Logger
	logFile       *logger.LoggerWithFile
	cfg           *config.Config
	server        *server.Server
	metrics       *metrics.Metrics
	walletRepo    storage.WalletRepository
	rateCache     *service.RateCache
	identity      service.IdentityResolver
	walletService *service.WalletService
	kafkaProducer kafka.Producer
}

func NewApp() (*App, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации конфига: %w", err)
	}

	loggerWithFile, err := logger.NewLoggerWithFile(cfg.LogFile, logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	log := loggerWithFile.Logger
	log.Info("инициализация приложения",
		slog.String("port", cfg.HTTPPort),
		slog.String("storage", cfg.StorageDriver),
		slog.String("auth_mode", cfg.Auth.Mode))

	m := metrics.New()

	walletRepo, err := newWalletRepository(context.Background(), cfg, log)
	if err != nil {
		_ = loggerWithFile.Close()
		return nil, err
	}

	var kafkaProducer kafka.Producer
	if cfg.Kafka.Enabled {
		log.Info("инициализация kafka producer", slog.Any("brokers", cfg.Kafka.Brokers))
		kafkaProducer, err = kafka.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			walletRepo.Close()
			_ = loggerWithFile.Close()
			return nil, fmt.Errorf("ошибка инициализации kafka: %w", err)
		}
	} else {
		log.Info("kafka отключен в конфигурации")
		kafkaProducer = kafka.NewNoOpProducer(log)
	}

	ratesClient := nbp_client.NewClient(nbp_client.Config{
		URL:          cfg.Rates.APIURL,
		Timeout:      cfg.Rates.HTTPTimeout,
		MaxAttempts:  cfg.Rates.MaxAttempts,
		RetryBackoff: cfg.Rates.RetryBackoff,
	}, m, log)

	a := newApp(cfg, log, m, walletRepo, ratesClient, kafkaProducer)
	a.logFile = loggerWithFile
	a.server.RegisterSwagger()

	return a, nil
}

// newApp wires services and the HTTP server around already constructed infrastructure.
func newApp(
	cfg *config.Config,
	log *slog.Logger,
	m *metrics.Metrics,
	walletRepo storage.WalletRepository,
	fetcher service.RateFetcher,
	kafkaProducer kafka.Producer,
) *App {
	// refresh must outlive all fetch attempts and their backoff
	fetchTimeout := time.Duration(cfg.Rates.MaxAttempts)*cfg.Rates.HTTPTimeout +
		cfg.Rates.RetryBackoff<<max(cfg.Rates.MaxAttempts-1, 0)

	rateCache := service.NewRateCache(fetcher, cfg.Rates.RefreshInterval, fetchTimeout, m, log)

	var identity service.IdentityResolver
	switch cfg.Auth.Mode {
	case config.AuthModeJWT:
		identity = service.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration)
	default:
		identity = service.NewPlainTokenResolver()
	}

	srv := server.NewServer(server.Options{
		Port:           cfg.HTTPPort,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        m,
		Log:            log,
	})
	srv.RegisterMetrics(m)
	srv.Router.Get("/health", handlers.Health)

	return &App{
		log:           log,
		cfg:           cfg,
		server:        srv,
		metrics:       m,
		walletRepo:    walletRepo,
		rateCache:     rateCache,
		identity:      identity,
		kafkaProducer: kafkaProducer,
	}
}

func newWalletRepository(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.WalletRepository, error) {
	switch cfg.StorageDriver {
	case config.StorageRedis:
		client, err := redisstore.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("не удалось подключиться к redis: %w", err)
		}
		log.Info("подключение к redis установлено", slog.String("addr", cfg.Redis.Addr))
		return redisstore.NewWalletRepository(client, log), nil

	default:
		log.Info("выполнение миграций базы данных")
		if err := db.RunMigrations(cfg.DB.MigrationURL(), migrations.FS); err != nil {
			return nil, fmt.Errorf("ошибка выполнения миграций: %w", err)
		}
		log.Info("миграции успешно применены")

		pool, err := db.NewPool(ctx, cfg.DB.DSN(), db.DefaultPoolConfig(), log)
		if err != nil {
			return nil, fmt.Errorf("не удалось подключиться к базе данных: %w", err)
		}
		log.Info("подключение к базе данных установлено")

		return postgres.NewWalletRepository(pool, db.NewPgxTxManager(pool)), nil
	}
}

func (a *App) BuildAuthLayer() {
	authHandler := handlers.NewAuthHandler(a.identity)

	a.server.Router.Post("/token", authHandler.Token)

	a.log.Info("слой 'auth' собран и маршруты зарегистрированы")
}

func (a *App) BuildWalletLayer() error {
	if a.identity == nil {
		err := errors.New("identity resolver not initialized")
		a.log.Error(err.Error())
		return err
	}
	if a.kafkaProducer == nil {
		err := errors.New("kafkaProducer not initialized")
		a.log.Error(err.Error())
		return err
	}

	a.walletService = service.NewWalletService(
		a.walletRepo,
		a.rateCache,
		a.kafkaProducer,
		a.cfg.Rates.ReferenceCurrency,
		a.log,
	)
	walletHandler := handlers.NewWalletHandler(a.walletService)

	a.server.Router.Group(func(r chi.Router) {
		r.Use(middlew.RequireAuth(a.identity))

		r.Get("/wallet", walletHandler.GetWallet)
		r.Get("/wallet/", walletHandler.GetWallet)
		r.Post("/wallet/add/{currency}/{amount}", walletHandler.Add)
		r.Post("/wallet/sub/{currency}/{amount}", walletHandler.Subtract)
		r.Post("/wallet/set/{currency}/{amount}", walletHandler.Set)
	})

	a.log.Info("слой 'wallet' собран и маршруты зарегистрированы")
	return nil
}

func (a *App) BuildExchangeLayer() {
	exchangeHandler := handlers.NewExchangeHandler(a.rateCache, a.rateCache.Interval(), a.cfg.Rates.ReferenceCurrency)

	a.server.Router.Get("/rates", exchangeHandler.GetExchangeRates)

	a.log.Info("слой 'rates' собран и маршруты зарегистрированы")
}

func (a *App) Run() error {
	a.log.Info("сервер запускается")

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("ошибка запуска сервера: %w", err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		a.close(context.Background())
		return err
	case sig := <-shutdownChan:
		a.log.Info("получен сигнал завершения", slog.String("signal", sig.String()))
	}

	a.log.Info("приложение останавливается")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error("ошибка при остановке http сервера", slog.String("error", err.Error()))
	}

	a.close(ctx)

	a.log.Info("приложение остановлено")
	return nil
}

func (a *App) close(ctx context.Context) {
	if a.walletService != nil {
		a.log.Info("остановка wallet service")
		if err := a.walletService.Shutdown(ctx); err != nil {
			a.log.Error("ошибка при остановке wallet service", slog.String("error", err.Error()))
		}
	}

	if a.kafkaProducer != nil {
		if err := a.kafkaProducer.Close(); err != nil {
			a.log.Error("ошибка при закрытии kafka producer", slog.String("error", err.Error()))
		}
	}

	if a.walletRepo != nil {
		a.log.Info("закрытие хранилища кошельков")
		a.walletRepo.Close()
	}

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			a.log.Error("ошибка при закрытии файла логов", slog.String("error", err.Error()))
		}
	}
}
