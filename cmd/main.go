package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"storefront/config"
	"storefront/internal/clients"
	"storefront/internal/delivery/cli"
	"storefront/internal/repository"
	"storefront/internal/state"
	"storefront/internal/usecase"
	"storefront/pkg/kv"

	"github.com/sirupsen/logrus"
)

func setupLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func openStore(cfg *config.Config, logger *logrus.Logger) (repository.KeyValueStore, func(), error) {
	switch cfg.StoreBackend {
	case "redis":
		client, err := kv.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using Redis for session and cart storage")
		return repository.NewRedisStore(client, cfg.StoreKeyPrefix, logger), func() { _ = client.Close() }, nil
	case "file", "":
		store, err := repository.NewFileStore(cfg.StoreDir, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("Using %s for session and cart storage", cfg.StoreDir)
		return store, func() {}, nil
	default:
		return nil, nil, errors.New("unknown STORE_BACKEND " + cfg.StoreBackend)
	}
}

func main() {
	bootLogger := setupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg, err := config.LoadConfig(bootLogger)
	if err != nil {
		bootLogger.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

	policy, err := usecase.ParseLoginCartPolicy(cfg.CartLoginPolicy)
	if err != nil {
		logger.Fatalf("FATAL: %v", err)
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("FATAL: Failed to open storage: %v", err)
	}
	defer closeStore()

	st := state.New(repository.NewTokenRepository(store, cfg.TokenKey, logger), logger)

	api, err := clients.NewAPIClient(cfg.APIBaseURL, cfg.RequestTimeout, clients.AuthHooks{Tokens: st, Unauthorized: st}, logger)
	if err != nil {
		logger.Fatalf("FATAL: Failed to create API client: %v", err)
	}

	sessionUseCase := usecase.NewSessionUseCase(st, clients.NewAuthClient(api, logger),
		usecase.SessionOptions{RegisterAutoLogin: cfg.RegisterAutoLogin}, logger)
	cartUseCase := usecase.NewCartUseCase(st, clients.NewCartClient(api, logger),
		repository.NewCartRepository(store, cfg.CartKey, logger), policy, logger)
	catalogUseCase := usecase.NewCatalogUseCase(clients.NewCatalogClient(api, logger), cfg.PageSize, logger)
	orderClient := clients.NewOrderClient(api, logger)
	checkoutUseCase := usecase.NewCheckoutUseCase(orderClient, cartUseCase, logger)
	orderUseCase := usecase.NewOrderUseCase(orderClient, st, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap := sessionUseCase.Restore(ctx)
	logger.Debugf("Session restored: phase=%s", snap.Phase)

	handler := cli.NewHandler(sessionUseCase, cartUseCase, catalogUseCase, checkoutUseCase, orderUseCase, os.Stdout, logger)
	if err := handler.Run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Errorf("%v", err)
		stop()
		closeStore()
		os.Exit(1)
	}
}
