package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tableside/internal/client"
	"tableside/internal/config"
	"tableside/internal/events"
	"tableside/internal/handler"
	"tableside/internal/logger"
	"tableside/internal/repository"
	"tableside/internal/server"
	"tableside/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := client.InitSqliteClient(cfg.DatabasePath)
	if err != nil {
		log.Fatal("init cart cache", zap.Error(err))
	}
	orderClient := client.NewOrderServiceClient(&cfg.OrderService)

	var publisher *events.Publisher
	if cfg.AmqpURL != "" {
		publisher, err = events.NewPublisher(cfg.AmqpURL, log)
		if err != nil {
			log.Fatal("connect event broker", zap.Error(err))
		}
		defer publisher.Close()
	}

	cartRepo := repository.NewCartRepository(db)
	syncService := service.NewOrderSyncService(orderClient, cartRepo, log)
	cartService := service.NewCartService(cartRepo, syncService, log)
	orderService := service.NewOrderService(orderClient, cartRepo, syncService, publisher, log)
	coordinator := service.NewPaymentCoordinator(orderClient, cartRepo, syncService, publisher, cfg.Payment, log)

	cartHandler := handler.NewCartHandler(cartService)
	tableHandler := handler.NewTableHandler(orderClient, cartRepo)
	orderHandler := handler.NewOrderHandler(orderService, coordinator)
	paymentHandler := handler.NewPaymentHandler(coordinator)

	srv := server.NewServer(cfg.Auth.JWTSecret, log, cartHandler, tableHandler, orderHandler, paymentHandler)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", zap.String("addr", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	coordinator.Shutdown()

	if err := srv.Shutdown(); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
}
