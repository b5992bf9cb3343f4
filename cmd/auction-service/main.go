package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"auction-ledger/internal/api/handlers"
	"auction-ledger/internal/config"
	"auction-ledger/internal/domain"
	"auction-ledger/internal/infrastructure/bolt"
	"auction-ledger/internal/infrastructure/memory"
	"auction-ledger/internal/infrastructure/mysql"
	"auction-ledger/internal/infrastructure/redis"
	"auction-ledger/internal/infrastructure/system"
	"auction-ledger/internal/infrastructure/websocket"
	"auction-ledger/internal/services"
	"auction-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Fatal("Failed to load config", "error", err)
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	log.Info("Starting auction ledger", "config", cfg.GetConfigString())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Auction store
	var store domain.AuctionStore
	switch cfg.Store.Driver {
	case "memory":
		store = memory.NewAuctionStore()
		log.Warn("Using in-memory auction store; data will not survive restarts")
	default:
		boltStore, err := bolt.New(cfg.Store.Path, bolt.Options{
			Timeout:        cfg.Store.OpenTimeout,
			MaxRecordBytes: cfg.Store.MaxRecordBytes,
		})
		if err != nil {
			log.Error("Failed to open auction store", "path", cfg.Store.Path, "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := boltStore.Close(); err != nil {
				log.Error("Failed to close auction store", "error", err)
			}
		}()
		store = boltStore
		log.Info("Opened auction store", "path", cfg.Store.Path)
	}

	// Event sinks
	eventPub := services.NewFanoutPublisher()
	var subscriber domain.EventSubscriber

	if cfg.Redis.Enabled {
		rdb := redisClient.NewClient(&redisClient.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		log.Info("Connected to Redis", "address", cfg.Redis.Address)

		eventPub.Add(redis.NewEventPublisher(rdb, cfg.Redis.Channel))
		subscriber = redis.NewRedisEventSubscriber(rdb, cfg.Redis.Channel, log)
	} else {
		bus := services.NewLocalEventBus(256, log)
		eventPub.Add(bus)
		subscriber = bus
	}

	var eventLog domain.EventLog
	if cfg.MySQL.Enabled {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			log.Error("Failed to connect to MySQL", "error", err)
			os.Exit(1)
		}
		defer func(db *sql.DB) {
			if err := db.Close(); err != nil {
				log.Error("Failed to close MySQL connection", "error", err)
			}
		}(db)

		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			log.Error("Failed to ping MySQL", "error", err)
			os.Exit(1)
		}

		eventRepo := mysql.NewMySQLEventRepository(db)
		if err := eventRepo.EnsureSchema(ctx); err != nil {
			log.Error("Failed to create auction_events table", "error", err)
			os.Exit(1)
		}
		eventPub.Add(eventRepo)
		eventLog = eventRepo
		log.Info("Connected to MySQL audit log")
	}

	// Core
	clock := system.Clock{}
	auctionService := services.NewAuctionService(store, clock, system.UUIDGenerator{}, eventPub, log)

	// Live updates
	connManager := websocket.NewConnectionManager(log)
	broadcaster := websocket.NewWebSocketNotifier(connManager)
	eventListener := services.NewEventListener(connManager, broadcaster, log)
	wsHandler := websocket.NewWebSocketHandler(auctionService, clock, connManager, log)

	var scheduler domain.AuctionScheduler = services.NewCloseNotifier(cfg.Closer.Schedule, store, clock, eventPub, log)

	// Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","method":"${method}","uri":"${uri}","status":${status},"error":"${error}","latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
		},
		MaxAge: 86400,
	}))

	auctionHandler := handlers.NewAuctionHandler(auctionService, eventLog, log)
	auctionHandler.Register(e.Group("/api/v1"))

	e.GET("/ws/auctions/:id", wsHandler.HandleConnection)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-ledger",
			"instance":  cfg.Instance.ID,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Background services
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if err := scheduler.Start(bgCtx); err != nil {
		log.Error("Failed to start close notifier", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := eventListener.Start(bgCtx, subscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting auction ledger server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction ledger...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := scheduler.Stop(); err != nil {
		log.Error("Failed to stop close notifier", "error", err)
	}
	bgCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Auction ledger stopped")
}
