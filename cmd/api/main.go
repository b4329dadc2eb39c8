package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-fulfillment-ws/internal/config"
	"go-fulfillment-ws/internal/event"
	"go-fulfillment-ws/internal/handler"
	"go-fulfillment-ws/internal/kafka"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/redisx"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/internal/service"
	"go-fulfillment-ws/internal/ws"
	"go-fulfillment-ws/pkg/database"
	"go-fulfillment-ws/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// 1. Load config
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Setup storage
	store := openStore(cfg)

	// 3. Seed the first admin so somebody can log in
	seedAdmin(ctx, store.Users(), cfg)

	// 4. Event sinks: websocket hub always, Redis and Kafka when configured
	wsHub := ws.NewHub()
	go wsHub.Run(ctx)

	events := event.NewFanout(cfg.ServiceName, wsHub)

	var orderCache service.OrderCache
	if cfg.RedisAddr != "" {
		rdb, err := redisx.New(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		cache := redisx.NewOrderCache(rdb)
		events.Add(cache)
		orderCache = cache
		log.Printf("Order status cache on redis %s", cfg.RedisAddr)
	}

	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaOrderTopic, 1024)
		producer.Start()
		events.Add(producer)
		log.Printf("Publishing order events to kafka topic %s", cfg.KafkaOrderTopic)
	}

	// 5. Dependency Injection (Wiring Layers)
	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTTTL, cfg.ServiceName)

	services := handler.Services{
		Users:     store.Users(),
		Tokens:    tokens,
		Auth:      service.NewAuthService(store.Users(), tokens, cfg.SessionIdle, events),
		User:      service.NewUserService(store.Users()),
		Catalog:   service.NewCatalogService(store, events),
		Orders:    service.NewOrderService(store, events, orderCache),
		Dashboard: service.NewDashboardService(store),
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Fulfillment Service v1.0",
		ErrorHandler: handler.ErrorHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// 7. Routes
	handler.Register(app, services)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Use("/ws", ws.Upgrade)
	app.Get("/ws", wsHub.Handler())

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if producer != nil {
		producer.Close()
		producer.WaitClosed()
	}

	log.Println("Server exited")
}

func openStore(cfg config.Config) repository.Store {
	if cfg.StoreDriver == "memory" {
		log.Println("Using in-memory store; data is lost on restart")
		return repository.NewMemoryStore()
	}

	db, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database. \n", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	return repository.NewGormStore(db)
}

// seedAdmin creates the configured admin account on first start.
func seedAdmin(ctx context.Context, users repository.UserRepository, cfg config.Config) {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return
	}

	_, err := users.FindByEmail(ctx, cfg.SeedAdminEmail)
	if err == nil {
		return
	}
	if !errors.Is(err, repository.ErrNotFound) {
		log.Printf("Warning: Failed to look up admin user: %v", err)
		return
	}

	admin := &model.User{
		Email:    cfg.SeedAdminEmail,
		FullName: "Administrator",
		Role:     model.RoleAdmin,
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"

	if err := admin.SetPassword(cfg.SeedAdminPassword); err != nil {
		log.Printf("Warning: Failed to hash admin password: %v", err)
		return
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Printf("Warning: Failed to create admin user: %v", err)
		return
	}
	log.Printf("Admin user created: %s", admin.Email)
}
