package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	gomongo "go.mongodb.org/mongo-driver/mongo"

	"github.com/loaderhub/order-engine/internal/api"
	"github.com/loaderhub/order-engine/internal/core/ports"
	"github.com/loaderhub/order-engine/internal/core/service"
	"github.com/loaderhub/order-engine/internal/infrastructure/db/memory"
	"github.com/loaderhub/order-engine/internal/infrastructure/db/mongo"
	"github.com/loaderhub/order-engine/internal/infrastructure/db/redis"
	"github.com/loaderhub/order-engine/internal/infrastructure/notify"
	"github.com/loaderhub/order-engine/internal/pkg/config"
	"github.com/loaderhub/order-engine/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		orders ports.OrderRepository
		users  ports.UserRepository
		opts   = service.Options{LockShards: cfg.LockShards}

		db  *gomongo.Database
		rdb *goredis.Client
	)

	switch cfg.StoreBackend {
	case "mongo":
		client, database, err := mongo.Connect(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("mongo connection failed")
		}
		defer func() {
			_ = client.Disconnect(context.Background())
		}()

		orderRepo := mongo.NewOrderRepository(database)
		if err := orderRepo.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("index creation failed")
		}

		rdb, err = redis.Connect(ctx, redis.Config{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer func() {
			_ = rdb.Close()
		}()

		db = database
		orders = orderRepo
		users = mongo.NewUserRepository(database)
		opts.Audit = mongo.NewEventRepository(database)
		opts.Idempotency = redis.NewIdempotencyStore(rdb)
		log.Info().Str("database", cfg.Mongo.Database).Msg("using mongo backend")

	default:
		orders = memory.NewOrderRepository()
		users = memory.NewUserRepository()
		opts.Audit = memory.NewEventRepository()
		opts.Idempotency = memory.NewIdempotencyStore()
		log.Info().Msg("using in-memory backend")
	}

	hub := service.NewHub(log)
	go hub.Run(ctx)

	engine := service.NewEngine(orders, users, hub, opts, log)

	if cfg.AMQP.URL != "" {
		publisher, err := notify.Dial(cfg.AMQP.URL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("amqp connection failed")
		}
		defer publisher.Close()

		sub := hub.Subscribe()
		defer hub.Unsubscribe(sub)
		go publisher.Forward(ctx, sub.C, sub.Done())
		log.Info().Msg("amqp event publisher enabled")
	}

	e := api.NewRouter(engine, users, hub, db, rdb)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
		return
	}
	log.Info().Msg("server stopped gracefully")
}
