package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sinfiltro/internal/cache"
	"sinfiltro/internal/config"
	"sinfiltro/internal/repository"
	"sinfiltro/internal/service"
	"sinfiltro/internal/transport/rest"
	"sinfiltro/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal().Err(err).Msg("failed to ping MongoDB")
	}
	log.Info().Msg("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping Redis")
	}
	log.Info().Msg("connected to Redis")

	// WebSocket hub
	wsHub := ws.NewHub()

	// Repositories
	roomRepo := repository.NewRoomRepo(db)
	playerRepo := repository.NewPlayerRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	contentRepo := repository.NewContentRepo(db)

	// Caches
	roomCache := cache.NewRoomCache(rdb)
	presenceCache := cache.NewPresenceCache(rdb)
	leaderboard := cache.NewLeaderboardCache(rdb)

	// Services. One dispatcher so roster admission and game mutations for a
	// room share a single writer.
	dispatcher := service.NewRoomDispatcher()
	authSvc := service.NewAuthService(cfg.JWTSecret)
	contentSvc := service.NewContentService(contentRepo)
	roomSvc := service.NewRoomService(roomRepo, playerRepo, roomCache, authSvc)
	playerSvc := service.NewPlayerService(playerRepo, roomRepo, roomSvc, presenceCache, leaderboard, authSvc, dispatcher)
	gameSvc := service.NewGameService(roomRepo, playerRepo, sessionRepo, contentSvc, roomSvc, leaderboard, dispatcher)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	roomSvc.SetBroadcaster(wsHub)
	playerSvc.SetBroadcaster(wsHub)
	gameSvc.SetBroadcaster(wsHub)

	router := rest.NewRouter(&rest.Container{
		AuthService:   authSvc,
		RoomService:   roomSvc,
		PlayerService: playerSvc,
		GameService:   gameSvc,
		WSHub:         wsHub,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen and serve")
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
