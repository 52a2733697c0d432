package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mxkrv/novellib-backend/internal/api"
	"github.com/mxkrv/novellib-backend/internal/config"
	"github.com/mxkrv/novellib-backend/internal/handler"
	"github.com/mxkrv/novellib-backend/internal/infrastructure/auth"
	"github.com/mxkrv/novellib-backend/internal/infrastructure/kafka"
	"github.com/mxkrv/novellib-backend/internal/infrastructure/redis"
	"github.com/mxkrv/novellib-backend/internal/observability"
	core "github.com/mxkrv/novellib-backend/internal/repository/postgres"
	service "github.com/mxkrv/novellib-backend/internal/services"

	_ "github.com/lib/pq"
)

func main() {
	// Инициализируем логи, метрики, трейсы
	shutdown, _ := observability.Setup("novellib-backend")
	defer shutdown(context.Background())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Подключаемся к Postgres
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	// Инициализируем зависимости
	userRepo := core.NewPostgresUserRepository(db)
	teamRepo := core.NewPostgresTeamRepository(db)
	notificationRepo := core.NewPostgresNotificationRepository(db)
	redisClient := redis.NewClient(cfg.RedisAddr)
	defer redisClient.Close()
	kafkaProducer := kafka.NewProducer(cfg.KafkaBrokers)
	defer kafkaProducer.Close()

	codec, err := auth.NewTokenCodec(
		[]byte(cfg.AccessSecret),
		[]byte(cfg.RefreshSecret),
		[]byte(cfg.InviteSecret),
		cfg.TokenIssuer,
		cfg.TokenAudience,
	)
	if err != nil {
		log.Fatalf("Failed to build token codec: %v", err)
	}
	hasher := auth.NewBcryptHasher()

	sessionSvc := service.NewSessionService(userRepo, codec, hasher, redisClient, kafkaProducer)
	inviteSvc := service.NewInviteService(teamRepo, userRepo, notificationRepo, codec, kafkaProducer)

	// Консьюмер событий уведомлений
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	notificationConsumer := kafka.NewConsumer(cfg.KafkaBrokers, "notifications", "novellib-backend-group", redisClient)
	go notificationConsumer.Consume(consumerCtx)
	defer notificationConsumer.Close()
	defer cancelConsumer()

	// Настраиваем роутер
	h := handler.NewHandler(sessionSvc, inviteSvc)
	router := api.SetupRouter(h, sessionSvc)

	// Запускаем сервер
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
