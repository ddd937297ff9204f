package orderservice

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"restaurant-ops/internal/auth"
	"restaurant-ops/internal/chat"
	"restaurant-ops/internal/config"
	"restaurant-ops/internal/connections/database"
	"restaurant-ops/internal/connections/rabbitmq"
	"restaurant-ops/internal/events"
	"restaurant-ops/internal/httpx"
	"restaurant-ops/internal/logger"
	"restaurant-ops/internal/order"
)

// Run wires the HTTP order service: Postgres, RabbitMQ publisher, order and
// chat services, and the REST surface behind bearer auth.
func Run(ctx context.Context, cfg config.Config, lg *logger.Logger) error {
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	lg.Info("database_connected", map[string]any{
		"host": cfg.Database.Host, "database": cfg.Database.Database,
	})

	mq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer mq.Close()
	if err := mq.DeclareTopology(); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}
	lg.Info("rabbitmq_connected", map[string]any{"host": cfg.RabbitMQ.Host})

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL)*time.Hour)
	pub := events.NewPublisher(mq, "order-service")

	orderSvc := order.NewService(order.NewPGStore(pool), pub, lg)
	chatSvc := chat.NewService(chat.NewPGStore(pool), pub, lg)
	login := &auth.LoginHandler{Users: auth.NewPGUserStore(pool), Verifier: verifier}

	api := http.NewServeMux()
	order.NewHandler(orderSvc).Register(api)
	chat.NewHandler(chatSvc).Register(api)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", login.Login)
	mux.Handle("/api/v1/", auth.Middleware(verifier)(api))

	srv := httpx.New(":"+strconv.Itoa(cfg.HTTP.Port), mux)
	lg.Info("service_started", map[string]any{"port": cfg.HTTP.Port})
	return srv.Run(ctx)
}
