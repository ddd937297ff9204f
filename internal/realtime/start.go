package realtime

import (
	"context"
	"fmt"
	"time"

	"restaurant-ops/internal/auth"
	"restaurant-ops/internal/config"
	"restaurant-ops/internal/connections/rabbitmq"
	"restaurant-ops/internal/logger"
)

// Run wires the realtime gateway: the TCP server for client connections, the
// broker consumer feeding the hub, and the liveness reaper.
func Run(ctx context.Context, cfg config.Config, lg *logger.Logger) error {
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
	reg := NewRegistry()
	hub := NewHub(reg, lg)

	srv := NewServer(ServerConfig{
		Addr:             cfg.Realtime.Addr,
		HandshakeTimeout: cfg.Realtime.HandshakeTimeout(),
		QueueSize:        cfg.Realtime.OutboundQueueSize,
	}, verifier, reg, hub, lg)
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Realtime.Addr, err)
	}

	reaper := NewReaper(reg, cfg.Realtime.ReapInterval(), cfg.Realtime.IdleThreshold(), lg)
	go reaper.Run(ctx)

	consumer := NewConsumer(mq, hub, lg)
	errCh := make(chan error, 1)
	go func() { errCh <- consumer.Run(ctx) }()

	if err := srv.Serve(ctx); err != nil {
		return err
	}
	return <-errCh
}
