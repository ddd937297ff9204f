package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"restaurant-ops/internal/config"
	"restaurant-ops/internal/logger"
	"restaurant-ops/internal/orderservice"
	"restaurant-ops/internal/realtime"
)

func main() {
	mode := flag.String("mode", "", "order-service | realtime-gateway")
	cfgPath := flag.String("config", "config.yaml", "path to YAML config")
	port := flag.Int("port", 0, "order-service: override HTTP port")
	addr := flag.String("addr", "", "realtime-gateway: override listen address")
	flag.Parse()

	lg := logger.New("bootstrap")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": *cfgPath})
		os.Exit(1)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	if *addr != "" {
		cfg.Realtime.Addr = *addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "order-service":
		lg.Info("service_started", map[string]any{"service": "order-service", "port": cfg.HTTP.Port})
		if err := orderservice.Run(ctx, cfg, logger.New("order-service")); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "realtime-gateway":
		lg.Info("service_started", map[string]any{"service": "realtime-gateway", "addr": cfg.Realtime.Addr})
		if err := realtime.Run(ctx, cfg, logger.New("realtime-gateway")); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: order-service | realtime-gateway")
		os.Exit(2)
	}
}
