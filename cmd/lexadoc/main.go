package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"lexadoc/internal/config"
	"lexadoc/internal/logger"
	"lexadoc/internal/service"
	"lexadoc/internal/transport"
	"lexadoc/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, server string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/lexadoc/config.yaml if not provided)")
	flag.StringVar(&server, "server", "", "Backend base URL, overrides config and environment")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, cfgPath, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.ApplyEnv(cfg); err != nil {
		log.Fatalf("invalid environment: %v", err)
	}
	if server != "" {
		cfg.Server.BaseURL = strings.TrimRight(server, "/")
	}

	zl, err := logger.NewFileLogger(logger.Options{
		FilePath:   cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer zl.Sync()
	zl.Info("main", "starting", map[string]interface{}{
		"config": cfgPath, "base_url": cfg.Server.BaseURL, "server_logout": cfg.ServerLogoutEnabled(),
	})

	client, err := transport.NewClient(transport.Config{
		BaseURL: cfg.Server.BaseURL,
		Timeout: cfg.Timeout(),
		Logger:  zl,
	})
	if err != nil {
		log.Fatalf("invalid server address: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := service.NewAppService(client, service.Options{
		ServerLogout: cfg.ServerLogoutEnabled(),
		Logger:       zl,
	})
	if _, err := tea.NewProgram(tui.New(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		zl.Error("main", "tui exited", map[string]interface{}{"error": err})
		log.Fatal(err)
	}
}
