package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"coaster_go/internal/config"
	"coaster_go/internal/server"
	"coaster_go/pkg/logger"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:          "coaster-server",
		Short:        "Servidor de telemetria da montanha-russa de TVS",
		Version:      server.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "arquivo de configuração (json ou yaml)")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	logger.Init()
	defer logger.Sync()

	displayBanner()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("erro ao carregar configurações: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("Nível de log inválido %q, usando INFO", cfg.Log.Level)
		level = logger.INFO
	}
	logger.SetLevel(level)

	if cfg.Log.Dir != "" {
		if err := os.MkdirAll(cfg.Log.Dir, 0o755); err != nil {
			logger.Warnf("Não foi possível criar diretório de logs %s: %v", cfg.Log.Dir, err)
		} else if err := logger.EnableFileLogging(cfg.Log.Dir, "coaster"); err != nil {
			logger.Warnf("Log em arquivo desabilitado: %v", err)
		}
	}

	logger.Infof("Configuração carregada: fonte %s, %d grupos, %d fps, Redis em %s:%d",
		sourceOrigin(cfg), cfg.Track.Buckets, cfg.Simulation.FrameRate, cfg.Redis.Host, cfg.Redis.Port)

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("erro ao criar servidor: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("Desligando servidor...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Erro durante o shutdown do servidor", err)
		return err
	}

	logger.Info("Servidor encerrado com sucesso")
	return nil
}

func sourceOrigin(cfg *config.Config) string {
	if cfg.Source.File != "" {
		return cfg.Source.File
	}
	return cfg.Source.URL
}

func displayBanner() {
	banner := `
   ____                _
  / ___|___   __ _ ___| |_ ___ _ __
 | |   / _ \ / _' / __| __/ _ \ '__|
 | |__| (_) | (_| \__ \ ||  __/ |
  \____\___/ \__,_|___/\__\___|_|   TVS telemetry v` + server.Version + `
`
	fmt.Println(banner)
	fmt.Printf("Iniciando em %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
}
