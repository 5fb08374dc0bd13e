package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openbotauth/openbotauth-go/internal/config"
	"github.com/openbotauth/openbotauth-go/internal/logger"
	"github.com/openbotauth/openbotauth-go/internal/server"
	"github.com/openbotauth/openbotauth-go/internal/version"
)

func main() {
	cmd := &cobra.Command{
		Use:   "botauth-gateway",
		Short: "OpenBotAuth verification gateway server",
		Long: `botauth-gateway verifies OpenBotAuth (RFC 9421) message signatures on inbound
requests by delegating to a remote verifier service, and enforces the outcome
in observe or require mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("VERIFIER_URL", cfg.VerifierURL),
		slog.String("ENFORCEMENT_MODE", cfg.EnforcementMode),
		slog.Duration("VERIFIER_TIMEOUT", cfg.VerifierTimeout),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	gateway, err := server.NewServer(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := gateway.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
