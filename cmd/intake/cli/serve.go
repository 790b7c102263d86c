package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fortina-rp/intake/internal/server"
	"github.com/fortina-rp/intake/internal/service"
)

func newServeCmd() *cobra.Command {
	var (
		port      int
		host      string
		staticDir string
		dev       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the intake HTTP server",
		Long:  "Start the HTTP server that accepts applicant submissions and serves the staff admin API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, staticDir, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 3000, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "directory of the public site to serve (empty disables)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.static_dir", cmd.Flags().Lookup("static-dir"))

	return cmd
}

func runServe(host string, port int, staticDir string, dev bool) error {
	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	if staticDir == "" {
		staticDir = fileCfg.Server.StaticDir
	}

	// 1. Open the backing store and run migrations.
	store, err := openStore(fileCfg.Storage)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()
	logger.Info("store initialized", "driver", storageDriverName(fileCfg.Storage.Driver))

	// 2. Session table and auth service.
	sessions := service.NewMemorySessionStore()
	authSvc := service.NewAuthService(store, sessions, fileCfg.Auth.ParsedSessionTTL())

	// 3. Seed bootstrap accounts from the operator-supplied config.
	// Idempotent: existing accounts are never touched.
	if len(fileCfg.Auth.Bootstrap) > 0 {
		if err := authSvc.Seed(context.Background(), fileCfg.Auth.Bootstrap); err != nil {
			return fmt.Errorf("seed bootstrap accounts: %w", err)
		}
		logger.Info("bootstrap accounts seeded", "count", len(fileCfg.Auth.Bootstrap))
	} else {
		logger.Warn("no bootstrap accounts configured - run: intake admin create")
	}

	// 4. Optional session sweeper.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if interval := fileCfg.Auth.ParsedSweepInterval(); interval > 0 {
		go service.StartSweeper(ctx, sessions, interval, logger)
		logger.Info("session sweeper started", "interval", interval)
	}

	// 5. Build and start the HTTP server.
	srvCfg := server.Config{
		Host:               host,
		Port:               port,
		ShutdownTimeout:    fileCfg.Server.ParsedShutdownTimeout(),
		CORSOrigins:        fileCfg.Server.CORSOrigins,
		StaticDir:          staticDir,
		LoginRatePerMinute: fileCfg.Auth.LoginRate,
		RepairAccount:      fileCfg.Auth.Repair,
	}
	srv := server.New(srvCfg, store, authSvc, sessions, logger)

	if err := writePID(os.Getpid()); err != nil {
		logger.Warn("failed to write PID file", "error", err)
	}
	defer removePID()

	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ Liveness:  http://%s:%d/api/ping\n", host, port)
	fmt.Printf("→ Readiness: http://%s:%d/healthz\n", host, port)
	if staticDir != "" {
		fmt.Printf("→ Serving static site from %s\n", staticDir)
	}
	fmt.Println()

	return srv.ListenAndServe()
}

func storageDriverName(driver string) string {
	if driver == "" {
		return "sqlite"
	}
	return driver
}
