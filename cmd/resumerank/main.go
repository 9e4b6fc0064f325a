package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/neerajsharma26/resumerank/pkg/analyzer"
	"github.com/neerajsharma26/resumerank/pkg/api"
	"github.com/neerajsharma26/resumerank/pkg/api/client"
	"github.com/neerajsharma26/resumerank/pkg/config"
	"github.com/neerajsharma26/resumerank/pkg/controller"
	"github.com/neerajsharma26/resumerank/pkg/coordination"
	"github.com/neerajsharma26/resumerank/pkg/events"
	"github.com/neerajsharma26/resumerank/pkg/log"
	"github.com/neerajsharma26/resumerank/pkg/metrics"
	"github.com/neerajsharma26/resumerank/pkg/objectstore"
	"github.com/neerajsharma26/resumerank/pkg/store"
	"github.com/neerajsharma26/resumerank/pkg/supervisor"
	"github.com/neerajsharma26/resumerank/pkg/watchdog"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "resumerank",
	Short:   "resumerank - durable, crash-safe batch resume analysis engine",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("resumerank version %s\nCommit: %s\n", Version, Commit))
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (optional; env vars always override)")
	rootCmd.PersistentFlags().String("api", "http://127.0.0.1:8080", "resumerank API address, for CLI subcommands")
	rootCmd.PersistentFlags().String("owner-id", "", "Caller's owner_id for authorization")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(createBatchCmd)
	rootCmd.AddCommand(controlBatchCmd)
	rootCmd.AddCommand(getBatchCmd)
	rootCmd.AddCommand(listItemsCmd)
	rootCmd.AddCommand(teardownBatchCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the resumerank engine: API server, Worker Loop supervisor, and Watchdog",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger := log.WithComponent("main")
		metrics.SetVersion(Version)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		st := store.NewPGStore(pool)
		metrics.RegisterComponent("store", true, "connected")

		objects, err := buildObjectStore(cfg)
		if err != nil {
			return fmt.Errorf("build object store: %w", err)
		}
		metrics.RegisterComponent("objectstore", true, "ready")

		var an analyzer.Adapter = analyzer.NewAnthropicAdapter(cfg.AnthropicAPIKey, anthropic.Model(cfg.AnthropicModel))
		an = analyzer.NewCircuitBreakerAdapter(an, "analyzer", 5)

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()
		go logOperatorEvents(broker, logger)

		var coord *coordination.Coordinator
		var isLeader supervisor.IsLeader
		if cfg.CoordinationNodeID != "" {
			coord, err = coordination.New(coordination.Config{
				NodeID:   cfg.CoordinationNodeID,
				BindAddr: cfg.CoordinationBindAddr,
				DataDir:  cfg.CoordinationDataDir,
				Peers:    cfg.CoordinationPeers,
			})
			if err != nil {
				return fmt.Errorf("start coordination: %w", err)
			}
			isLeader = coord.IsLeader
			defer coord.Shutdown()
		}

		sup := supervisor.New(supervisor.Config{
			ReconcileInterval: 5 * time.Second,
			LeaseDuration:     cfg.LeaseDuration(),
			WorkerBackoffBase: cfg.WorkerBackoffBase(),
			IdleRetryInterval: time.Second,
		}, st, objects, an, broker, isLeader)
		go sup.Run(ctx)
		defer sup.Stop()
		metrics.RegisterComponent("supervisor", true, "running")

		wd := watchdog.New(st, broker, cfg.WatchdogInterval())
		go wd.Run(ctx)
		defer wd.Stop()
		metrics.RegisterComponent("watchdog", true, "running")

		ctrl := controller.New(st, objects, sup, broker, cfg.MaxRetries)
		server := api.NewServer(ctrl, cfg.CORSOrigins)
		metrics.RegisterComponent("api", true, "ready")

		httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: server}
		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ListenAddr).Msg("api server listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("shutdown signal received")
		case err := <-errCh:
			logger.Error().Err(err).Msg("api server error")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("api server shutdown did not complete cleanly")
		}
		return nil
	},
}

func buildObjectStore(cfg config.Config) (objectstore.Gateway, error) {
	if cfg.S3Endpoint == "" {
		return objectstore.NewLocalGateway(cfg.StorageBucket)
	}
	minioClient, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return objectstore.NewS3Gateway(minioClient, cfg.StorageBucket), nil
}

func logOperatorEvents(broker *events.Broker, logger zerolog.Logger) {
	sub := broker.Subscribe()
	for evt := range sub {
		logger.Info().Str("type", string(evt.Type)).Str("batch_id", evt.BatchID).Msg(evt.Message)
	}
}

func apiClient(cmd *cobra.Command) *client.Client {
	addr, _ := cmd.Flags().GetString("api")
	return client.New(addr)
}
