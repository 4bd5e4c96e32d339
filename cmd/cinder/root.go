package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"goflare.io/cinder"
)

const version = "0.1.0"

var envReplacer = strings.NewReplacer("-", "_")

type runFunc func(ctx context.Context, v *viper.Viper) error

func newRootCmd() *cobra.Command {
	return newCommand(viper.New(), serve)
}

// newCommand builds the command tree around v; run is what serve and the bare
// root command execute.
func newCommand(v *viper.Viper, run runFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "cinder",
		Short:        "In-memory TTL cache speaking the memcached ASCII protocol",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfigFile(v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "optional YAML config file")
	flags.String("listen", "0.0.0.0:6001", "memcached listen address")
	flags.String("admin", "127.0.0.1:9001", "admin HTTP address, empty to disable")
	flags.Duration("ttl", defaultTTL, "expiration used when a caller does not give one")
	flags.Uint64("shards", 0, "number of cache shards, 0 picks one from the CPU count")
	flags.Duration("sweep-interval", defaultSweepInterval, "how often expired entries are removed, 0 to disable")
	flags.Duration("size-sample-interval", defaultSizeSampleInterval, "how often the cache_size gauge is updated")
	flags.Int("initial-buffer", defaultInitialBuffer, "initial per-connection read buffer in bytes")
	flags.Int("max-frame", defaultMaxFrame, "largest accepted line in bytes")
	flags.Bool("debug", false, "development logging")
	_ = v.BindPFlags(flags)

	v.SetEnvPrefix("CINDER")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cache server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)
	return rootCmd
}

func loadConfigFile(v *viper.Viper) error {
	path := v.GetString("config")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		gin.SetMode(gin.DebugMode)
		return zap.NewDevelopment()
	}
	gin.SetMode(gin.ReleaseMode)
	return zap.NewProduction()
}

func serve(ctx context.Context, v *viper.Viper) error {
	logger, err := newLogger(v.GetBool("debug"))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := append(options(v), cinder.WithLogger(logger), cinder.WithVersion(version))
	c, err := cinder.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close cinder", zap.Error(err))
		}
	}()

	err = c.Run(ctx)
	if errors.Is(err, cinder.ErrServerClosed) {
		return nil
	}
	return err
}
