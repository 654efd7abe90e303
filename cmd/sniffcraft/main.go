// Package main is the sniffcraft CLI entrypoint: load the JSON
// configuration, start the listener, and shut down cleanly on signal.
// Grounded on cmd/gate/gate.go's Run function for the logger/signal
// wiring, restructured as a cobra root command per spf13/cobra's
// standard Execute() convention.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adepierre/SniffCraft/pkg/auth"
	"github.com/adepierre/SniffCraft/pkg/config"
	"github.com/adepierre/SniffCraft/pkg/listener"
)

var (
	debug    bool
	confPath string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sniffcraft [conf_path]",
		Short: "A transparent MITM proxy that logs the Minecraft Java Edition protocol",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if len(args) == 1 {
				path = args[0]
			}
			return run(path)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable verbose logging")
	cmd.Flags().StringVar(&confPath, "conf", "", "path to conf.json (overrides the positional argument)")
	return cmd
}

func run(path string) error {
	if confPath != "" {
		path = confPath
	}

	if err := initLogger(debug); err != nil {
		return fmt.Errorf("sniffcraft: init logger: %w", err)
	}

	cfg, err := loadOrDefaultConfig(path)
	if err != nil {
		return fmt.Errorf("sniffcraft: load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("sniffcraft: invalid config: %w", err)
	}

	var authn auth.Authenticator
	if cfg.Online && cfg.MicrosoftAccountCacheKey != "" {
		zap.S().Warnw("sniffcraft: online mode requested but no cached session wiring is configured; running pass-through without impersonation", "cache_key", cfg.MicrosoftAccountCacheKey)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.LocalPort))
	if err != nil {
		return fmt.Errorf("sniffcraft: listen on port %d: %w", cfg.LocalPort, err)
	}
	zap.S().Infow("sniffcraft: listening", "port", cfg.LocalPort, "target", cfg.ServerAddress)

	l := listener.New(cfg, path, authn)

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		zap.S().Infow("sniffcraft: received signal, shutting down", "signal", s.String())
		l.Shutdown()
		cancel()
	}()
	defer func() { signal.Stop(sig); close(sig) }()

	err = l.Serve(ctx, ln)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func loadOrDefaultConfig(path string) (*config.Config, error) {
	if _, statErr := os.Stat(path); statErr != nil {
		zap.S().Infow("sniffcraft: no config file found, using defaults", "path", path)
		return config.Default(), nil
	}
	return config.Load(path)
}

func initLogger(debugMode bool) error {
	var cfg zap.Config
	if debugMode {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(l)
	return nil
}
