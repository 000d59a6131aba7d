package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dshills/cedar/internal/app"
	"github.com/dshills/cedar/internal/config"
	"github.com/dshills/cedar/internal/core"
	"github.com/dshills/cedar/internal/logging"
	"github.com/dshills/cedar/internal/session"
	"github.com/dshills/cedar/internal/shell"
	"github.com/dshills/cedar/internal/state"
	"github.com/dshills/cedar/internal/telemetry"
)

var (
	// Global flags.
	flagConfig   string
	flagCore     string
	flagLogLevel string
	flagOTLP     string
)

var rootCmd = &cobra.Command{
	Use:   "cedar",
	Short: "Line-oriented JSON-RPC driver for the ced-core editing backend",
	Long: `cedar drives a ced-core editing backend over its newline-delimited
JSON-RPC streams.

Commands typed at the terminal (or fed from a file via "cedar batch")
are sent to the backend one at a time; buffer updates the backend
pushes back are folded into a local mirror that the dump and print
commands inspect without another round trip.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, shell.NewReaderSource(os.Stdin), nil)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&flagCore, "core", "", "backend executable (overrides config and CED_BIN_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagOTLP, "otlp-endpoint", "", "OTLP HTTP endpoint for traces and metrics")
}

// runSession loads configuration, spawns the backend, and drives one
// session over its stdio until the command source or the backend is
// done. backendArgs is extra argv for the backend, appended after any
// configured args.
func runSession(cmd *cobra.Command, source shell.Source, backendArgs []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfgPath := flagConfig
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	// Flags override both the file and the environment.
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagOTLP != "" {
		cfg.Telemetry.Endpoint = flagOTLP
	}
	if flagCore != "" {
		cfg.Core.Path = flagCore
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sessionID := uuid.NewString()

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel()
	log := logging.New(logCfg).WithField("session", sessionID[:8])

	if cfgPath != "" {
		if w, werr := config.Watch(cfgPath, func(c *config.Config) {
			log.SetLevel(c.LogLevel())
		}, log); werr == nil {
			defer w.Close()
		} else {
			log.Debug("config watch disabled: %v", werr)
		}
	}

	telemetry.Version = version
	tel, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:  cfg.Telemetry.Endpoint,
		Headers:   cfg.Telemetry.Headers,
		SessionID: sessionID,
	})
	if err != nil {
		log.Warn("telemetry init failed: %v", err)
	}
	var metrics *telemetry.Metrics
	if tel != nil {
		defer tel.Shutdown(context.Background())
		metrics = tel.Metrics
	}

	coreArgs := append(append([]string(nil), cfg.Core.Args...), backendArgs...)
	backend := core.New(core.ResolvePath(cfg.Core.Path), coreArgs, core.WithLogger(log))
	if err := backend.Start(); err != nil {
		return err
	}
	backend.DrainStderr()

	eng := session.New(state.NewProjection(),
		session.WithTransport(backend.Stdin()),
		session.WithLogger(log),
		session.WithMetrics(metrics),
	)
	sh := shell.New(eng, shell.WithLogger(log))

	sess, err := app.NewSession(app.Config{
		Engine:      eng,
		Shell:       sh,
		Source:      source,
		Input:       backend.Stdout(),
		CloseOutput: backend.CloseInput,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	// First interrupt asks the backend to finish; a second one kills it.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		log.Info("interrupt: closing backend input")
		_ = backend.CloseInput()
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		log.Warn("second interrupt: killing backend")
		_ = backend.Shutdown(0)
	}()

	runErr := sess.Run(ctx)

	_ = backend.CloseInput()
	shutdownTimeout := time.Duration(cfg.Core.ShutdownTimeout) * time.Second
	select {
	case <-backend.Done():
	case <-time.After(shutdownTimeout):
		log.Warn("backend still running after input closed, terminating")
		_ = backend.Shutdown(shutdownTimeout)
	}
	log.Info("backend closed with status %d", backend.ExitCode())

	if runErr != nil {
		return runErr
	}
	if code := backend.ExitCode(); code > 0 {
		return fmt.Errorf("backend exited with status %d", code)
	}
	return nil
}
