package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/Zereker/recordwire"
	"github.com/Zereker/recordwire/internal/config"
	"github.com/Zereker/recordwire/internal/logging"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := config.DefaultConfig()
	var (
		cfgPath string
		watch   bool
	)

	root := &cobra.Command{
		Use:           "recordd",
		Short:         "Receive fixed-size records over TCP, one per connection",
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgPath == "" {
				cfgPath = os.Getenv("RECORDWIRE_CONFIG")
			}
			if err := config.Resolve(&cfg, cfgPath, changed); err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return &recordwire.ConfigError{Field: "log", Reason: err.Error()}
			}

			return serve(cmd.Context(), cfg, cfgPath, watch, changed, log)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to TOML config file (or RECORDWIRE_CONFIG)")
	root.Flags().Uint16Var(&cfg.Port, "port", cfg.Port, "TCP port to listen on")
	root.Flags().Uint16Var(&cfg.Backlog, "backlog", cfg.Backlog, "accept backlog")
	root.Flags().DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "deadline for receiving one record (0 disables)")
	root.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "deadline for writes on accepted connections (0 disables)")
	root.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "connections handled concurrently (1 = sequential)")
	root.Flags().BoolVar(&watch, "watch", false, "reload timeouts when the config file changes")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (auto, console, json)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log := logging.Bootstrap()
		var cfgErr *recordwire.ConfigError
		if errors.As(err, &cfgErr) {
			log.Error("refusing to start", "error", err)
		} else {
			log.Error("recordd", "error", err)
		}
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config, cfgPath string, watch bool, changed map[string]bool, log recordwire.Logger) error {
	srv, err := recordwire.Listen(cfg.ListenAddr(), int(cfg.Backlog),
		recordwire.ServerLoggerOption(log),
		recordwire.WorkersOption(cfg.Workers),
		recordwire.ServerTimeoutsOption(cfg.ReadTimeout, cfg.WriteTimeout),
	)
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	log.Info("configuration", "port", int(cfg.Port), "backlog", int(cfg.Backlog),
		"read_timeout", cfg.ReadTimeout, "write_timeout", cfg.WriteTimeout, "workers", cfg.Workers)

	if watch && cfgPath != "" {
		go func() {
			err := config.Watch(ctx, cfgPath, func(fc config.FileConfig, err error) {
				if err != nil {
					log.Warn("config reload failed", "path", cfgPath, "error", err)
					return
				}
				next := cfg
				if err := config.ApplyFileConfig(&next, fc, changed); err != nil {
					log.Warn("config reload rejected", "path", cfgPath, "error", err)
					return
				}
				if err := config.ApplyEnvConfig(&next, changed); err != nil {
					log.Warn("config reload rejected", "path", cfgPath, "error", err)
					return
				}
				if err := next.ValidateServer(); err != nil {
					log.Warn("config reload rejected", "path", cfgPath, "error", err)
					return
				}
				srv.SetTimeouts(next.ReadTimeout, next.WriteTimeout)
				log.Info("timeouts reloaded", "read_timeout", next.ReadTimeout, "write_timeout", next.WriteTimeout)
			})
			if err != nil {
				log.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	handler := recordwire.HandlerFunc(func(_ context.Context, rec recordwire.Record, remote net.Addr) error {
		log.Info("record received", "id", rec.ID, "text", rec.Text, "remote_addr", remote)
		return nil
	})

	err = srv.Serve(ctx, handler)

	stats := srv.Stats()
	log.Info("totals", "accepted", stats.Accepted, "received", stats.Received,
		"accept_errors", stats.AcceptErrors, "handler_errors", stats.HandlerErrors)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
