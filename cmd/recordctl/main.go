package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/Zereker/recordwire"
	"github.com/Zereker/recordwire/internal/config"
	"github.com/Zereker/recordwire/internal/logging"
)

func main() {
	cfg := config.DefaultConfig()
	cfg.LogLevel = "warn"

	var (
		cfgPath string
		id      int32
		text    string
	)

	root := &cobra.Command{
		Use:           "recordctl",
		Short:         "Send one record to a recordd server",
		Example:       "  recordctl --host 127.0.0.1 --port 8080 --id 42 --text \"test data\"",
		Args:          cobra.NoArgs,
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
			if err := cfg.ValidateClient(); err != nil {
				return err
			}

			log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return &recordwire.ConfigError{Field: "log", Reason: err.Error()}
			}

			rec := recordwire.Record{ID: id, Text: text}
			addr := cfg.ServerAddr()

			err = recordwire.Send(cmd.Context(), addr, rec,
				recordwire.LoggerOption(log),
				recordwire.DialTimeoutOption(cfg.DialTimeout),
				recordwire.WriteTimeoutOption(cfg.WriteTimeout),
			)
			if err != nil {
				return err
			}

			log.Info("record sent", "addr", addr, "id", rec.ID)
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to TOML config file (or RECORDWIRE_CONFIG)")
	root.Flags().StringVar(&cfg.Host, "host", "", "server host (required)")
	root.Flags().Uint16Var(&cfg.Port, "port", cfg.Port, "server port")
	root.Flags().Int32Var(&id, "id", 0, "record id")
	root.Flags().StringVar(&text, "text", "", fmt.Sprintf("record text (at most %d bytes are sent)", recordwire.MaxTextLen))
	root.Flags().DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "connect deadline")
	root.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "send deadline (0 disables)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (auto, console, json)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		logging.Bootstrap().Error("recordctl", "kind", recordwire.KindOf(err).String(), "error", err)
		stop()
		os.Exit(1)
	}
}
