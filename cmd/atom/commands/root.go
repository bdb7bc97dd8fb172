package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"atomkit/cmd/atom/globals"
	"atomkit/internal/config"
	"atomkit/internal/telemetry"
	"atomkit/lib/debug"
	"atomkit/lib/logutil"
	otel "atomkit/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debugHTTP  bool
)

var (
	logCloser io.Closer
	tracing   otel.Telemetry
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "The config file, a <name>.local.<ext> sibling is merged over it.")
	rootCmd.PersistentFlags().BoolVar(&debugHTTP, "debug-http", false, "Dumps every vendor http exchange into the debug directory.")
}

var rootCmd = &cobra.Command{
	Use:           "atom",
	Short:         "atom is a CLI for the atomkit automation toolkit.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.New()
		} else if err != nil {
			return err
		}

		logCloser, err = logutil.Init(cfg.Log)
		if err != nil {
			return err
		}
		tracing, err = otel.Setup(cmd.Context(), "atom", cfg.Telemetry)
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}
		err = cfg.Dirs.Ensure()
		if err != nil {
			return err
		}

		value := &globals.Value{
			Config:    cfg,
			Telemetry: telemetry.SlogAPI{},
		}
		if debugHTTP {
			debugger, err := debug.New(cfg.Dirs.Debug(), "http", 0)
			if err != nil {
				return err
			}
			value.HTTPDebug = debugger
		}
		cmd.SetContext(globals.Set(cmd.Context(), value))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := tracing.Shutdown(ctx)
		if logCloser != nil {
			err = errors.Join(err, logCloser.Close())
		}
		return err
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
