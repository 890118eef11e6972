// Command saccoctl is the operator CLI for the SACCO portal backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sacco/internal/cli"
	"sacco/internal/config"
	applog "sacco/internal/log"
	"sacco/internal/reconcile"
	"sacco/internal/sacco"
	"sacco/internal/session"
	"sacco/internal/transport"
)

var outputFormat string

var rootCmd = &cobra.Command{
	Use:           "saccoctl",
	Short:         "Operate on SACCO contributions, members and sessions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case "json", "yaml":
			return nil
		}
		return fmt.Errorf("unknown output format %q: use json or yaml", outputFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")
	rootCmd.AddCommand(statsCmd, feedCmd, exportCmd, membersCmd, sessionCmd, remindCmd)
}

func main() {
	cli.LoadEnvFile()
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, transport.ErrUnauthorized) {
			err = cli.ErrLoginRequired
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds the collaborators a command needs. close must be called when
// the command is done.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	store   session.Store
	backend *sacco.Client
	engine  *reconcile.Engine
	close   func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg)

	store, closeStore, err := cli.OpenSessionStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	_, backend, err := cli.NewBackendClient(cfg, store, nil, logger)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		backend: backend,
		engine:  reconcile.NewEngine(backend, backend, reconcile.WithLogger(logger)),
		close:   closeStore,
	}, nil
}

// withApp runs fn with a fresh app and releases it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func render(w io.Writer, v any) error {
	if outputFormat == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
