// Package main provides the scoreform binary entry point: a credit score
// classification service with an HTML form surface, a JSON API, and an
// interactive terminal client.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-scoreform/internal/config"
	"github.com/goliatone/go-scoreform/internal/openapi"
	"github.com/goliatone/go-scoreform/internal/server"
	"github.com/goliatone/go-scoreform/pkg/classifier"
	"github.com/goliatone/go-scoreform/pkg/renderers/tui"
	"github.com/goliatone/go-scoreform/pkg/store"
	"github.com/goliatone/go-scoreform/pkg/submit"
)

const (
	version = "0.1.0"
	appName = "scoreform"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, tui.ErrAborted) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Credit score classification service",
		Long: `Scoreform classifies credit scores from a short financial
questionnaire. It serves a multi-step web form and a JSON prediction API,
and can run the same questionnaire as an interactive terminal session.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(serveCmd(&configPath))
	cmd.AddCommand(fillCmd(&configPath))
	cmd.AddCommand(modelInfoCmd(&configPath))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, version)
		},
	})
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web form and prediction API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			srv, err := server.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func fillCmd(configPath *string) *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill in the questionnaire interactively in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			def, err := openapi.LoadDefinition(cmd.Context())
			if err != nil {
				return err
			}

			var clf submit.Classifier
			if endpoint != "" {
				clf = submit.NewHTTPClient(endpoint, submit.WithTimeout(cfg.Server.SubmitTimeout))
			} else {
				clf = classifier.NewService(cfg.Model.Path)
			}

			adapter, err := snapshotAdapter(cfg)
			if err != nil {
				return err
			}

			coordinator := submit.New(clf, submit.WithSnapshots(adapter))
			runner, err := tui.New(def, coordinator, tui.WithSnapshots(adapter))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runner.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Remote prediction endpoint URL; empty scores locally")
	return cmd
}

func modelInfoCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "model-info",
		Short: "Print the active model's metadata as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			svc := classifier.NewService(cfg.Model.Path)
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(svc.Describe())
		},
	}
}

// snapshotAdapter builds the persistence adapter for the terminal client.
// With no store directory configured, progress only survives within the
// process.
func snapshotAdapter(cfg *config.Config) (*store.Adapter, error) {
	var kv store.KV
	if cfg.Store.Dir != "" {
		fileKV, err := store.NewFileKV(cfg.Store.Dir)
		if err != nil {
			return nil, err
		}
		kv = fileKV
	} else {
		kv = store.NewMemoryKV()
	}
	return store.New(kv), nil
}
