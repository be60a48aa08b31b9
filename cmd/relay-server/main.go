// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// relay-server forwards chat messages to an upstream model and keeps a short
// per-user conversation history.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/relaychat/internal/cloud"
	"github.com/jeranaias/relaychat/internal/config"
	"github.com/jeranaias/relaychat/internal/history"
	"github.com/jeranaias/relaychat/internal/relay"
	"github.com/jeranaias/relaychat/internal/server"
)

// shutdownTimeout bounds the drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

var (
	initConfig bool
	cfgFile    string
	host       string
	port       int
	provider   string
	backend    string
)

var rootCmd = &cobra.Command{
	Use:           "relay-server",
	Short:         "Chat relay between terminal clients and an upstream model",
	Version:       server.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", "", "path to config file (default ~/.relaychat/config.toml)")
	flags.BoolVar(&initConfig, "init-config", false, "write a default config file and exit")
	flags.StringVar(&host, "host", "", "listen host")
	flags.IntVarP(&port, "port", "p", 0, "listen port")
	flags.StringVar(&provider, "provider", "", "upstream provider (siliconflow or canned)")
	flags.StringVar(&backend, "history", "", "history backend (memory or sqlite)")
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("DOTENV_ERROR | error=%v", err)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "relay-server: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	log.SetOutput(os.Stdout)

	if initConfig {
		return writeDefaultConfig(cmd)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.History.Backend, cfg.History.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	err = history.Check(pingCtx, store)
	cancelPing()
	if err != nil {
		return err
	}
	log.Printf("HISTORY_READY | backend=%s window=%d", cfg.History.Backend, cfg.History.Window)

	svc := relay.NewService(store, newCompleter(cfg), relay.Options{
		SystemPrompt: cfg.Upstream.SystemPrompt,
		Window:       cfg.History.Window,
	})

	srv := server.NewServer(svc).
		WithAddr(cfg.Server.Host, cfg.Server.Port).
		WithCORS(server.NewCORSConfig(cfg.Server.CORSOrigins)).
		WithTimeouts(cfg.Server.ReadTimeout(), cfg.Server.WriteTimeout())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Printf("SERVER_STOPPED | requests=%d", srv.Stats().TotalRequests())
	return nil
}

// loadConfig reads the config file and applies flags given on the command
// line over it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFromPath(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = host
	}
	if flags.Changed("port") {
		cfg.Server.Port = port
	}
	if flags.Changed("provider") {
		cfg.Upstream.Provider = strings.ToLower(provider)
	}
	if flags.Changed("history") {
		cfg.History.Backend = strings.ToLower(backend)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// writeDefaultConfig handles --init-config.
func writeDefaultConfig(cmd *cobra.Command) error {
	path, err := config.WriteDefault(cfgFile, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
	return nil
}

// newCompleter builds the upstream client, or the offline canned replies
// when the provider asks for them or no API key is set.
func newCompleter(cfg *config.Config) relay.Completer {
	up := cfg.Upstream
	if cfg.EffectiveProvider() != config.ProviderSiliconFlow {
		if up.Provider == config.ProviderSiliconFlow {
			log.Printf("UPSTREAM_WARNING | no API key configured (set RELAY_API_KEY); using canned replies")
		}
		log.Printf("UPSTREAM | provider=%s", config.ProviderCanned)
		return relay.NewCannedCompleter()
	}

	c := cloud.NewClient(up.APIKey).
		WithBaseURL(up.BaseURL).
		WithModel(up.Model).
		WithTimeout(up.Timeout()).
		WithSampling(cloud.Sampling{
			MaxTokens:   up.MaxTokens,
			Temperature: up.Temperature,
			TopP:        up.TopP,
		})
	log.Printf("UPSTREAM | provider=%s model=%s key=%s", up.Provider, c.Model(), c.KeyFingerprint())
	return c
}
