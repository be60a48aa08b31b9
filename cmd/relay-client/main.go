// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// relay-client is the terminal chat client for relay-server. It runs a
// full-screen UI on a terminal and a plain line-mode prompt otherwise.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/jeranaias/relaychat/internal/avatar"
	"github.com/jeranaias/relaychat/internal/cli"
	"github.com/jeranaias/relaychat/internal/client"
	"github.com/jeranaias/relaychat/internal/config"
	"github.com/jeranaias/relaychat/internal/ui/chat"
	"github.com/jeranaias/relaychat/internal/ui/styles"
)

// Version is the client version.
var Version = "1.0.0"

// debugLogFile receives log output when --debug is set.
const debugLogFile = "relay-client.log"

var (
	initConfig bool
	cfgFile    string
	serverURL  string
	userID     string
	plain      bool
	noColor    bool
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:           "relay-client",
	Short:         "Terminal chat client for relay-server",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runClient,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", "", "path to config file (default ~/.relaychat/config.toml)")
	flags.BoolVar(&initConfig, "init-config", false, "write a default config file and exit")
	flags.StringVarP(&serverURL, "server", "s", "", "relay server URL")
	flags.StringVarP(&userID, "user", "u", "", "user ID for server-side history")
	flags.BoolVar(&plain, "plain", false, "use line mode instead of the full-screen UI")
	flags.BoolVar(&noColor, "no-color", false, "disable colors in line mode")
	flags.BoolVar(&debug, "debug", false, "write a debug log to "+debugLogFile)
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "relay-client: %v\n", err)
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	if initConfig {
		path, err := config.WriteDefault(cfgFile, false)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
		return nil
	}
	if noColor {
		cli.ForceColorsEnabled(false)
	}

	if debug {
		f, err := tea.LogToFile(debugLogFile, "relay-client")
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	backend := client.New(&client.Config{
		ServerURL:     cfg.Client.ServerURL,
		UserID:        cfg.Client.UserID,
		HealthTimeout: cfg.Client.HealthTimeout(),
		ChatTimeout:   cfg.Client.ChatTimeout(),
	})
	log.Printf("CLIENT_START | server=%s user=%s plain=%t", backend.ServerURL(), backend.UserID(), plain)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cli.UseFullScreen(plain) {
		return runLineMode(ctx, cfg, backend)
	}
	return runFullScreen(ctx, cfg, backend)
}

func runFullScreen(ctx context.Context, cfg *config.Config, backend *client.Client) error {
	icon, err := avatar.LoadIcon(cfg.Client.IconPath)
	if err != nil {
		log.Printf("ICON_MISSING | error=%v", err)
	}

	player := avatar.NewPlayer(cfg.Client.AvatarPath)
	if err := player.Start(ctx); err != nil {
		log.Printf("AVATAR_MISSING | error=%v", err)
	}
	if err := player.Watch(ctx); err != nil {
		log.Printf("AVATAR_WATCH_FAILED | error=%v", err)
	}
	defer player.Stop()

	m := chat.New(styles.NewTheme(), backend, chat.Options{
		AssistantName: cfg.Client.AssistantName,
		UserID:        backend.UserID(),
		Icon:          icon,
		Player:        player,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run UI: %w", err)
	}
	return nil
}

func runLineMode(ctx context.Context, cfg *config.Config, backend *client.Client) error {
	in := cli.NewLineReader()
	defer in.Close()

	s := cli.NewSession(backend, os.Stdout, cli.SessionOptions{
		AssistantName: cfg.Client.AssistantName,
		Profile:       cli.GetColorProfile(),
		Dark:          termenv.HasDarkBackground(),
	})
	err := s.Run(ctx, in)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// loadConfig reads the config file and applies command line flags over it.
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
	if flags.Changed("server") {
		cfg.Client.ServerURL = serverURL
	}
	if flags.Changed("user") {
		cfg.Client.UserID = userID
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
