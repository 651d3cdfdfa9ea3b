// routerchat - A terminal chat client for OpenRouter.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jeranaias/routerchat/internal/app"
	"github.com/jeranaias/routerchat/internal/cli"
	"github.com/jeranaias/routerchat/internal/cloud"
	"github.com/jeranaias/routerchat/internal/config"
	"github.com/jeranaias/routerchat/internal/logging"
	"github.com/jeranaias/routerchat/internal/storage"
	"github.com/jeranaias/routerchat/internal/ui/chat"
	"github.com/jeranaias/routerchat/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}

	if err := run(cmd, args); err != nil {
		out := os.Stderr
		if args.JSON {
			out = os.Stdout
		}
		cli.DisplayError(out, cmd.String(), err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}

func run(cmd cli.Command, args cli.Args) error {
	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return nil
	case cli.CmdVersion:
		return cli.PrintVersion(os.Stdout, args.JSON)
	}

	cfg, cfgPath, err := loadConfig(args)
	if err != nil {
		return err
	}

	env := &cli.Env{
		Config: cfg,
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
	}
	if cmd == cli.CmdConfig {
		return cli.RunConfig(env, args, cfgPath)
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Verbose: args.Verbose,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctrl, client, err := buildController(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := ctrl.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	logger.Info("routerchat starting", "version", Version, "command", cmd.String(), "storage", cfg.Storage.Backend)

	if cmd == cli.CmdTUI {
		return chat.Run(context.Background(), ctrl, styles.NewTheme(), chat.Options{
			RenderMarkdown: cfg.UI.RenderMarkdown,
			ShowTimestamps: cfg.UI.ShowTimestamps,
			SidebarWidth:   cfg.UI.SidebarWidth,
			Logger:         logging.Component(logger, "tui"),
		})
	}

	env.Ctrl = ctrl
	env.Catalogue = client
	env.Logger = logging.Component(logger, "cli")
	if dir, err := config.ConfigDir(); err == nil {
		env.HistoryFile = filepath.Join(dir, "chat_history")
	}

	return cli.Execute(context.Background(), env, cmd, args)
}

// loadConfig reads the config file and applies the global flag overrides.
// It returns the path the config came from, if any.
func loadConfig(args cli.Args) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if args.ConfigPath != "" {
		path = args.ConfigPath
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
		if p, perr := config.ConfigPathTOML(); perr == nil && fileExists(p) {
			path = p
		}
	}
	if err != nil {
		return nil, "", err
	}

	if args.DataDir != "" {
		cfg.Storage.DataDir = args.DataDir
	}
	if args.Storage != "" {
		cfg.Storage.Backend = args.Storage
	}
	if args.DataDir != "" || args.Storage != "" {
		if err := cfg.Validate(); err != nil {
			return nil, "", fmt.Errorf("invalid config: %w", err)
		}
	}
	return cfg, path, nil
}

// buildController opens storage and wires the controller to the API client.
func buildController(cfg *config.Config, logger *slog.Logger) (*app.Controller, *cloud.Client, error) {
	kv, err := storage.Open(storage.Options{
		Backend:    cfg.Storage.Backend,
		DataDir:    cfg.Storage.DataDir,
		SQLitePath: cfg.SQLitePath(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}
	store := storage.NewStore(kv, logging.Component(logger, "storage")).WithDefaultModel(cfg.Chat.DefaultModel)

	client := cloud.NewClient().
		WithBaseURL(cfg.API.BaseURL).
		WithTimeout(cfg.Timeout()).
		WithReferer(cfg.API.Referer).
		WithTitle(cfg.API.Title).
		WithTestMaxTokens(cfg.API.TestMaxTokens).
		WithLogger(logging.Component(logger, "cloud"))

	ctrl := app.New(app.Options{
		Store:            store,
		Client:           client,
		Logger:           logging.Component(logger, "app"),
		CanaryModel:      cfg.API.CanaryModel,
		CheckConcurrency: cfg.Keys.CheckConcurrency,
		CheckRatePerSec:  cfg.Keys.CheckRatePerSec,
	})
	return ctrl, client, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
