// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - The "config" command.
//
// Command: config
// Short:   Show, locate or initialize the configuration file
//
// Examples:
//   routerchat config               Effective configuration as TOML
//   routerchat config path          Where the config file lives
//   routerchat config init --force  Overwrite with defaults

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/routerchat/internal/config"
	"github.com/jeranaias/routerchat/internal/ui/styles"
)

// RunConfig handles "routerchat config <subcommand>". It needs no
// controller. path is the file the config was loaded from, if any.
func RunConfig(env *Env, args Args, path string) error {
	switch args.Subcommand {
	case "show":
		return emit(env, args.JSON, "config show", env.Config, func(w io.Writer) {
			if path != "" {
				fmt.Fprintln(w, DimStyle.Render("# "+path))
			}
			fmt.Fprint(w, env.Config.String())
		})

	case "path":
		if path == "" {
			p, err := config.ConfigPathTOML()
			if err != nil {
				return err
			}
			path = p
		}
		return emit(env, args.JSON, "config path", map[string]string{"path": path}, func(w io.Writer) {
			fmt.Fprintln(w, path)
		})

	case "init":
		written, err := config.Init(args.Force)
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%w: %s (use --force to overwrite)", err, written)
		}
		if err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		return emit(env, args.JSON, "config init", map[string]string{"path": written}, func(w io.Writer) {
			fmt.Fprintln(w, styles.RenderSuccess("Wrote default config to "+written))
		})

	default:
		return ErrUnknownSubcommand("config", args.Subcommand, "routerchat config [show|path|init]")
	}
}
