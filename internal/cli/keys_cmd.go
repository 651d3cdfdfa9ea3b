// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// keys_cmd.go - The "keys" command.
//
// Command: keys
// Short:   Manage OpenRouter API keys
// Aliases: key
//
// Examples:
//   routerchat keys                        List keys
//   routerchat keys add work --activate    Add and activate a key
//   routerchat keys check --all            Check every key
//   routerchat keys import keys.json       Bulk import

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/ui/styles"
	"github.com/jeranaias/routerchat/internal/util"
)

// KeyView is the --json form of a key. The secret is always masked.
type KeyView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Masked string `json:"masked_key"`
	Active bool   `json:"active"`
}

func keyView(k model.KeyEntry, activeID string) KeyView {
	return KeyView{
		ID:     k.ID,
		Name:   k.Name,
		Status: string(k.Status),
		Masked: k.Masked(),
		Active: k.ID == activeID,
	}
}

// RunKeys handles "routerchat keys <subcommand>".
func RunKeys(ctx context.Context, env *Env, args Args) error {
	switch args.Subcommand {
	case "list", "ls":
		return keysList(env, args)
	case "add":
		return keysAdd(env, args)
	case "edit":
		return keysEdit(env, args)
	case "delete", "rm", "remove":
		return keysDelete(env, args)
	case "import":
		return keysImport(env, args)
	case "check", "test":
		return keysCheck(ctx, env, args)
	case "activate", "use":
		return keysActivate(env, args)
	case "deactivate":
		return keysDeactivate(env, args)
	default:
		return ErrUnknownSubcommand("keys", args.Subcommand, "routerchat keys [list|add|edit|delete|import|check|activate|deactivate]")
	}
}

func keysList(env *Env, args Args) error {
	snap := env.Ctrl.Snapshot()
	views := make([]KeyView, 0, len(snap.Keys))
	for _, k := range snap.Keys {
		views = append(views, keyView(k, snap.ActiveKeyID))
	}
	return emit(env, args.JSON, "keys list", views, func(w io.Writer) {
		if len(snap.Keys) == 0 {
			fmt.Fprintln(w, DimStyle.Render("No API keys. Add one with: routerchat keys add NAME"))
			return
		}
		fmt.Fprintln(w, TitleStyle.Render("API Keys"))
		for _, k := range snap.Keys {
			marker := "  "
			if k.ID == snap.ActiveKeyID {
				marker = SuccessStyle.Render("* ")
			}
			fmt.Fprintf(w, "%s%s  %s  %s  %s\n",
				marker,
				DimStyle.Render(shortID(k.ID)),
				util.PadWidth(k.Name, 24),
				statusCell(k.Status, 16),
				DimStyle.Render(k.Masked()))
		}
	})
}

// statusCell pads the status label before coloring it so columns line up.
func statusCell(s model.KeyStatus, width int) string {
	label := styles.KeyStatusIndicator(s) + " " + s.Label()
	return lipgloss.NewStyle().Foreground(styles.KeyStatusColor(s)).Render(util.PadWidth(label, width))
}

func keysAdd(env *Env, args Args) error {
	name := args.Name
	if len(args.Rest) > 0 {
		name = args.Rest[0]
	}
	if name == "" {
		return ErrMissingArgument("NAME", "routerchat keys add NAME [--activate]")
	}
	secret, err := readSecret(env, "OpenRouter API key for "+name+": ")
	if err != nil {
		return err
	}
	entry, err := env.Ctrl.AddKey(name, secret)
	if err != nil {
		return err
	}
	if args.Activate {
		if err := env.Ctrl.SetActiveKey(entry.ID); err != nil {
			return err
		}
	}
	snap := env.Ctrl.Snapshot()
	return emit(env, args.JSON, "keys add", keyView(entry, snap.ActiveKeyID), func(w io.Writer) {
		msg := fmt.Sprintf("Added key %q (%s)", entry.Name, shortID(entry.ID))
		if args.Activate {
			msg += " and made it active"
		}
		fmt.Fprintln(w, styles.RenderSuccess(msg))
	})
}

func keysEdit(env *Env, args Args) error {
	if len(args.Rest) == 0 {
		return ErrMissingArgument("KEY", "routerchat keys edit KEY [--name NAME] [--secret]")
	}
	if args.Name == "" && !args.Secret {
		return &UsageError{Reason: "nothing to change", Usage: "routerchat keys edit KEY [--name NAME] [--secret]"}
	}
	entry, err := resolveKey(env.Ctrl.Snapshot().Keys, args.Rest[0])
	if err != nil {
		return err
	}
	name, secret := entry.Name, entry.APIKey
	if args.Name != "" {
		name = args.Name
	}
	if args.Secret {
		if secret, err = readSecret(env, "New API key for "+entry.Name+": "); err != nil {
			return err
		}
	}
	updated, err := env.Ctrl.EditKey(entry.ID, name, secret)
	if err != nil {
		return err
	}
	return emit(env, args.JSON, "keys edit", keyView(updated, env.Ctrl.Snapshot().ActiveKeyID), func(w io.Writer) {
		fmt.Fprintln(w, styles.RenderSuccess(fmt.Sprintf("Updated key %q; status reset to unchecked", updated.Name)))
	})
}

func keysDelete(env *Env, args Args) error {
	if len(args.Rest) == 0 {
		return ErrMissingArgument("KEY", "routerchat keys delete KEY [--yes]")
	}
	entry, err := resolveKey(env.Ctrl.Snapshot().Keys, args.Rest[0])
	if err != nil {
		return err
	}
	if !args.Yes && !confirm(env, fmt.Sprintf("Delete API key %q?", entry.Name)) {
		return fmt.Errorf("cancelled")
	}
	if err := env.Ctrl.DeleteKey(entry.ID); err != nil {
		return err
	}
	snap := env.Ctrl.Snapshot()
	data := map[string]string{"deleted": entry.ID, "active": snap.ActiveKeyID}
	return emit(env, args.JSON, "keys delete", data, func(w io.Writer) {
		fmt.Fprintln(w, styles.RenderSuccess(fmt.Sprintf("Deleted key %q", entry.Name)))
		if active, ok := snap.ActiveKey(); ok {
			fmt.Fprintln(w, DimStyle.Render("Active key: "+active.Name))
		} else {
			fmt.Fprintln(w, styles.RenderWarning("No active key. Activate one with: routerchat keys activate KEY"))
		}
	})
}

func keysImport(env *Env, args Args) error {
	if len(args.Rest) == 0 {
		return ErrMissingArgument("FILE", "routerchat keys import FILE")
	}
	path := args.Rest[0]
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(env.In)
	} else {
		data, err = os.ReadFile(util.ExpandHome(path))
	}
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}
	added, err := env.Ctrl.ImportKeys(data)
	if err != nil {
		return err
	}
	activeID := env.Ctrl.Snapshot().ActiveKeyID
	views := make([]KeyView, 0, len(added))
	for _, k := range added {
		views = append(views, keyView(k, activeID))
	}
	return emit(env, args.JSON, "keys import", views, func(w io.Writer) {
		fmt.Fprintln(w, styles.RenderSuccess(fmt.Sprintf("Imported %s", pluralize(len(added), "key"))))
	})
}

func keysCheck(ctx context.Context, env *Env, args Args) error {
	if args.All {
		if err := env.Ctrl.CheckAllKeys(ctx); err != nil {
			return err
		}
		return keysList(env, Args{JSON: args.JSON})
	}

	snap := env.Ctrl.Snapshot()
	var (
		entry model.KeyEntry
		err   error
	)
	switch {
	case len(args.Rest) > 0:
		entry, err = resolveKey(snap.Keys, args.Rest[0])
	default:
		var ok bool
		if entry, ok = snap.ActiveKey(); !ok {
			err = &UsageError{Reason: "no active key to check", Usage: "routerchat keys check [KEY|--all]"}
		}
	}
	if err != nil {
		return err
	}

	status, err := env.Ctrl.CheckKey(ctx, entry.ID)
	if err != nil {
		return err
	}
	entry.Status = status
	return emit(env, args.JSON, "keys check", keyView(entry, snap.ActiveKeyID), func(w io.Writer) {
		fmt.Fprintf(w, "%s  %s\n", entry.Name, styles.RenderKeyStatus(status))
	})
}

func keysActivate(env *Env, args Args) error {
	if len(args.Rest) == 0 {
		return ErrMissingArgument("KEY", "routerchat keys activate KEY")
	}
	entry, err := resolveKey(env.Ctrl.Snapshot().Keys, args.Rest[0])
	if err != nil {
		return err
	}
	if err := env.Ctrl.SetActiveKey(entry.ID); err != nil {
		return err
	}
	return emit(env, args.JSON, "keys activate", keyView(entry, entry.ID), func(w io.Writer) {
		fmt.Fprintln(w, styles.RenderSuccess(fmt.Sprintf("Using key %q", entry.Name)))
	})
}

func keysDeactivate(env *Env, args Args) error {
	if err := env.Ctrl.SetActiveKey(""); err != nil {
		return err
	}
	return emit(env, args.JSON, "keys deactivate", map[string]string{"active": ""}, func(w io.Writer) {
		fmt.Fprintln(w, styles.RenderInfo("No key is active"))
	})
}
