// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models_cmd.go - The "models" command.
//
// Command: models
// Short:   Show or choose the model used for new chats and messages
// Aliases: model
//
// Examples:
//   routerchat models                       Built-in suggestions
//   routerchat models list --remote         The API catalogue (needs an active key)
//   routerchat models set "GPT-4o"          By display name or by id

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/ui/styles"
	"github.com/jeranaias/routerchat/internal/util"
)

// ModelView is the --json form of a model entry.
type ModelView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Group         string `json:"group,omitempty"`
	ContextLength int    `json:"context_length,omitempty"`
	Selected      bool   `json:"selected"`
}

// RunModels handles "routerchat models <subcommand>".
func RunModels(ctx context.Context, env *Env, args Args) error {
	switch args.Subcommand {
	case "list", "ls":
		if args.Remote {
			return modelsRemote(ctx, env, args)
		}
		return modelsList(env, args)
	case "set", "use":
		return modelsSet(env, args)
	case "current":
		selected := env.Ctrl.SelectedModel()
		return emit(env, args.JSON, "models current", ModelView{ID: selected, Name: model.ModelDisplayName(selected), Selected: true}, func(w io.Writer) {
			fmt.Fprintln(w, selected)
		})
	default:
		return ErrUnknownSubcommand("models", args.Subcommand, "routerchat models [list|set NAME|current]")
	}
}

func modelsList(env *Env, args Args) error {
	snap := env.Ctrl.Snapshot()
	views := make([]ModelView, 0, len(snap.Suggestions))
	for _, s := range snap.Suggestions {
		views = append(views, ModelView{ID: s.Value, Name: s.Name, Group: s.Group, Selected: s.Value == snap.SelectedModel})
	}
	return emit(env, args.JSON, "models list", views, func(w io.Writer) {
		group := ""
		for _, s := range snap.Suggestions {
			if s.Group != group {
				group = s.Group
				fmt.Fprintln(w, SectionStyle.Render(group))
			}
			marker := "  "
			if s.Value == snap.SelectedModel {
				marker = SuccessStyle.Render("* ")
			}
			fmt.Fprintf(w, "%s%s  %s\n", marker, util.PadWidth(s.Name, 30), DimStyle.Render(s.Value))
		}
		if _, ok := model.SuggestionFor(snap.SelectedModel); !ok && snap.SelectedModel != "" {
			fmt.Fprintln(w, SectionStyle.Render("Custom"))
			fmt.Fprintf(w, "%s%s\n", SuccessStyle.Render("* "), snap.SelectedModel)
		}
	})
}

func modelsRemote(ctx context.Context, env *Env, args Args) error {
	if env.Catalogue == nil {
		return fmt.Errorf("remote model listing is not available")
	}
	active, ok := env.Ctrl.Snapshot().ActiveKey()
	if !ok {
		return model.Preconditionf("Please set an active API key first.")
	}
	infos, err := env.Catalogue.ListModels(ctx, active.APIKey)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	selected := env.Ctrl.SelectedModel()
	views := make([]ModelView, 0, len(infos))
	for _, m := range infos {
		views = append(views, ModelView{ID: m.ID, Name: m.Name, ContextLength: m.ContextLength, Selected: m.ID == selected})
	}
	return emit(env, args.JSON, "models list", views, func(w io.Writer) {
		fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("OpenRouter models (%d)", len(views))))
		for _, v := range views {
			marker := "  "
			if v.Selected {
				marker = SuccessStyle.Render("* ")
			}
			ctxLen := ""
			if v.ContextLength > 0 {
				ctxLen = fmt.Sprintf("%dk ctx", v.ContextLength/1000)
			}
			fmt.Fprintf(w, "%s%s  %s\n", marker, util.PadWidth(v.ID, 48), DimStyle.Render(ctxLen))
		}
	})
}

func modelsSet(env *Env, args Args) error {
	name := strings.TrimSpace(strings.Join(args.Rest, " "))
	if name == "" {
		return ErrMissingArgument("NAME", "routerchat models set NAME")
	}
	if s, ok := model.SuggestionFor(name); ok {
		name = s.Value
	}
	if err := env.Ctrl.SelectModel(name); err != nil {
		return err
	}
	view := ModelView{ID: name, Name: model.ModelDisplayName(name), Selected: true}
	return emit(env, args.JSON, "models set", view, func(w io.Writer) {
		fmt.Fprintln(w, styles.RenderSuccess("Model: "+view.Name))
	})
}
