// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions_cmd.go - The "sessions" command.
//
// Command: sessions
// Short:   List, inspect, rename, delete and export chats
// Aliases: session
//
// Examples:
//   routerchat sessions                          List chats, newest first
//   routerchat sessions show 3f2a                Print a transcript
//   routerchat sessions export 3f2a --format json --out chat.json

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/routerchat/internal/export"
	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/storage"
	"github.com/jeranaias/routerchat/internal/util"
)

// SessionView is the --json form of a chat in listings.
type SessionView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	Current   bool      `json:"current"`
}

func sessionView(s model.Session, currentID string) SessionView {
	return SessionView{
		ID:        s.ID,
		Title:     s.Title,
		Model:     s.Model,
		Messages:  len(s.Messages),
		CreatedAt: s.CreatedAt,
		Current:   s.ID == currentID,
	}
}

// RunSessions handles "routerchat sessions <subcommand>".
func RunSessions(env *Env, args Args) error {
	switch args.Subcommand {
	case "list", "ls":
		return sessionsList(env, args)
	case "new":
		return sessionsNew(env, args)
	case "show", "cat":
		return sessionsShow(env, args)
	case "switch", "select":
		return sessionsSwitch(env, args)
	case "rename":
		return sessionsRename(env, args)
	case "delete", "rm":
		return sessionsDelete(env, args)
	case "export":
		return sessionsExport(env, args)
	default:
		return ErrUnknownSubcommand("sessions", args.Subcommand, "routerchat sessions [list|new|show|switch|rename|delete|export]")
	}
}

func sessionsList(env *Env, args Args) error {
	snap := env.Ctrl.Snapshot()
	views := make([]SessionView, 0, len(snap.Sessions))
	for _, s := range snap.Sessions {
		views = append(views, sessionView(s, snap.CurrentSessionID))
	}
	now := env.now()
	return emit(env, args.JSON, "sessions list", views, func(w io.Writer) {
		if len(snap.Sessions) == 0 {
			fmt.Fprintln(w, DimStyle.Render("No chats yet. Start one with: routerchat sessions new"))
			return
		}
		fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Chats (%d)", len(snap.Sessions))))
		for _, s := range snap.Sessions {
			marker := "  "
			if s.ID == snap.CurrentSessionID {
				marker = SuccessStyle.Render("> ")
			}
			fmt.Fprintf(w, "%s%s  %s  %s  %s\n",
				marker,
				DimStyle.Render(shortID(s.ID)),
				util.PadWidth(s.Title, 32),
				util.PadWidth(model.ModelDisplayName(s.Model), 20),
				DimStyle.Render(pluralize(len(s.Messages), "msg")+", "+formatAge(now, s.CreatedAt)))
		}
	})
}

func sessionsNew(env *Env, args Args) error {
	if args.Model != "" {
		if err := env.Ctrl.SelectModel(args.Model); err != nil {
			return err
		}
	}
	s, err := env.Ctrl.NewSession()
	if err != nil {
		return err
	}
	return emit(env, args.JSON, "sessions new", sessionView(s, s.ID), func(w io.Writer) {
		fmt.Fprintf(w, "Started %q (%s) with %s\n", s.Title, shortID(s.ID), model.ModelDisplayName(s.Model))
	})
}

func sessionsShow(env *Env, args Args) error {
	s, err := sessionArg(env, args, "routerchat sessions show ID")
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("sessions show", storage.StoredFromSession(s)).Write(env.Out)
	}

	md := newMarkdownPrinter(env)
	w := env.Out
	fmt.Fprintln(w, TitleStyle.Render(s.Title))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Model"), ValueStyle.Render(s.Model))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Created"), ValueStyle.Render(s.CreatedAt.Local().Format("2006-01-02 15:04:05")))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("ID"), DimStyle.Render(s.ID))
	if len(s.Messages) == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, DimStyle.Render("No messages yet."))
		return nil
	}
	for _, m := range s.Messages {
		fmt.Fprintln(w)
		fmt.Fprintln(w, roleLabel(m)+" "+DimStyle.Render(m.Timestamp.Local().Format("15:04:05")))
		fmt.Fprintln(w, md.render(m.Content))
	}
	return nil
}

func roleLabel(m model.Message) string {
	if m.Role == model.RoleUser {
		return RoleUserStyle.Render(m.Role.DisplayName() + ":")
	}
	return RoleAssistantStyle.Render(m.Role.DisplayName() + ":")
}

func sessionsSwitch(env *Env, args Args) error {
	s, err := sessionArg(env, args, "routerchat sessions switch ID")
	if err != nil {
		return err
	}
	if err := env.Ctrl.SelectSession(s.ID); err != nil {
		return err
	}
	return emit(env, args.JSON, "sessions switch", sessionView(s, s.ID), func(w io.Writer) {
		fmt.Fprintf(w, "Current chat: %s\n", s.Title)
	})
}

func sessionsRename(env *Env, args Args) error {
	if len(args.Rest) < 2 {
		return ErrMissingArgument("TITLE", "routerchat sessions rename ID TITLE")
	}
	s, err := sessionArg(env, args, "")
	if err != nil {
		return err
	}
	title, err := env.Ctrl.RenameSession(s.ID, strings.Join(args.Rest[1:], " "))
	if err != nil {
		return err
	}
	s.Title = title
	return emit(env, args.JSON, "sessions rename", sessionView(s, env.Ctrl.Snapshot().CurrentSessionID), func(w io.Writer) {
		fmt.Fprintf(w, "Renamed to %q\n", title)
	})
}

func sessionsDelete(env *Env, args Args) error {
	s, err := sessionArg(env, args, "routerchat sessions delete ID [--yes]")
	if err != nil {
		return err
	}
	if !args.Yes && !confirm(env, fmt.Sprintf("Delete chat %q and its %s?", s.Title, pluralize(len(s.Messages), "message"))) {
		return fmt.Errorf("cancelled")
	}
	if err := env.Ctrl.DeleteSession(s.ID); err != nil {
		return err
	}
	return emit(env, args.JSON, "sessions delete", map[string]string{"deleted": s.ID}, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted %q\n", s.Title)
	})
}

func sessionsExport(env *Env, args Args) error {
	s, err := sessionArg(env, args, "routerchat sessions export ID [--format md|json] [--out FILE|-]")
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(args.Format)
	if err != nil {
		return err
	}
	opts := export.DefaultOptions()
	opts.Now = env.now
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return err
	}

	if args.Output == "-" {
		content, err := exporter.Export(&s)
		if err != nil {
			return err
		}
		_, err = env.Out.Write(content)
		return err
	}

	path := args.Output
	if path != "" {
		path = util.ExpandHome(path)
	} else {
		path = export.DefaultFilename(&s, exporter, env.now())
	}
	written, err := export.ToFile(&s, exporter, path)
	if err != nil {
		return err
	}
	data := map[string]string{"session": s.ID, "path": written, "format": string(format)}
	return emit(env, args.JSON, "sessions export", data, func(w io.Writer) {
		fmt.Fprintf(w, "Exported %q to %s\n", s.Title, written)
	})
}

// sessionArg resolves the first positional as a chat.
func sessionArg(env *Env, args Args, usage string) (model.Session, error) {
	if len(args.Rest) == 0 {
		return model.Session{}, ErrMissingArgument("ID", usage)
	}
	return resolveSession(env.Ctrl.Snapshot().Sessions, args.Rest[0])
}
