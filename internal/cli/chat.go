// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - The "chat" command: a line-based REPL over the controller.
//
// Command: chat
// Short:   Chat in the terminal without the full-screen UI
//
// Examples:
//   routerchat chat                       Continue the current chat
//   routerchat chat --model openai/gpt-4o Select a model first
//
// Interactive Commands (during chat):
//   /new                 Start a new chat
//   /list                List chats
//   /switch N|ID         Switch to another chat
//   /rename TITLE        Rename the current chat
//   /delete [N|ID]       Delete a chat (the current one by default)
//   /model [NAME]        Show or switch model
//   /keys [N|NAME]       List keys or activate one
//   /history             Print the current chat
//   /help, /quit
//   Ctrl+C               Exit at the prompt
//   Ctrl+D               Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/ui/styles"
)

// =============================================================================
// INPUT
// =============================================================================

// lineReader is where the REPL reads its input from.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// linerReader provides history and line editing on a terminal.
// USABILITY: Supports arrow keys for history navigation and line editing.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader(historyFile string) *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	r := &linerReader{line: line, historyFile: historyFile}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the
// terminal.
func (r *linerReader) Close() error {
	if r.historyFile != "" {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	return r.line.Close()
}

// plainReader reads lines from a pipe or a test buffer.
type plainReader struct {
	env *Env
}

func (r plainReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.env.Out, prompt)
	line, err := readLine(r.env)
	if errors.Is(err, ErrNoInput) {
		return "", io.EOF
	}
	return line, err
}

func (plainReader) Close() error { return nil }

func newLineReader(env *Env) lineReader {
	if _, ok := isTerminalReader(env.In); ok && isTerminalWriter(env.Out) {
		return newLinerReader(env.HistoryFile)
	}
	return plainReader{env: env}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

type chatREPL struct {
	env *Env
	md  markdownPrinter
}

// RunChat runs the REPL until /quit, Ctrl+D or Ctrl+C at the prompt.
func RunChat(ctx context.Context, env *Env, args Args) error {
	ctrl := env.Ctrl
	if args.Model != "" {
		if err := ctrl.SelectModel(args.Model); err != nil {
			return err
		}
	}
	if _, ok := ctrl.Snapshot().CurrentSession(); !ok {
		if _, err := ctrl.NewSession(); err != nil {
			if errors.Is(err, model.ErrPrecondition) {
				return fmt.Errorf("%w\nAdd a key with: routerchat keys add NAME --activate", err)
			}
			return err
		}
	}

	repl := &chatREPL{env: env, md: newMarkdownPrinter(env)}
	in := newLineReader(env)
	defer in.Close()

	repl.printWelcome()
	for {
		input, err := in.Prompt(PromptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C (liner.ErrPromptAborted) or EOF
			fmt.Fprintln(env.Out)
			repl.printExitSummary()
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			cont, err := repl.handleSlashCommand(input)
			if err != nil {
				repl.printError(err)
			}
			if !cont {
				repl.printExitSummary()
				return nil
			}
			continue
		}

		if err := repl.send(ctx, input); err != nil {
			repl.printError(err)
		}
	}
}

// send submits one message. Requests cannot be aborted, so Ctrl+C while
// waiting only prints a note.
func (r *chatREPL) send(ctx context.Context, text string) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	done := make(chan struct{})
	defer func() {
		signal.Stop(sigs)
		close(done)
	}()
	go func() {
		for {
			select {
			case <-sigs:
				fmt.Fprintln(r.env.Err, DimStyle.Render("Still waiting for the reply; requests cannot be cancelled."))
			case <-done:
				return
			}
		}
	}()

	start := time.Now()
	fmt.Fprintln(r.env.Err, DimStyle.Render("thinking..."))
	reply, err := r.env.Ctrl.SendMessage(ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrCompletionFailed):
		if msg := r.env.Ctrl.Snapshot().Error; msg != "" {
			return errors.New(msg)
		}
		return err
	default:
		return err
	}

	name := model.ModelDisplayName(r.env.Ctrl.SelectedModel())
	fmt.Fprintln(r.env.Out, RoleAssistantStyle.Render(name+":"))
	fmt.Fprintln(r.env.Out, r.md.render(reply.Content))
	fmt.Fprintln(r.env.Out, DimStyle.Render(time.Since(start).Round(100*time.Millisecond).String()))
	fmt.Fprintln(r.env.Out)
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand runs one slash command. cont is false on /quit.
func (r *chatREPL) handleSlashCommand(input string) (cont bool, err error) {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	rest := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))
	ctrl := r.env.Ctrl
	w := r.env.Out

	switch command {
	case "/help", "/h", "/?", "/":
		r.printHelp()

	case "/quit", "/q", "/exit":
		return false, nil

	case "/new", "/n":
		s, err := ctrl.NewSession()
		if err != nil {
			return true, err
		}
		fmt.Fprintln(w, styles.RenderSuccess("Started "+s.Title))

	case "/list", "/ls":
		r.printSessions()

	case "/switch", "/s":
		s, err := r.pickSession(rest)
		if err != nil {
			return true, err
		}
		if err := ctrl.SelectSession(s.ID); err != nil {
			return true, err
		}
		fmt.Fprintf(w, "%s %s\n", styles.RenderSuccess("Switched to "+s.Title), DimStyle.Render("("+pluralize(len(s.Messages), "message")+")"))

	case "/rename":
		cur, ok := ctrl.Snapshot().CurrentSession()
		if !ok {
			return true, model.Preconditionf("No active chat session. Use /new.")
		}
		title, err := ctrl.RenameSession(cur.ID, rest)
		if err != nil {
			return true, err
		}
		fmt.Fprintln(w, styles.RenderSuccess(fmt.Sprintf("Renamed to %q", title)))

	case "/delete":
		var s model.Session
		if rest == "" {
			cur, ok := ctrl.Snapshot().CurrentSession()
			if !ok {
				return true, model.Preconditionf("No active chat session.")
			}
			s = cur
		} else if s, err = r.pickSession(rest); err != nil {
			return true, err
		}
		if err := ctrl.DeleteSession(s.ID); err != nil {
			return true, err
		}
		fmt.Fprintln(w, styles.RenderSuccess(fmt.Sprintf("Deleted %q", s.Title)))
		if cur, ok := ctrl.Snapshot().CurrentSession(); ok {
			fmt.Fprintln(w, DimStyle.Render("Current chat: "+cur.Title))
		} else {
			fmt.Fprintln(w, DimStyle.Render("No chats left. Use /new to start one."))
		}

	case "/model", "/m":
		if rest == "" {
			id := ctrl.SelectedModel()
			fmt.Fprintf(w, "%s %s %s\n", DimStyle.Render("[Model]"), model.ModelDisplayName(id), DimStyle.Render(id))
			return true, nil
		}
		if s, ok := model.SuggestionFor(rest); ok {
			rest = s.Value
		}
		if err := ctrl.SelectModel(rest); err != nil {
			return true, err
		}
		fmt.Fprintln(w, styles.RenderSuccess("Switched to model: "+model.ModelDisplayName(rest)))

	case "/keys", "/key", "/k":
		if rest == "" {
			r.printKeys()
			return true, nil
		}
		entry, err := r.pickKey(rest)
		if err != nil {
			return true, err
		}
		if err := ctrl.SetActiveKey(entry.ID); err != nil {
			return true, err
		}
		fmt.Fprintln(w, styles.RenderSuccess(fmt.Sprintf("Using key %q", entry.Name)))

	case "/history":
		r.printHistory()

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
	return true, nil
}

// pickSession accepts a 1-based number from /list or an id prefix.
func (r *chatREPL) pickSession(ref string) (model.Session, error) {
	sessions := r.env.Ctrl.Snapshot().Sessions
	if ref == "" {
		return model.Session{}, model.InvalidArgumentf("which chat? give a number from /list or an id")
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(sessions) {
			return model.Session{}, model.NotFoundf("no chat #%d", n)
		}
		return sessions[n-1], nil
	}
	return resolveSession(sessions, ref)
}

// pickKey accepts a 1-based number from /keys, a name or an id prefix.
func (r *chatREPL) pickKey(ref string) (model.KeyEntry, error) {
	keys := r.env.Ctrl.Snapshot().Keys
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(keys) {
			return model.KeyEntry{}, model.NotFoundf("no key #%d", n)
		}
		return keys[n-1], nil
	}
	return resolveKey(keys, ref)
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

func (r *chatREPL) printError(err error) {
	fmt.Fprintf(r.env.Err, "%s %v\n", ErrorStyle.Render("[Error]"), err)
}

func (r *chatREPL) printWelcome() {
	snap := r.env.Ctrl.Snapshot()
	w := r.env.Out
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("routerchat"))
	fmt.Fprintln(w, RenderSeparator(30))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Model:"), ValueStyle.Render(model.ModelDisplayName(snap.SelectedModel)))
	if k, ok := snap.ActiveKey(); ok {
		fmt.Fprintf(w, "%s%s %s\n", RenderLabel("Key:"), ValueStyle.Render(k.Name), styles.RenderKeyStatus(k.Status))
	} else {
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Key:"), WarningStyle.Render("none active"))
	}
	if s, ok := snap.CurrentSession(); ok {
		fmt.Fprintf(w, "%s%s %s\n", RenderLabel("Chat:"), ValueStyle.Render(s.Title), DimStyle.Render("("+pluralize(len(s.Messages), "message")+")"))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, DimStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Fprintln(w)
}

func (r *chatREPL) printHelp() {
	w := r.env.Out
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Available Commands"))
	commands := []struct{ cmd, desc string }{
		{"/new", "Start a new chat"},
		{"/list", "List chats"},
		{"/switch N|ID", "Switch to another chat"},
		{"/rename TITLE", "Rename the current chat"},
		{"/delete [N|ID]", "Delete a chat"},
		{"/model [NAME]", "Show or switch model"},
		{"/keys [N|NAME]", "List keys or activate one"},
		{"/history", "Print the current chat"},
		{"/quit", "Exit chat"},
	}
	for _, c := range commands {
		fmt.Fprintf(w, "  %s %s\n", PromptStyle.Render(fmt.Sprintf("%-16s", c.cmd)), DimStyle.Render(c.desc))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, DimStyle.Render("Tip: Ctrl+C or Ctrl+D at the prompt exits"))
	fmt.Fprintln(w)
}

func (r *chatREPL) printSessions() {
	snap := r.env.Ctrl.Snapshot()
	w := r.env.Out
	if len(snap.Sessions) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No chats. Use /new to start one."))
		return
	}
	for i, s := range snap.Sessions {
		marker := " "
		if s.ID == snap.CurrentSessionID {
			marker = SuccessStyle.Render(">")
		}
		fmt.Fprintf(w, "%s %2d. %s %s\n", marker, i+1, s.Title, DimStyle.Render(fmt.Sprintf("· %s · %s", model.ModelDisplayName(s.Model), pluralize(len(s.Messages), "msg"))))
	}
}

func (r *chatREPL) printKeys() {
	snap := r.env.Ctrl.Snapshot()
	w := r.env.Out
	if len(snap.Keys) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No API keys. Add one with: routerchat keys add NAME"))
		return
	}
	for i, k := range snap.Keys {
		marker := " "
		if k.ID == snap.ActiveKeyID {
			marker = SuccessStyle.Render("*")
		}
		fmt.Fprintf(w, "%s %2d. %s %s %s\n", marker, i+1, k.Name, styles.RenderKeyStatus(k.Status), DimStyle.Render(k.Masked()))
	}
}

func (r *chatREPL) printHistory() {
	s, ok := r.env.Ctrl.Snapshot().CurrentSession()
	w := r.env.Out
	if !ok || len(s.Messages) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No messages yet."))
		return
	}
	for _, m := range s.Messages {
		fmt.Fprintln(w, roleLabel(m))
		fmt.Fprintln(w, r.md.render(m.Content))
		fmt.Fprintln(w)
	}
}

func (r *chatREPL) printExitSummary() {
	if s, ok := r.env.Ctrl.Snapshot().CurrentSession(); ok {
		fmt.Fprintln(r.env.Out, DimStyle.Render(fmt.Sprintf("Saved %q (%s).", s.Title, pluralize(len(s.Messages), "message"))))
	}
}
