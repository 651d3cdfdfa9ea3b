// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command line parsing and dispatch for routerchat.

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/routerchat/internal/app"
	"github.com/jeranaias/routerchat/internal/cloud"
	"github.com/jeranaias/routerchat/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdKeys
	CmdSessions
	CmdModels
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdTUI:      "tui",
	CmdChat:     "chat",
	CmdAsk:      "ask",
	CmdKeys:     "keys",
	CmdSessions: "sessions",
	CmdModels:   "models",
	CmdConfig:   "config",
	CmdVersion:  "version",
	CmdHelp:     "help",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	DataDir    string
	Storage    string
	JSON       bool
	Verbose    bool

	// Command-specific
	Subcommand string
	Rest       []string // positionals after the subcommand
	Query      string
	Model      string
	Session    string
	Format     string
	Output     string
	Name       string
	All        bool
	Yes        bool
	Force      bool
	Remote     bool
	Activate   bool
	Secret     bool
}

const usageText = `routerchat - terminal chat client for OpenRouter

Usage:
  routerchat                          Start the terminal UI (default)
  routerchat tui                      Start the terminal UI
  routerchat chat [--model M]         Line-based chat in the current chat
  routerchat ask [flags] "question"   Ask one question and print the reply
  routerchat keys [subcommand]        Manage OpenRouter API keys
  routerchat sessions [subcommand]    Manage chats
  routerchat models [list|set NAME]   Show or choose the model
  routerchat config [show|path|init]  Configuration
  routerchat version                  Show version
  routerchat help                     Show this help

Ask:
  --model, -m NAME       Select NAME before sending
  --session, -s ID       Send into an existing chat instead of a new one
  Use "-" as the question to read it from stdin.

Keys:
  routerchat keys list                       List keys (active key marked *)
  routerchat keys add NAME [--activate]      Add a key; the secret is prompted
  routerchat keys edit KEY [--name N] [--secret]
  routerchat keys delete KEY [--yes]
  routerchat keys import FILE|-              Import a JSON array of {name, apiKey}
  routerchat keys check [KEY|--all]          Check keys against the API
  routerchat keys activate KEY
  routerchat keys deactivate
  KEY is an id, a unique id prefix, or an exact name.

Sessions:
  routerchat sessions list
  routerchat sessions new
  routerchat sessions show ID
  routerchat sessions switch ID
  routerchat sessions rename ID TITLE
  routerchat sessions delete ID [--yes]
  routerchat sessions export ID [--format md|json] [--out FILE|-]

Models:
  routerchat models list [--remote]          Built-in suggestions, or the API catalogue
  routerchat models set NAME
  routerchat models current

Global flags:
  --config PATH          Config file (default ~/.routerchat/config.toml)
  --data-dir DIR         Where chat state is stored
  --storage file|sqlite  Storage backend
  --json                 Machine-readable output
  --verbose, -v          Debug logging
`

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// VersionData is the --json payload of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer, jsonMode bool) error {
	data := VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if jsonMode {
		return NewJSONResponse(CmdVersion.String(), data).Write(w)
	}
	fmt.Fprintf(w, "routerchat %s\n", data.Version)
	fmt.Fprintf(w, "  Commit: %s\n", data.GitCommit)
	fmt.Fprintf(w, "  Built:  %s\n", data.BuildDate)
	fmt.Fprintf(w, "  Go:     %s %s\n", data.GoVersion, data.Platform)
	return nil
}

// =============================================================================
// PARSING
// =============================================================================

// boolFlagNames never take a value.
var boolFlagNames = []string{"all", "yes", "y", "force", "remote", "activate", "secret"}

// Parse turns the process arguments (without the program name) into a
// command. No arguments start the terminal UI.
func Parse(argv []string) (Command, Args, error) {
	remaining, args, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}
	if len(remaining) == 0 {
		return CmdTUI, args, nil
	}

	name := strings.ToLower(remaining[0])
	p := NewArgParser(remaining[1:], boolFlagNames...)
	if err := p.RequireValue("model", "m", "session", "s", "format", "f", "out", "o", "name"); err != nil {
		return CmdHelp, args, err
	}
	args.Model = p.Flag("model", "m")
	args.Session = p.Flag("session", "s")
	args.Format = p.Flag("format", "f")
	args.Output = p.Flag("out", "o")
	args.Name = p.Flag("name")
	args.All = p.BoolFlag("all")
	args.Yes = p.BoolFlag("yes", "y")
	args.Force = p.BoolFlag("force")
	args.Remote = p.BoolFlag("remote")
	args.Activate = p.BoolFlag("activate")
	args.Secret = p.BoolFlag("secret")

	withSub := func(def string) {
		args.Subcommand = strings.ToLower(p.Subcommand())
		if args.Subcommand == "" {
			args.Subcommand = def
		}
		args.Rest = p.PositionalFrom(1)
	}

	switch name {
	case "tui":
		return CmdTUI, args, nil
	case "chat":
		return CmdChat, args, nil
	case "ask":
		args.Query = strings.TrimSpace(strings.Join(p.PositionalFrom(0), " "))
		if args.Query == "" {
			return CmdAsk, args, ErrMissingArgument("question", `routerchat ask "question"`)
		}
		return CmdAsk, args, nil
	case "keys", "key":
		withSub("list")
		return CmdKeys, args, nil
	case "sessions", "session":
		withSub("list")
		return CmdSessions, args, nil
	case "models", "model":
		withSub("list")
		return CmdModels, args, nil
	case "config":
		withSub("show")
		return CmdConfig, args, nil
	case "version", "--version":
		return CmdVersion, args, nil
	case "help", "-h", "--help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, &UsageError{Reason: "unknown command: " + remaining[0], Usage: "routerchat help"}
	}
}

// parseGlobalFlags extracts global flags wherever they appear and returns
// the remaining args.
func parseGlobalFlags(argv []string) ([]string, Args, error) {
	var remaining []string
	var args Args

	valueFlags := map[string]*string{
		"--config":   &args.ConfigPath,
		"--data-dir": &args.DataDir,
		"--storage":  &args.Storage,
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "--json":
			args.JSON = true
			continue
		case "-v", "--verbose":
			args.Verbose = true
			continue
		case "--":
			remaining = append(remaining, argv[i:]...)
			return remaining, args, nil
		}

		if name, value, ok := strings.Cut(arg, "="); ok {
			if dst, known := valueFlags[name]; known {
				*dst = value
				continue
			}
		}
		if dst, known := valueFlags[arg]; known {
			if i+1 >= len(argv) {
				return nil, args, &UsageError{Reason: "flag " + arg + " needs a value"}
			}
			i++
			*dst = argv[i]
			continue
		}
		remaining = append(remaining, arg)
	}
	return remaining, args, nil
}

// =============================================================================
// DISPATCH
// =============================================================================

// ModelCatalogue lists the models offered by the API. *cloud.Client
// satisfies it.
type ModelCatalogue interface {
	ListModels(ctx context.Context, secretKey string) ([]cloud.ModelInfo, error)
}

// Env is what command handlers run against.
type Env struct {
	Ctrl   *app.Controller
	Config *config.Config
	// Catalogue backs "models list --remote"; nil disables it
	Catalogue ModelCatalogue
	Logger    *slog.Logger

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// ReadSecret overrides the no-echo terminal prompt, for tests.
	ReadSecret func(prompt string) (string, error)
	// HistoryFile is where the chat REPL keeps its line history.
	HistoryFile string
	// Now overrides the clock, for tests.
	Now func() time.Time

	reader *bufio.Reader
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Execute runs a command that works on the controller. The TUI, config,
// version and help commands are handled by the caller.
func Execute(ctx context.Context, env *Env, cmd Command, args Args) error {
	env.logger().Debug("running command", "command", cmd.String(), "subcommand", args.Subcommand)
	switch cmd {
	case CmdChat:
		return RunChat(ctx, env, args)
	case CmdAsk:
		return RunAsk(ctx, env, args)
	case CmdKeys:
		return RunKeys(ctx, env, args)
	case CmdSessions:
		return RunSessions(env, args)
	case CmdModels:
		return RunModels(ctx, env, args)
	default:
		return fmt.Errorf("%s is not a controller command", cmd)
	}
}
