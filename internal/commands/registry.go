// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/iea-chat/internal/util"
)

// ErrUnknownCommand is returned by Execute for an unregistered name.
var ErrUnknownCommand = errors.New("unknown command")

// ErrorMessage turns an Execute error into the line shown to the user.
func ErrorMessage(err error) string {
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return "Perintah tidak dikenal. Ketik /help."
	case errors.As(err, &ve):
		return ve.Error()
	default:
		return "Perintah gagal: " + err.Error()
	}
}

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command is a slash command.
type Command struct {
	// Name is the primary name, including the slash (e.g. "/help").
	Name string

	// Aliases are alternative names (e.g. "/h").
	Aliases []string

	// Description is shown in help.
	Description string

	// Usage shows the argument syntax (e.g. "/attach <path>").
	Usage string

	Args []ArgDef

	// Run executes the command. args excludes the command name.
	Run func(ctx context.Context, env *Env, args []string) (Result, error)

	// Hidden commands don't appear in help.
	Hidden bool
}

// ArgDef describes one argument of a command.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string
}

// ArgType selects the completion behavior of an argument.
type ArgType int

const (
	ArgTypeString ArgType = iota // Free-form string
	ArgTypeFile                  // File path
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command, replacing any command of the same name.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias. Names are case-insensitive.
func (r *Registry) Get(name string) *Command {
	name = strings.ToLower(name)
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns the registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Names returns every visible command name, sorted.
func (r *Registry) Names() []string {
	var names []string
	for _, cmd := range r.All() {
		if !cmd.Hidden {
			names = append(names, cmd.Name)
		}
	}
	return names
}

// Help renders the command list.
func (r *Registry) Help() string {
	var sb strings.Builder
	sb.WriteString("Perintah:\n")
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		sb.WriteString("  " + util.PadWidth(usage, 18) + " " + cmd.Description + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Execute validates and runs a parsed command.
func (r *Registry) Execute(ctx context.Context, env *Env, res ParseResult) (Result, error) {
	if res.Command == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCommand, res.CommandName)
	}
	if err := ValidateArgs(res.Command, res.Args); err != nil {
		return Result{}, err
	}
	return res.Command.Run(ctx, env, res.Args)
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/attach",
		Aliases:     []string{"/a"},
		Description: "Lampirkan berkas ke pesan berikutnya",
		Usage:       "/attach <path>",
		Args:        []ArgDef{{Name: "path", Required: true, Type: ArgTypeFile, Description: "path berkas"}},
		Run:         runAttach,
	})
	r.Register(&Command{
		Name:        "/export",
		Description: "Simpan riwayat ke berkas (.json atau .md)",
		Usage:       "/export <path>",
		Args:        []ArgDef{{Name: "path", Required: true, Type: ArgTypeFile, Description: "path tujuan"}},
		Run:         runExport,
	})
	r.Register(&Command{
		Name:        "/import",
		Description: "Muat riwayat dari berkas ekspor",
		Usage:       "/import <path>",
		Args:        []ArgDef{{Name: "path", Required: true, Type: ArgTypeFile, Description: "path berkas"}},
		Run:         runImport,
	})
	r.Register(&Command{
		Name:        "/clear",
		Description: "Hapus seluruh riwayat percakapan",
		Run:         runClear,
	})
	r.Register(&Command{
		Name:        "/logout",
		Description: "Keluar dari sesi",
		Run:         runLogout,
	})
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Tampilkan daftar perintah",
		Run: func(ctx context.Context, env *Env, args []string) (Result, error) {
			return Result{Message: r.Help()}, nil
		},
	})
	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/exit", "/q"},
		Description: "Tutup aplikasi",
		Run: func(ctx context.Context, env *Env, args []string) (Result, error) {
			return Result{Action: ActionQuit}, nil
		},
	})
}
