// Copyright 2024-2026 Aiku AI

package warden

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Command is a registered text command. Emoji lists the reaction emoji that
// trigger the same action, for commands that have one.
type Command struct {
	Name        string
	Aliases     []string
	Emoji       []string
	Cooldown    time.Duration
	Description string
	Run         func(ctx context.Context, msg *Message, member *Member) error
}

// Registry holds the registered commands and resolves invocation tokens.
type Registry struct {
	commands []*Command
	byName   map[string]*Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Register adds a command under its name and all of its aliases.
func (r *Registry) Register(cmd *Command) {
	r.commands = append(r.commands, cmd)
	r.byName[strings.ToLower(cmd.Name)] = cmd
	for _, alias := range cmd.Aliases {
		r.byName[strings.ToLower(alias)] = cmd
	}
}

// Resolve finds a command by exact name or alias membership.
func (r *Registry) Resolve(token string) *Command {
	return r.byName[strings.ToLower(token)]
}

// Commands returns the registered commands in registration order.
func (r *Registry) Commands() []*Command {
	return r.commands
}

// CommandParser matches a single leading command token (prefix followed by
// word characters, case-insensitive). The pattern is compiled once; the
// prefix is immutable for the process lifetime.
type CommandParser struct {
	pattern *regexp.Regexp
}

// NewCommandParser compiles a parser for the given command prefix.
func NewCommandParser(prefix string) *CommandParser {
	return &CommandParser{
		pattern: regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(prefix) + `(\w+)`),
	}
}

// Parse returns the bare token and the remaining content with the token
// stripped from the front, or ok=false for a plain chat message.
func (p *CommandParser) Parse(content string) (token, rest string, ok bool) {
	m := p.pattern.FindStringSubmatch(content)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(content[len(m[0]):]), true
}
