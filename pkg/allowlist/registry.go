// Package allowlist holds the set of command names the gateway is willing
// to execute. The set is parsed once at startup and never mutated.
package allowlist

import (
	"fmt"
	"strings"
)

// Wildcard disables the allow-list entirely when configured as the whole
// ALLOWED_COMMANDS value. Intended for trusted single-user deployments.
const Wildcard = "*"

// defaultCommands mirrors the installer's shipped configuration: read-only
// inspection tools plus the common language runtimes.
var defaultCommands = []string{
	"ls", "cat", "pwd", "grep", "find", "git",
	"python3", "node", "npm", "pip",
	"curl", "wget",
	"wc", "head", "tail",
	"ps", "df", "free", "uname", "uptime", "nproc", "whoami",
	"date", "echo", "which",
}

// Registry is the immutable set of permitted command names. Order is kept
// for display; membership is exact and case-sensitive.
type Registry struct {
	commands     []string
	members      map[string]struct{}
	unrestricted bool
}

// Parse builds a Registry from a comma-separated configuration value.
// Entries are trimmed; empty entries are dropped; duplicates collapse on
// membership. An empty or absent value yields the built-in default list.
// The single value "*" yields an unrestricted registry.
func Parse(raw string) *Registry {
	raw = strings.TrimSpace(raw)
	if raw == Wildcard {
		return &Registry{unrestricted: true}
	}

	var commands []string
	if raw != "" {
		for _, entry := range strings.Split(raw, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			commands = append(commands, entry)
		}
	}
	if len(commands) == 0 {
		commands = append(commands, defaultCommands...)
	}

	members := make(map[string]struct{}, len(commands))
	for _, cmd := range commands {
		members[cmd] = struct{}{}
	}
	return &Registry{commands: commands, members: members}
}

// Default returns a registry holding the built-in command list.
func Default() *Registry {
	return Parse("")
}

// Contains reports whether name may be executed. No path resolution or
// alias expansion happens; the match is on the literal leading token.
func (r *Registry) Contains(name string) bool {
	if r.unrestricted {
		return true
	}
	_, ok := r.members[name]
	return ok
}

// Unrestricted reports whether the registry was configured with "*".
func (r *Registry) Unrestricted() bool {
	return r.unrestricted
}

// Commands returns the registry contents in configuration order. The
// returned slice is a copy.
func (r *Registry) Commands() []string {
	out := make([]string, len(r.commands))
	copy(out, r.commands)
	return out
}

// Len returns the number of allowed commands, 0 when unrestricted.
func (r *Registry) Len() int {
	return len(r.commands)
}

// Preview renders the first n entries plus a remainder count, used in
// denial messages so callers can self-correct without a second round trip.
func (r *Registry) Preview(n int) string {
	if r.unrestricted {
		return "all commands (unrestricted)"
	}
	if n <= 0 || n >= len(r.commands) {
		return strings.Join(r.commands, ", ")
	}
	rest := len(r.commands) - n
	return fmt.Sprintf("%s (and %d more)", strings.Join(r.commands[:n], ", "), rest)
}
