// Package safety decides whether a requested command line may reach the
// execution engine, and records what the gateway did with it.
package safety

import (
	"strings"

	"github.com/mcp-noble/shellgate/pkg/allowlist"
)

// DenialReason classifies why a command was refused.
type DenialReason string

const (
	ReasonEmptyCommand     DenialReason = "empty_command"
	ReasonNotAllowed       DenialReason = "command_not_allowed"
	ReasonDangerousPattern DenialReason = "dangerous_pattern"
)

// Outcome is the result of validating one command line. Exactly one of the
// allowed/denied shapes is populated.
type Outcome struct {
	Allowed bool
	// Command is the trimmed command line, set when Allowed.
	Command string
	// Reason and Detail describe a denial: Detail carries the offending
	// leading token or operator substring.
	Reason DenialReason
	Detail string
}

// operatorPatterns are shell control operators refused anywhere in the
// line. Longer operators come first so the reported match is exact.
// The scan is a plain substring check, not a shell tokenizer: a filename
// that merely contains one of these is refused too. False denial is
// preferred over false permission here.
var operatorPatterns = []string{"&&", "||", ">>", ";", "|", ">", "<", "`", "$("}

// Validator checks raw command lines against an immutable registry.
type Validator struct {
	registry *allowlist.Registry
}

// NewValidator builds a validator over the given registry.
func NewValidator(registry *allowlist.Registry) *Validator {
	return &Validator{registry: registry}
}

// Registry exposes the allow-list backing this validator.
func (v *Validator) Registry() *allowlist.Registry {
	return v.registry
}

// Validate applies the checks in order, first match wins: empty command,
// leading token not in the registry, control operator anywhere in the
// line. It never fails; malformed input is a denial, not an error.
func (v *Validator) Validate(raw string) Outcome {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Outcome{Reason: ReasonEmptyCommand}
	}

	name := strings.Fields(trimmed)[0]
	if !v.registry.Contains(name) {
		return Outcome{Reason: ReasonNotAllowed, Detail: name}
	}

	for _, pattern := range operatorPatterns {
		if strings.Contains(trimmed, pattern) {
			return Outcome{Reason: ReasonDangerousPattern, Detail: pattern}
		}
	}

	return Outcome{Allowed: true, Command: trimmed}
}

// CheckName reports whether a bare command name passes the registry
// membership check. Used for the hard-coded system-info probes, which skip
// the operator scan since their text is not caller supplied.
func (v *Validator) CheckName(name string) bool {
	return v.registry.Contains(name)
}
