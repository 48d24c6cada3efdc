// Package format renders validation outcomes and execution results into
// the caller-facing text payloads. Everything here is pure string work; no
// formatting path can fail.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/mcp-noble/shellgate/pkg/allowlist"
	"github.com/mcp-noble/shellgate/pkg/exec"
	"github.com/mcp-noble/shellgate/pkg/safety"
	"github.com/mcp-noble/shellgate/pkg/system"
)

// previewEntries is how many allowed commands a denial message shows before
// collapsing the rest into a count.
const previewEntries = 10

// Denial renders a refused command. The not-allowed variant embeds a
// preview of the registry so the caller can self-correct without a
// separate list_allowed_commands round trip.
func Denial(outcome safety.Outcome, registry *allowlist.Registry) string {
	switch outcome.Reason {
	case safety.ReasonEmptyCommand:
		return "Command cannot be empty."
	case safety.ReasonNotAllowed:
		return fmt.Sprintf("Command '%s' is not allowed.\nAllowed commands: %s",
			outcome.Detail, registry.Preview(previewEntries))
	case safety.ReasonDangerousPattern:
		return fmt.Sprintf("Command rejected: contains blocked shell operator '%s'.", outcome.Detail)
	default:
		return "Command rejected."
	}
}

// Execution renders a completed (or timed out) run. timeout is the
// configured limit, named in the timeout message.
func Execution(command string, res *exec.Result, timeout time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command: %s\n", command)

	if res.TimedOut {
		fmt.Fprintf(&b, "Command timed out after %s.\n", timeout)
		appendStreams(&b, res, true)
		return strings.TrimRight(b.String(), "\n")
	}

	fmt.Fprintf(&b, "Exit code: %d\n", res.ExitCode)
	if res.Stdout == "" && res.Stderr == "" {
		if res.ExitCode == 0 {
			b.WriteString("Command completed successfully, no output.\n")
		}
	} else {
		appendStreams(&b, res, res.ExitCode != 0)
	}
	if res.Truncated {
		b.WriteString("(output truncated)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// appendStreams writes the captured streams. Stderr is labeled as warnings
// for clean exits and as error output otherwise.
func appendStreams(b *strings.Builder, res *exec.Result, failed bool) {
	if res.Stdout != "" {
		fmt.Fprintf(b, "\nOutput:\n%s\n", res.Stdout)
	}
	if res.Stderr != "" {
		label := "Warnings"
		if failed {
			label = "Error output"
		}
		fmt.Fprintf(b, "\n%s:\n%s\n", label, res.Stderr)
	}
}

// ExecutionError renders a command that never ran: spawn failure, an
// unparseable line, or a lost concurrency slot.
func ExecutionError(command string, err error) string {
	return fmt.Sprintf("Command: %s\nExecution error: %v", command, err)
}

// AllowedCommands renders the full registry with its count.
func AllowedCommands(registry *allowlist.Registry) string {
	if registry.Unrestricted() {
		return "All commands are allowed (unrestricted mode)."
	}
	return fmt.Sprintf("Allowed commands (%d):\n%s",
		registry.Len(), strings.Join(registry.Commands(), ", "))
}

// SystemInfo renders the probe battery, one field per line.
func SystemInfo(info system.Info) string {
	var b strings.Builder
	b.WriteString("System information:\n")
	for _, field := range info.Fields {
		value := field.Value
		if strings.Contains(value, "\n") {
			// Multi-line probe output gets its own block.
			value = "\n" + indent(value)
		}
		fmt.Fprintf(&b, "%s: %s\n", field.Name, value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
