// Package system gathers host diagnostics for the get_system_info
// operation by running a small fixed battery of read-only probes.
package system

import (
	"context"
	"strings"
	"time"

	"github.com/mcp-noble/shellgate/pkg/exec"
	"github.com/mcp-noble/shellgate/pkg/safety"
)

// Unavailable marks a probe whose command is not allow-listed, failed, or
// timed out. One dead probe never fails the whole call.
const Unavailable = "(unavailable)"

// Field is one named diagnostic value.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Info is the collected battery, in probe order.
type Info struct {
	Fields []Field `json:"fields"`
}

// probes is the fixed battery. The commands are hard-coded, so only the
// leading token is checked against the registry; the operator scan is for
// caller-supplied text.
var probes = []struct {
	name    string
	command string
}{
	{"os", "uname -o"},
	{"kernel", "uname -r"},
	{"uptime", "uptime"},
	{"disk", "df -h /"},
	{"memory", "free -m"},
	{"cpus", "nproc"},
}

// Collector runs the probe battery through the same allow-list and engine
// as caller commands.
type Collector struct {
	validator    *safety.Validator
	engine       *exec.Engine
	probeTimeout time.Duration
}

// NewCollector builds a collector. probeTimeout bounds each probe
// individually; it is intentionally much shorter than the command timeout.
func NewCollector(validator *safety.Validator, engine *exec.Engine, probeTimeout time.Duration) *Collector {
	return &Collector{validator: validator, engine: engine, probeTimeout: probeTimeout}
}

// Collect runs every probe and returns one field per probe. Probe values
// may legitimately vary between calls (uptime does); the field set does
// not.
func (c *Collector) Collect(ctx context.Context) Info {
	info := Info{Fields: make([]Field, 0, len(probes))}
	for _, probe := range probes {
		info.Fields = append(info.Fields, Field{
			Name:  probe.name,
			Value: c.runProbe(ctx, probe.command),
		})
	}
	return info
}

func (c *Collector) runProbe(ctx context.Context, command string) string {
	name := strings.Fields(command)[0]
	if !c.validator.CheckName(name) {
		return Unavailable
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	probeEngine := *c.engine
	probeEngine.Timeout = c.probeTimeout
	res, err := probeEngine.Run(probeCtx, command)
	if err != nil || res.TimedOut || res.ExitCode != 0 {
		return Unavailable
	}
	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		return Unavailable
	}
	return out
}
