package system

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/mcp-noble/shellgate/pkg/allowlist"
	"github.com/mcp-noble/shellgate/pkg/exec"
	"github.com/mcp-noble/shellgate/pkg/safety"
)

func newCollector(t *testing.T, allowed string) *Collector {
	t.Helper()
	validator := safety.NewValidator(allowlist.Parse(allowed))
	engine := exec.New(30*time.Second, 1<<20, t.TempDir(), 0)
	return NewCollector(validator, engine, 5*time.Second)
}

func TestCollectAlwaysReturnsEveryField(t *testing.T) {
	c := newCollector(t, "uname")
	info := c.Collect(context.Background())
	if len(info.Fields) != len(probes) {
		t.Fatalf("expected %d fields, got %d", len(probes), len(info.Fields))
	}
	names := map[string]bool{}
	for _, f := range info.Fields {
		names[f.Name] = true
		if f.Value == "" {
			t.Fatalf("field %s has empty value; want content or %q", f.Name, Unavailable)
		}
	}
	for _, want := range []string{"os", "kernel", "uptime", "disk", "memory", "cpus"} {
		if !names[want] {
			t.Fatalf("missing field %q", want)
		}
	}
}

func TestCollectDeniedProbesAreUnavailable(t *testing.T) {
	// Nothing from the battery is allow-listed, so every field must fall
	// back rather than fail the call.
	c := newCollector(t, "ls")
	info := c.Collect(context.Background())
	for _, f := range info.Fields {
		if f.Value != Unavailable {
			t.Fatalf("field %s = %q, want %q", f.Name, f.Value, Unavailable)
		}
	}
}

func TestCollectAllowedProbeProducesValue(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses uname(1)")
	}
	c := newCollector(t, "uname")
	info := c.Collect(context.Background())
	var kernel string
	for _, f := range info.Fields {
		if f.Name == "kernel" {
			kernel = f.Value
		}
	}
	if kernel == "" || kernel == Unavailable {
		t.Fatalf("expected a kernel version from uname -r, got %q", kernel)
	}
}

func TestDefaultRegistryCoversProbes(t *testing.T) {
	// Every probe command must pass the built-in allow-list, otherwise its
	// field is permanently unavailable under default configuration.
	validator := safety.NewValidator(allowlist.Default())
	for _, probe := range probes {
		name := strings.Fields(probe.command)[0]
		if !validator.CheckName(name) {
			t.Fatalf("probe %q uses %q, which the default allow-list refuses", probe.name, name)
		}
	}
}

func TestCollectIsRepeatable(t *testing.T) {
	c := newCollector(t, "uname")
	a := c.Collect(context.Background())
	b := c.Collect(context.Background())
	if len(a.Fields) != len(b.Fields) {
		t.Fatalf("field sets differ between calls: %d vs %d", len(a.Fields), len(b.Fields))
	}
	for i := range a.Fields {
		if a.Fields[i].Name != b.Fields[i].Name {
			t.Fatalf("field order changed between calls")
		}
	}
}
