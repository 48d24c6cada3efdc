//go:build unix

package exec

import (
	"context"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestProcessGroupActuallyDies(t *testing.T) {
	e := New(300*time.Millisecond, 0, t.TempDir(), 0)
	// The shell prints the pid of its background child, then hangs past
	// the timeout. Afterwards that grandchild must be gone too.
	res, err := e.Run(context.Background(), `sh -c "sleep 30 & echo $!; wait"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.TimedOut {
		t.Fatalf("expected timeout")
	}
	pid, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		t.Fatalf("could not parse child pid from %q", res.Stdout)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if syscall.Kill(pid, 0) != nil {
			return // process gone
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("background child %d survived the group kill", pid)
}
