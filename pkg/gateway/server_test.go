package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mcp-noble/shellgate/pkg/config"
	"github.com/mcp-noble/shellgate/pkg/gate"
	"github.com/mcp-noble/shellgate/pkg/mcp"
)

func newRPC(t *testing.T) *mcp.Server {
	t.Helper()
	cfg := &config.Config{
		AllowedCommands:       "ls",
		CommandTimeoutSeconds: 30,
		MaxOutputSize:         config.DefaultMaxOutputSize,
		MaxConcurrent:         config.DefaultMaxConcurrent,
		HistoryLimit:          10,
		WorkDir:               t.TempDir(),
	}
	return mcp.NewServer(gate.New(cfg, nil, nil))
}

// startServer serves on an ephemeral port and returns the bound address.
func startServer(t *testing.T, srv *Server) net.Addr {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx, listener) }()
	return listener.Addr()
}

type client struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr net.Addr) *client {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &client{conn: conn, reader: bufio.NewReader(conn)}
}

// listTools performs one framed tools/list round trip, proving the session
// is registered and served.
func (c *client) listTools(t *testing.T, id int) {
	t.Helper()
	_ = c.conn.SetDeadline(time.Now().Add(5 * time.Second))
	payload := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/list"}`, id)
	if _, err := fmt.Fprintf(c.conn, "Content-Length: %d\r\n\r\n%s", len(payload), payload); err != nil {
		t.Fatalf("write request: %v", err)
	}
	resp := c.readFrame(t)
	if !strings.Contains(string(resp), "run_shell_command") {
		t.Fatalf("unexpected response: %q", resp)
	}
}

func (c *client) readFrame(t *testing.T) []byte {
	t.Helper()
	var length int
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read header: %v", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			length, _ = strconv.Atoi(strings.TrimSpace(strings.SplitN(line, ":", 2)[1]))
		}
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(c.reader, payload); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	return payload
}

func TestServeCapsSessions(t *testing.T) {
	srv := NewServer("", newRPC(t), nil)
	srv.SetMaxSessions(2)
	addr := startServer(t, srv)

	first := dial(t, addr)
	second := dial(t, addr)
	// A completed round trip guarantees both sessions are registered
	// before the third connection arrives.
	first.listTools(t, 1)
	second.listTools(t, 1)

	third := dial(t, addr)
	_ = third.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 1)
	n, err := third.conn.Read(buf)
	if n > 0 {
		t.Fatalf("connection over the cap must not be served, read %d bytes", n)
	}
	if err == nil || os.IsTimeout(err) {
		t.Fatalf("connection over the cap must be closed, got err=%v", err)
	}

	// The sessions under the cap keep working.
	first.listTools(t, 2)
	second.listTools(t, 2)

	if got := len(srv.ListSessions()); got != 2 {
		t.Fatalf("expected 2 live sessions, got %d", got)
	}
}

func TestServeFreesSlotOnDisconnect(t *testing.T) {
	srv := NewServer("", newRPC(t), nil)
	srv.SetMaxSessions(1)
	addr := startServer(t, srv)

	first := dial(t, addr)
	first.listTools(t, 1)
	first.conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for srv.sessionCount() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session was not unregistered after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	second := dial(t, addr)
	second.listTools(t, 1)
}

func TestServeRejectsUnauthorizedRemote(t *testing.T) {
	// 127.0.0.1 is not on the allow-list, so every connection is refused.
	srv := NewServer("", newRPC(t), AllowlistAuthorizer{Allowed: []string{"192.0.2.1"}})
	addr := startServer(t, srv)

	conn := dial(t, addr)
	_ = conn.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 1)
	n, err := conn.conn.Read(buf)
	if n > 0 || err == nil || os.IsTimeout(err) {
		t.Fatalf("unauthorized connection must be closed, read %d bytes, err=%v", n, err)
	}
	if got := len(srv.ListSessions()); got != 0 {
		t.Fatalf("refused connections must not register sessions, got %d", got)
	}
}
