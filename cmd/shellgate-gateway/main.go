// shellgate-gateway serves the command gateway's tool surface over TCP,
// with optional remote-address filtering and a session cap.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcp-noble/shellgate/pkg/config"
	"github.com/mcp-noble/shellgate/pkg/gate"
	"github.com/mcp-noble/shellgate/pkg/gateway"
	"github.com/mcp-noble/shellgate/pkg/logging"
	"github.com/mcp-noble/shellgate/pkg/mcp"
	"github.com/mcp-noble/shellgate/pkg/safety"
	"github.com/spf13/pflag"
)

var (
	cfgFile      string
	addr         string
	maxSessions  int
	allowedAddrs []string
)

func main() {
	pflag.StringVar(&cfgFile, "config", config.DefaultConfigPath(), "config file (optional)")
	pflag.StringVar(&addr, "addr", "", "listen address (default: LISTEN_ADDR from config)")
	pflag.IntVar(&maxSessions, "max-sessions", 0, "maximum concurrent sessions (0 = unlimited)")
	pflag.StringSliceVar(&allowedAddrs, "allow", nil, "remote hosts allowed to connect (empty = all)")
	pflag.Parse()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if addr == "" {
		addr = cfg.ListenAddr
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	var audit safety.AuditRecorder = safety.NopRecorder{}
	if cfg.AuditLog != "" {
		recorder, err := safety.NewFileRecorder(cfg.AuditLog)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer recorder.Close()
		audit = recorder
	}

	gw := gate.New(cfg, audit, logger)
	rpc := mcp.NewServer(gw)
	rpc.SetLogger(logger)

	srv := gateway.NewServer(addr, rpc, gateway.AllowlistAuthorizer{Allowed: allowedAddrs})
	srv.SetLogger(logger)
	if maxSessions > 0 {
		srv.SetMaxSessions(maxSessions)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
