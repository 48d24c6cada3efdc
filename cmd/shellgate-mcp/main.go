// shellgate-mcp serves the command gateway over stdio for an agent
// runtime. Logs go to stderr; stdout carries only protocol frames.
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
	"github.com/mcp-noble/shellgate/pkg/logging"
	"github.com/mcp-noble/shellgate/pkg/mcp"
	"github.com/mcp-noble/shellgate/pkg/safety"
	"github.com/spf13/pflag"
)

var cfgFile string

func main() {
	pflag.StringVar(&cfgFile, "config", config.DefaultConfigPath(), "config file (optional)")
	pflag.Parse()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
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

	gateway := gate.New(cfg, audit, logger)
	server := mcp.NewServer(gateway)
	server.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
