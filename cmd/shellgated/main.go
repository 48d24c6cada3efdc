// shellgated is the HTTP daemon: the form-post execute API plus config,
// history, system and health endpoints. A service supervisor starts it and
// restarts it on crash; request failures never take the process down.
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
	"github.com/mcp-noble/shellgate/pkg/safety"
	"github.com/mcp-noble/shellgate/pkg/version"
	"github.com/mcp-noble/shellgate/server"
	"github.com/spf13/pflag"
)

var (
	cfgFile     string
	addr        string
	showVersion bool
)

func main() {
	pflag.StringVar(&cfgFile, "config", config.DefaultConfigPath(), "config file (optional)")
	pflag.StringVar(&addr, "addr", "", "listen address (default: LISTEN_ADDR from config)")
	pflag.BoolVar(&showVersion, "version", false, "print version and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println(version.String())
		return
	}

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

	gateway := gate.New(cfg, audit, logger)
	srv := server.New(gateway, cfg.RateLimit, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mode := "RESTRICTED"
	if gateway.Registry().Unrestricted() {
		mode = "UNRESTRICTED"
	}
	logger.Info("shellgated starting", "addr", addr, "mode", mode, "version", version.Version)

	if err := srv.Start(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
