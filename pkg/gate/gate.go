// Package gate wires the command-execution pipeline: validate a requested
// command line, run it under the configured limits, and render the
// response. Protocol adapters (stdio, TCP, HTTP) all call into one Gateway.
package gate

import (
	"context"
	"io"
	"log/slog"

	"github.com/mcp-noble/shellgate/pkg/allowlist"
	"github.com/mcp-noble/shellgate/pkg/config"
	"github.com/mcp-noble/shellgate/pkg/exec"
	"github.com/mcp-noble/shellgate/pkg/format"
	"github.com/mcp-noble/shellgate/pkg/history"
	"github.com/mcp-noble/shellgate/pkg/safety"
	"github.com/mcp-noble/shellgate/pkg/system"
)

// Response is the caller-facing result of one operation. Text is always
// set; the structured fields let the HTTP adapter build its JSON shape.
type Response struct {
	Text    string
	Command string
	// Denied is set for validation refusals; Result stays nil.
	Denied bool
	// Err is set when an approved command failed to run at all.
	Err    bool
	Result *exec.Result
}

// Gateway is the stateless request pipeline around the immutable
// configuration. Safe for concurrent use.
type Gateway struct {
	cfg       config.Config
	validator *safety.Validator
	engine    *exec.Engine
	collector *system.Collector
	history   *history.Log
	audit     safety.AuditRecorder
	logger    *slog.Logger
}

// New assembles a gateway from configuration. audit may be nil.
func New(cfg *config.Config, audit safety.AuditRecorder, logger *slog.Logger) *Gateway {
	registry := allowlist.Parse(cfg.AllowedCommands)
	validator := safety.NewValidator(registry)
	engine := exec.New(cfg.CommandTimeout(), cfg.MaxOutputSize, cfg.WorkDir, cfg.MaxConcurrent)
	if audit == nil {
		audit = safety.NopRecorder{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gateway{
		cfg:       *cfg,
		validator: validator,
		engine:    engine,
		collector: system.NewCollector(validator, engine, cfg.ProbeTimeout()),
		history:   history.NewLog(cfg.HistoryLimit),
		audit:     audit,
		logger:    logger,
	}
}

// Registry exposes the loaded allow-list.
func (g *Gateway) Registry() *allowlist.Registry {
	return g.validator.Registry()
}

// History exposes the recent-request log.
func (g *Gateway) History() *history.Log {
	return g.history
}

// Config returns a copy of the configuration the gateway was built with.
func (g *Gateway) Config() config.Config {
	return g.cfg
}

// RunShellCommand is the full pipeline: validate, execute, format. Denials
// short-circuit before the engine; engine failures become error responses,
// never panics or process exits.
func (g *Gateway) RunShellCommand(ctx context.Context, command string) Response {
	outcome := g.validator.Validate(command)
	if !outcome.Allowed {
		g.logger.Warn("command denied", "command", command, "reason", string(outcome.Reason), "detail", outcome.Detail)
		_ = g.audit.Record(safety.AuditEvent{Action: "denied", Command: command, Reason: string(outcome.Reason)})
		g.history.Add(history.Entry{Command: command, Denied: true, Reason: string(outcome.Reason), ExitCode: -1})
		return Response{
			Text:    format.Denial(outcome, g.Registry()),
			Command: command,
			Denied:  true,
		}
	}

	res, err := g.engine.Run(ctx, outcome.Command)
	if err != nil {
		g.logger.Error("command failed to run", "command", outcome.Command, "error", err)
		_ = g.audit.Record(safety.AuditEvent{Action: "denied", Command: outcome.Command, Reason: err.Error()})
		g.history.Add(history.Entry{Command: outcome.Command, Denied: false, Reason: err.Error(), ExitCode: -1})
		return Response{
			Text:    format.ExecutionError(outcome.Command, err),
			Command: outcome.Command,
			Err:     true,
		}
	}

	g.logger.Info("command executed",
		"command", outcome.Command,
		"exit_code", res.ExitCode,
		"timed_out", res.TimedOut,
		"duration", res.Duration)
	_ = g.audit.Record(safety.AuditEvent{
		Action:   "executed",
		Command:  outcome.Command,
		ExitCode: res.ExitCode,
		TimedOut: res.TimedOut,
	})
	g.history.Add(history.Entry{
		Command:  outcome.Command,
		ExitCode: res.ExitCode,
		TimedOut: res.TimedOut,
	})

	return Response{
		Text:    format.Execution(outcome.Command, res, g.cfg.CommandTimeout()),
		Command: outcome.Command,
		Result:  res,
	}
}

// ListAllowedCommands reports the registry loaded at startup, independent
// of any request history.
func (g *Gateway) ListAllowedCommands() Response {
	return Response{Text: format.AllowedCommands(g.Registry())}
}

// SystemInfo runs the diagnostic probe battery.
func (g *Gateway) SystemInfo(ctx context.Context) Response {
	info := g.collector.Collect(ctx)
	return Response{Text: format.SystemInfo(info)}
}
