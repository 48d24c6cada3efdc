// Package mcp serves the gateway's tool surface over a JSON-RPC 2.0 stream
// with Content-Length framing, the shape the agent runtime speaks on stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mcp-noble/shellgate/pkg/gate"
	"github.com/mcp-noble/shellgate/pkg/version"
)

const protocolVersion = "2024-11-05"

// Server handles one request stream. Requests are served sequentially per
// stream; separate streams (TCP sessions) run concurrently against the
// same Gateway.
type Server struct {
	gateway *gate.Gateway
	logger  *slog.Logger
}

func NewServer(gateway *gate.Gateway) *Server {
	return &Server{gateway: gateway}
}

func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Serve reads requests from reader and writes responses to writer until
// EOF. A malformed or failing request never terminates the loop; only a
// dead transport does.
func (s *Server) Serve(ctx context.Context, reader io.Reader, writer io.Writer) error {
	bufReader := bufio.NewReader(reader)
	bufWriter := bufio.NewWriter(writer)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := readMessage(bufReader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.logError("rpc_read_failed", "error", err)
			return err
		}

		var req rpcRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			s.logWarn("rpc_parse_error", "error", err)
			_ = writeError(bufWriter, nil, -32700, "parse error", err.Error())
			continue
		}
		if req.Method == "" {
			_ = writeError(bufWriter, req.ID, -32600, "invalid request", "missing method")
			continue
		}

		s.dispatch(ctx, req, bufWriter)
	}
}

// ServeStdio serves the process's stdin/stdout, the default transport.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

func (s *Server) dispatch(ctx context.Context, req rpcRequest, w *bufio.Writer) {
	switch req.Method {
	case "initialize":
		_ = writeResult(w, req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    "shellgate",
				"version": version.Version,
			},
		})
	case "tools/list":
		_ = writeResult(w, req.ID, map[string]any{"tools": ToolDescriptors()})
	case "tools/call":
		result := s.callTool(ctx, req.Params)
		_ = writeResult(w, req.ID, result)
	default:
		_ = writeError(w, req.ID, -32601, "method not found", req.Method)
	}
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type runShellArgs struct {
	Command string `json:"command"`
}

// callTool maps a tool invocation onto the gateway pipeline. A panic in
// request handling is converted to a generic error result so one bad
// request cannot take the serving loop down.
func (s *Server) callTool(ctx context.Context, params json.RawMessage) (result ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logError("tool_call_panic", "panic", fmt.Sprint(r))
			result = TextResult("Internal error while handling the request.", true)
		}
	}()

	var call toolCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return TextResult(fmt.Sprintf("Invalid tool call parameters: %v.", err), true)
	}

	switch call.Name {
	case "run_shell_command":
		var args runShellArgs
		if len(call.Arguments) > 0 {
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				return TextResult(fmt.Sprintf("Invalid arguments: %v.", err), true)
			}
		}
		resp := s.gateway.RunShellCommand(ctx, args.Command)
		return TextResult(resp.Text, resp.Denied || resp.Err)
	case "list_allowed_commands":
		return TextResult(s.gateway.ListAllowedCommands().Text, false)
	case "get_system_info":
		return TextResult(s.gateway.SystemInfo(ctx).Text, false)
	default:
		return TextResult(fmt.Sprintf("Unknown tool '%s'.", call.Name), true)
	}
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeResult(w *bufio.Writer, id any, result any) error {
	if id == nil {
		// Notification: no response expected.
		return nil
	}
	payload, err := json.Marshal(rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
	if err != nil {
		return err
	}
	return writeMessage(w, payload)
}

func writeError(w *bufio.Writer, id any, code int, message string, data any) error {
	if id == nil {
		return nil
	}
	payload, err := json.Marshal(rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message, Data: data}})
	if err != nil {
		return err
	}
	return writeMessage(w, payload)
}

func writeMessage(w *bufio.Writer, payload []byte) error {
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return w.Flush()
}

// readMessage accepts either Content-Length framed payloads or a bare JSON
// object per line, which keeps manual testing over a pipe practical.
func readMessage(r *bufio.Reader) ([]byte, error) {
	for {
		line, err := r.ReadString('\n')
		if err != nil && len(line) == 0 {
			return nil, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "{") {
			return []byte(trimmed), nil
		}

		contentLength, err := parseContentLength(trimmed)
		if err != nil {
			// Not a header we understand; skip the line.
			continue
		}

		// Consume remaining headers up to the blank separator line.
		for {
			headerLine, readErr := r.ReadString('\n')
			if readErr != nil && len(headerLine) == 0 {
				return nil, readErr
			}
			header := strings.TrimRight(headerLine, "\r\n")
			if header == "" {
				break
			}
			if length, parseErr := parseContentLength(header); parseErr == nil && length > 0 {
				contentLength = length
			}
		}

		if contentLength <= 0 {
			return nil, fmt.Errorf("missing Content-Length")
		}
		payload := make([]byte, contentLength)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
}

func parseContentLength(header string) (int, error) {
	if !strings.HasPrefix(strings.ToLower(header), "content-length:") {
		return 0, fmt.Errorf("not a content-length header")
	}
	value := strings.TrimSpace(strings.SplitN(header, ":", 2)[1])
	return strconv.Atoi(value)
}

func (s *Server) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Server) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
