package mcp

// Tool describes one callable operation in tools/list.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// ToolContent is one block of a tool result payload.
type ToolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the payload returned from tools/call.
type ToolResult struct {
	Content []ToolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// TextResult wraps a single text payload into a ToolResult.
func TextResult(text string, isError bool) ToolResult {
	return ToolResult{
		Content: []ToolContent{{Type: "text", Text: text}},
		IsError: isError,
	}
}

// ToolDescriptors lists the fixed tool surface of the gateway.
func ToolDescriptors() []Tool {
	return []Tool{
		{
			Name:        "run_shell_command",
			Description: "Run an allow-listed shell command on the host and return its output.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "Full command line: command name plus arguments.",
					},
				},
				"required": []string{"command"},
			},
		},
		{
			Name:        "list_allowed_commands",
			Description: "List the commands this gateway is permitted to execute.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "get_system_info",
			Description: "Report host diagnostics: OS, kernel, uptime, disk, memory, CPU count.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
	}
}
