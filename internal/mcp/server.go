// Package mcp exposes the stroke code calculators as Model Context Protocol
// tools. Tools are stateless: every call carries its own inputs and nothing
// is recorded.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/stroke-code-server/internal/domain"
	"github.com/stroke-code-server/internal/service"
)

const (
	defaultServerName    = "stroke-code-mcp-server"
	defaultServerVersion = "v1.0.0"
)

// Server wraps the MCP SDK server with the stroke code tool set
type Server struct {
	mcpServer *mcp.Server
	engine    *service.EligibilityEngine
	logger    *logrus.Logger
	tools     map[string]*tool
}

// tool pairs an MCP tool definition with its resolved input schema
type tool struct {
	def      *mcp.Tool
	resolved *jsonschema.Resolved
	run      func(ctx context.Context, args json.RawMessage) (interface{}, error)
}

// NewServer creates a new MCP server instance with every tool registered
func NewServer(cfg domain.MCPConfig, engine *service.EligibilityEngine, logger *logrus.Logger) (*Server, error) {
	name := cfg.ServerName
	if name == "" {
		name = defaultServerName
	}
	version := cfg.ServerVersion
	if version == "" {
		version = defaultServerVersion
	}

	serverInfo := &mcp.Implementation{
		Name:    name,
		Version: version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(serverInfo, nil),
		engine:    engine,
		logger:    logger,
		tools:     make(map[string]*tool),
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return s, nil
}

// registerTools resolves each input schema and adds the tool to the SDK server
func (s *Server) registerTools() error {
	for _, t := range s.toolDefinitions() {
		schema, ok := t.def.InputSchema.(*jsonschema.Schema)
		if !ok {
			return fmt.Errorf("tool %s: input schema must be a *jsonschema.Schema", t.def.Name)
		}
		resolved, err := schema.Resolve(nil)
		if err != nil {
			return fmt.Errorf("tool %s: invalid input schema: %w", t.def.Name, err)
		}
		t.resolved = resolved

		s.tools[t.def.Name] = t
		s.mcpServer.AddTool(t.def, s.handler(t))
		s.logger.WithField("tool_name", t.def.Name).Debug("Registered MCP tool")
	}

	s.logger.WithField("tool_count", len(s.tools)).Info("Successfully registered all tools")
	return nil
}

// ToolNames returns the registered tool names in sorted order
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call validates args against the tool's input schema and runs the tool
func (s *Server) Call(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	t, ok := s.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool %s: %w", name, domain.ErrNotFound)
	}
	return s.call(ctx, t, args)
}

func (s *Server) call(ctx context.Context, t *tool, args json.RawMessage) (interface{}, error) {
	start := time.Now()
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	var instance interface{}
	if err := json.Unmarshal(args, &instance); err != nil {
		return nil, domain.NewValidationError("arguments", "arguments must be a JSON object", nil)
	}
	if err := t.resolved.Validate(instance); err != nil {
		return nil, domain.NewValidationError("arguments", err.Error(), nil)
	}

	out, err := t.run(ctx, args)

	fields := logrus.Fields{
		"tool":     t.def.Name,
		"duration": time.Since(start).String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		s.logger.WithFields(fields).Warn("Tool call failed")
		return nil, err
	}
	s.logger.WithFields(fields).Info("Tool invoked")
	return out, nil
}

// handler adapts a tool to the SDK's raw handler. Tool failures are reported
// in the result with IsError set, not as protocol errors.
func (s *Server) handler(t *tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}

		out, err := s.call(ctx, t, args)
		if err != nil {
			return errorResult(err), nil
		}

		data, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s result: %w", t.def.Name, err)
		}
		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
			StructuredContent: json.RawMessage(data),
		}, nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	text := err.Error()
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		text = fmt.Sprintf("%s: %s", domain.ErrValidation, validation.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

// Run serves the tools over stdio until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting stroke code MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Connect attaches the server to an arbitrary transport
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, transport, nil)
}

// HTTPHandler serves the tools over the streamable HTTP transport
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}
