// Package server exposes registered tools over JSON-RPC 2.0 on HTTP, in the
// shape Model Context Protocol clients expect.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"docsearch/internal/domain"
	"docsearch/internal/tool"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
)

const protocolVersion = "2024-11-05"

// Tool is a callable tool with a self-description.
type Tool interface {
	Definition() tool.Definition
	Call(ctx context.Context, args json.RawMessage) (string, error)
}

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Content is one item of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the result of tools/call.
type CallResult struct {
	Content []Content `json:"content"`
}

// Server routes JSON-RPC calls to registered tools.
type Server struct {
	app     *fiber.App
	tools   map[string]Tool
	names   []string
	name    string
	version string
	log     *slog.Logger
}

// New builds a server named name exposing tools on POST /mcp.
func New(name, version string, log *slog.Logger, tools ...Tool) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		tools:   make(map[string]Tool, len(tools)),
		name:    name,
		version: version,
		log:     log,
	}
	for _, t := range tools {
		def := t.Definition()
		s.tools[def.Name] = t
		s.names = append(s.names, def.Name)
	}

	s.app = fiber.New(fiber.Config{
		AppName:      name,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})
	s.app.Use(recover.New())
	s.app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "tools": s.names})
	})
	s.app.Post("/mcp", s.handleRPC)
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("tool server listening", "addr", addr, "tools", s.names)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleRPC(c fiber.Ctx) error {
	var req Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.JSON(errorResponse(nil, codeParseError, "parse error"))
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return c.JSON(errorResponse(req.ID, codeInvalidRequest, "invalid request"))
	}
	// notifications carry no id and expect no body
	if req.ID == nil && strings.HasPrefix(req.Method, "notifications/") {
		c.Status(fiber.StatusAccepted)
		return nil
	}

	started := time.Now()
	var (
		result any
		rpcErr *RPCError
	)
	switch req.Method {
	case "initialize":
		result = fiber.Map{
			"protocolVersion": protocolVersion,
			"serverInfo":      fiber.Map{"name": s.name, "version": s.version},
			"capabilities":    fiber.Map{"tools": fiber.Map{"listChanged": false}},
		}
	case "ping":
		result = fiber.Map{}
	case "tools/list":
		result = s.listTools()
	case "tools/call":
		result, rpcErr = s.callTool(c.Context(), req.Params)
	default:
		rpcErr = &RPCError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
	}

	s.log.Debug("rpc handled", "method", req.Method, "elapsed", time.Since(started), "failed", rpcErr != nil)
	if rpcErr != nil {
		return c.JSON(Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr})
	}
	return c.JSON(Response{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (s *Server) listTools() fiber.Map {
	defs := make([]tool.Definition, 0, len(s.names))
	for _, name := range s.names {
		defs = append(defs, s.tools[name].Definition())
	}
	return fiber.Map{"tools": defs}
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	t, ok := s.tools[call.Name]
	if !ok {
		return nil, &RPCError{Code: codeInvalidParams, Message: "unknown tool: " + call.Name}
	}
	if len(call.Arguments) == 0 {
		call.Arguments = json.RawMessage(`{}`)
	}

	text, err := t.Call(ctx, call.Arguments)
	switch {
	case err == nil:
		return CallResult{Content: []Content{{Type: "text", Text: text}}}, nil
	case errors.Is(err, tool.ErrInvalidRequest):
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	case errors.Is(err, domain.ErrNotIndexed):
		s.log.Warn("tool called before indexing", "tool", call.Name)
		return nil, &RPCError{Code: codeInternal, Message: err.Error()}
	default:
		s.log.Error("tool call failed", "tool", call.Name, "error", err)
		return nil, &RPCError{Code: codeInternal, Message: err.Error()}
	}
}

func errorResponse(id any, code int, msg string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: msg}}
}
