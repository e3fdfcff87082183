package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aeggydev/Listopad/config"
	listopad "github.com/aeggydev/Listopad/core"
)

// bridge forwards tool calls to the listopad daemon over one connection.
type bridge struct {
	conn io.ReadWriter
	mu   sync.Mutex // one request in flight at a time
}

// send sends a request to the daemon and returns the response.
func (b *bridge) send(req map[string]any) (map[string]any, error) {
	req["id"] = listopad.NextID()
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := listopad.WriteMsg(b.conn, req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := listopad.ReadMsg(b.conn)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return resp, nil
}

func (b *bridge) call(req map[string]any) (*mcp.CallToolResult, error) {
	resp, err := b.send(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

// formatResult turns a daemon response into an MCP tool result. Rendered
// values are passed through as text; structured ones as indented JSON.
func formatResult(resp map[string]any) (*mcp.CallToolResult, error) {
	ok, _ := resp["ok"].(bool)
	if !ok {
		errMsg, _ := resp["error"].(string)
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return mcp.NewToolResultError(errMsg), nil
	}
	if s, isString := resp["value"].(string); isString {
		return mcp.NewToolResultText(s), nil
	}
	out, err := json.MarshalIndent(resp["value"], "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (b *bridge) handleEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := request.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return b.call(map[string]any{"op": "eval", "expr": expr})
}

func (b *bridge) handleTraces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := map[string]any{"op": "traces"}
	if n := request.GetInt("n", -1); n >= 0 {
		req["n"] = n
	}
	return b.call(req)
}

func (b *bridge) handleManual(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.call(map[string]any{})
}

func (b *bridge) handleClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.call(map[string]any{"op": "clear"})
}

func newMCPServer(b *bridge) *server.MCPServer {
	s := server.NewMCPServer(
		"listopad",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("listopad_eval",
			mcp.WithDescription("Evaluate one Lisp expression in the shared session. Returns the printed result."),
			mcp.WithString("expr",
				mcp.Required(),
				mcp.Description("S-expression to evaluate, e.g. (mapcar inc '(1 2 3))"),
			),
		),
		b.handleEval,
	)

	s.AddTool(
		mcp.NewTool("listopad_traces",
			mcp.WithDescription("Recent evaluations with their results or errors, oldest first."),
			mcp.WithNumber("n",
				mcp.Description("How many traces to return; all when omitted"),
			),
		),
		b.handleTraces,
	)

	s.AddTool(
		mcp.NewTool("listopad_manual",
			mcp.WithDescription("Describe the daemon: supported ops and the names bound in the global environment."),
		),
		b.handleManual,
	)

	s.AddTool(
		mcp.NewTool("listopad_clear",
			mcp.WithDescription("Start over: fresh interpreter, traces and recorded session dropped."),
		),
		b.handleClear,
	)

	return s
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	conn, err := net.Dial("unix", cfg.Socket)
	if err != nil {
		log.Fatalf("connect to %s: %v", cfg.Socket, err)
	}
	defer conn.Close()
	log.Printf("connected to listopad daemon: %s", cfg.Socket)

	if err := server.ServeStdio(newMCPServer(&bridge{conn: conn})); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
