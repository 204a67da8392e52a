package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPDecodeResult holds the decoded request and an optional context enrichment.
type MCPDecodeResult struct {
	Request   any
	EnrichCtx func(context.Context) context.Context
}

// MCPDecoder extracts the typed request from MCP arguments.
type MCPDecoder func(mcp.CallToolRequest) (*MCPDecodeResult, error)

// NoArgs decodes tools that take no arguments.
func NoArgs(mcp.CallToolRequest) (*MCPDecodeResult, error) {
	return &MCPDecodeResult{}, nil
}

// RegisterMCPTool registers an Endpoint as an MCP tool on the given server.
// The endpoint runs with the transport set to TransportMCP. A string
// response is returned as-is; anything else is returned as JSON text.
// Endpoint errors become tool errors, not protocol errors.
func RegisterMCPTool(srv *server.MCPServer, tool mcp.Tool, endpoint Endpoint, decode MCPDecoder) {
	if decode == nil {
		decode = NoArgs
	}
	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		ctx = WithTransport(ctx, TransportMCP)
		if decoded.EnrichCtx != nil {
			ctx = decoded.EnrichCtx(ctx)
		}

		resp, err := endpoint(ctx, decoded.Request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if text, ok := resp.(string); ok {
			return mcp.NewToolResultText(text), nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}
