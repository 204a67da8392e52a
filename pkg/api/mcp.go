package api

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/promptpalette/pkg/catalog"
	"github.com/hazyhaar/promptpalette/pkg/kit"
	"github.com/hazyhaar/promptpalette/pkg/prompt"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates an MCP server exposing the catalog tools.
func NewMCPServer(reg *catalog.Registry, version string, logger *slog.Logger) *server.MCPServer {
	srv := server.NewMCPServer("promptpalette", version, server.WithToolCapabilities(true))
	RegisterMCPTools(srv, reg, logger)
	return srv
}

// RegisterMCPTools registers the four PromptPalette MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, reg *catalog.Registry, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	mw := func(op string) kit.Middleware {
		return kit.Chain(kit.RequestID(), kit.Logging(logger, op))
	}

	kit.RegisterMCPTool(srv, mcp.NewTool("list_subjects",
		mcp.WithDescription("List the school subjects of the catalog with their ids and topic counts."),
	), mw("list_subjects")(listSubjectsEndpoint(reg)), kit.NoArgs)

	kit.RegisterMCPTool(srv, mcp.NewTool("search_topics",
		mcp.WithDescription("Search a subject's topics. Matching ignores Vietnamese diacritics and case, expands abbreviations (pt, hpt, ...) and accepts words in any order. An empty query lists every topic."),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Subject id (see list_subjects)")),
		mcp.WithString("query", mcp.Description("Search text, e.g. \"ham so\" or \"pt\"")),
	), mw("search_topics")(searchTopicsEndpoint(reg)), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		subject, _ := args["subject"].(string)
		query, _ := args["query"].(string)
		return &kit.MCPDecodeResult{Request: &searchReq{Subject: subject, Query: query}}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("list_palettes",
		mcp.WithDescription("List the color palettes with their hex colors and style description."),
	), mw("list_palettes")(listPalettesEndpoint(reg)), kit.NoArgs)

	render := mw("render_prompt")(renderEndpoint(reg))
	kit.RegisterMCPTool(srv, mcp.NewTool("render_prompt",
		mcp.WithDescription("Render the infographic meta-prompt for a subject and topic. Returns plain text."),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Subject id")),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Catalog topic or free text")),
		mcp.WithString("palette", mcp.Description("Palette id; defaults to the first palette")),
		mcp.WithString("mode", mcp.Description("Design mode"), mcp.Enum("2D", "3D")),
	), func(ctx context.Context, request any) (any, error) {
		resp, err := render(ctx, request)
		if err != nil {
			return nil, err
		}
		return resp.(renderResponse).Prompt, nil
	}, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		r := &renderReq{}
		r.Subject, _ = args["subject"].(string)
		r.Topic, _ = args["topic"].(string)
		r.Palette, _ = args["palette"].(string)
		modeStr, _ := args["mode"].(string)
		mode, err := prompt.ParseDesignMode(modeStr)
		if err != nil {
			return nil, err
		}
		r.Mode = mode
		return &kit.MCPDecodeResult{Request: r}, nil
	})
}
