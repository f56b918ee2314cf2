package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/ensiklopedia/internal/answer"
	"github.com/kalambet/ensiklopedia/internal/directory"
	"github.com/kalambet/ensiklopedia/internal/history"
	"github.com/kalambet/ensiklopedia/internal/i18n"
	"github.com/kalambet/ensiklopedia/internal/search"
)

// MCPHistory is the history surface exposed over MCP.
type MCPHistory interface {
	List(ctx context.Context) ([]history.ListItem, error)
	Record(ctx context.Context, query string, resp *answer.MultiLanguage) (history.Item, error)
}

// MCPSession reports whether a backend session exists.
type MCPSession interface {
	HasSession() bool
}

// MCPDirectory serves the topic directory.
type MCPDirectory interface {
	Get(ctx context.Context) directory.Data
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Searcher  Searcher
	History   MCPHistory   // optional; nil disables list_history and recording
	Session   MCPSession   // optional; nil means never logged in
	Directory MCPDirectory
	Version   string
}

// NewMCPServer creates an MCP server with the encyclopedia tools and
// resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"ensiklopedia",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("Ensiklopedia: grounded encyclopedia answers on Islamic history in Indonesian, Arabic and English."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask the encyclopedia. Answers are grounded in web search and include their sources."),
			mcp.WithString("query", mcp.Description("Topic or question"), mcp.Required()),
			mcp.WithString("lang", mcp.Description("Answer language: id, ar or en (default id)")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("list_history",
			mcp.WithDescription("List previously asked queries, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 20)")),
		),
		mcpListHistory(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"encyclopedia://directory",
			"Topic Directory",
			mcp.WithResourceDescription("Curated topic categories in every language as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDirectory(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		lang, err := i18n.ParseLang(req.GetString("lang", string(i18n.Default)))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		ans, err := deps.Searcher.Search(ctx, query)
		if errors.Is(err, search.ErrEmptyQuery) {
			return mcpError(i18n.T(lang, "errorInvalidSearch", nil)), nil
		}
		if err != nil {
			slog.Error("mcp ask failed", "error", err)
			return mcpError(i18n.T(lang, "errorFetching", nil)), nil
		}

		if deps.History != nil && deps.Session != nil && deps.Session.HasSession() {
			if _, err := deps.History.Record(ctx, query, ans); err != nil {
				slog.Warn("mcp ask not saved to history", "error", err)
			}
		}

		return mcpText(renderAnswer(ans.Get(lang))), nil
	}
}

// renderAnswer formats a structured answer as plain text with a numbered
// source list.
func renderAnswer(s answer.Structured) string {
	var b strings.Builder
	b.WriteString(s.Text)
	if len(s.KeyTerms) > 0 {
		b.WriteString("\n\nKey terms:\n")
		for _, kt := range s.KeyTerms {
			fmt.Fprintf(&b, "- %s: %s\n", kt.Term, kt.Definition)
		}
	}
	if len(s.Sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for i, src := range s.Sources {
			fmt.Fprintf(&b, "[%d] %s <%s>\n", i+1, src.Title, src.URI)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func mcpListHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.History == nil || deps.Session == nil || !deps.Session.HasSession() {
			return mcpError(i18n.T(i18n.Default, "authLoginRequired", nil)), nil
		}
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}

		items, err := deps.History.List(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing history failed: %v", err)), nil
		}
		if len(items) > limit {
			items = items[:limit]
		}
		if len(items) == 0 {
			return mcpText("No history yet."), nil
		}

		b, err := json.Marshal(items)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal history: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceDirectory(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Directory.Get(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal directory: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
