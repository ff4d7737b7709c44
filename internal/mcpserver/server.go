// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes NodePad tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/nodepad/internal/apperr"
	"github.com/starford/nodepad/internal/assets"
	"github.com/starford/nodepad/internal/models"
	"github.com/starford/nodepad/internal/pageservice"
	"github.com/starford/nodepad/internal/tags"
)

const pageFormatURI = "nodepad://page-format"

// Server wraps the MCP server with NodePad tools.
type Server struct {
	mcp           *server.MCPServer
	svc           *pageservice.Service
	images        *assets.Store
	maxImageBytes int64
}

// New creates a new MCP server with all NodePad tools registered.
// maxImageBytes caps upload_image; non-positive means the default.
func New(svc *pageservice.Service, version string, maxImageBytes int64) *Server {
	if maxImageBytes <= 0 {
		maxImageBytes = assets.DefaultMaxBytes
	}
	s := &Server{
		svc:           svc,
		images:        assets.NewStore(svc.Store()),
		maxImageBytes: maxImageBytes,
	}

	s.mcp = server.NewMCPServer(
		"NodePad",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Ranked full-text search over page names, paths, titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text, at least two characters")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags every result must carry")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20, max 100)")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the full Markdown content of a page."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the page (e.g. folder/page.md)")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("list_tree",
		mcp.WithDescription("List the folder and page tree, optionally below a folder and filtered by tags."),
		mcp.WithString("path", mcp.Description("Folder to list (empty for the root)")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags; only pages carrying all of them are listed")),
	), s.listTree)

	s.mcp.AddTool(mcp.NewTool("save_page",
		mcp.WithDescription("Create or overwrite a page. Read the page format first via "+
			"get_page_format or the "+pageFormatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the page (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full Markdown content")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags replacing the current ones; omit to keep them")),
	), s.savePage)

	s.mcp.AddTool(mcp.NewTool("create_entity",
		mcp.WithDescription("Create an empty page (seeded with a heading) or a folder."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the new page or folder")),
		mcp.WithString("type", mcp.Required(), mcp.Enum("file", "folder", "directory"), mcp.Description("file, or folder (directory is accepted too)")),
	), s.createEntity)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag with the number of pages carrying it."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_page_format",
		mcp.WithDescription("Returns the NodePad page format. "+
			"Call this before creating or updating pages."),
	), s.getPageFormat)

	s.mcp.AddTool(mcp.NewTool("upload_image",
		mcp.WithDescription("Store an image from an http(s) URL or a base64 data URI next to a page. "+
			"Returns the image URL and a Markdown snippet."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("pagePath", mcp.Description("Page the image belongs to")),
		mcp.WithString("filename", mcp.Description("File name to store the image under")),
	), s.uploadImage)

	s.mcp.AddResource(
		mcp.NewResource(pageFormatURI, "Page Format",
			mcp.WithResourceDescription("How NodePad pages, tags and images are laid out."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPageFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError turns a domain error into a tool error prefixed with its kind.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", apperr.Kind(err), err))
}

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, tags.SplitCSV(req.GetString("tags", "")), req.GetInt("limit", 0))
	if err != nil {
		return toolError(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no pages found"), nil
	}
	return jsonResult(results)
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.Page(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(page.Content), nil
}

func (s *Server) listTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, total, err := s.svc.Tree(ctx, pageservice.TreeQuery{
		Path:      req.GetString("path", ""),
		Tags:      tags.SplitCSV(req.GetString("tags", "")),
		Sorted:    true,
		DirsFirst: true,
		Titles:    true,
	})
	if err != nil {
		return toolError(err), nil
	}
	var b strings.Builder
	writeTree(&b, nodes, 0)
	fmt.Fprintf(&b, "\n%d pages\n", total)
	return mcp.NewToolResultText(b.String()), nil
}

// writeTree renders nodes as an indented outline: folders end with "/",
// pages show their path and title.
func writeTree(b *strings.Builder, nodes []models.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		if n.IsFolder() {
			fmt.Fprintf(b, "%s%s/\n", indent, n.Name)
			writeTree(b, n.Children, depth+1)
			continue
		}
		fmt.Fprintf(b, "%s%s  (%s)\n", indent, n.Path, n.Title)
	}
}

func (s *Server) savePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sr := pageservice.SaveRequest{Path: path, Content: content}
	if _, ok := req.GetArguments()["tags"]; ok {
		sr.Tags = tags.SplitCSV(req.GetString("tags", ""))
		if sr.Tags == nil {
			sr.Tags = []string{}
		}
	}
	page, err := s.svc.Save(ctx, sr)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", page.Path)), nil
}

func (s *Server) createEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rel, err := s.svc.Create(ctx, path, typ)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", rel)), nil
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	counts, err := s.svc.TagCounts(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(counts) == 0 {
		return mcp.NewToolResultText("no tags"), nil
	}
	var b strings.Builder
	for _, c := range counts {
		fmt.Fprintf(&b, "%s\t%d\n", c.Tag, c.Count)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getPageFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PageFormat), nil
}

func (s *Server) readPageFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      pageFormatURI,
			MIMEType: "text/markdown",
			Text:     PageFormat,
		},
	}, nil
}
