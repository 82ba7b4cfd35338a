// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes idea tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ideacards/internal/apperr"
	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/ideaservice"
)

const contractURI = "ideacards://idea-format"

// Ideas is the subset of the idea service the tools need.
type Ideas interface {
	Random(ctx context.Context, status idea.Status) (*idea.Idea, error)
	Get(ctx context.Context, id int64) (*idea.Idea, error)
	Search(ctx context.Context, q ideaservice.Query) ([]idea.Idea, error)
	Suggest(ctx context.Context, keyword string, tags []string) ([]idea.Idea, error)
	Create(ctx context.Context, in idea.CreatePayload) (*idea.Idea, error)
	UpdateStatus(ctx context.Context, id int64, status idea.Status) (*idea.Idea, error)
}

// Server wraps the MCP server with idea tools.
type Server struct {
	mcp   *server.MCPServer
	ideas Ideas
}

// New creates a new MCP server with all idea tools registered.
func New(ideas Ideas, version string) *Server {
	s := &Server{ideas: ideas}

	s.mcp = server.NewMCPServer(
		"ideacards",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("random_idea",
		mcp.WithDescription("Pick one random idea with the given status."),
		mcp.WithString("status", mcp.Description("active (default), execute, transfer or deleted")),
	), s.randomIdea)

	s.mcp.AddTool(mcp.NewTool("get_idea",
		mcp.WithDescription("Read one idea by id, including tags, blockers and born-with links."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Idea id")),
	), s.getIdea)

	s.mcp.AddTool(mcp.NewTool("search_ideas",
		mcp.WithDescription("Search ideas by keyword, tags and status. Newest first."),
		mcp.WithString("keyword", mcp.Description("Case-insensitive substring of the body")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags; every tag must match")),
		mcp.WithString("status", mcp.Description("Status filter; empty matches any status")),
	), s.searchIdeas)

	s.mcp.AddTool(mcp.NewTool("suggest_ideas",
		mcp.WithDescription("Find active ideas that could be linked as born-with."),
		mcp.WithString("keyword", mcp.Description("Case-insensitive substring of the body")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.suggestIdeas)

	s.mcp.AddTool(mcp.NewTool("create_idea",
		mcp.WithDescription("Create a new active idea. Read the contract first via "+
			"the get_idea_contract tool or the "+contractURI+" resource."),
		mcp.WithString("body", mcp.Required(), mcp.Description("Idea text")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("blockers", mcp.Description("One blocker per line")),
		mcp.WithString("born_with", mcp.Description("Comma-separated ids of related ideas")),
	), s.createIdea)

	s.mcp.AddTool(mcp.NewTool("update_idea_status",
		mcp.WithDescription("Move an idea to another status."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Idea id")),
		mcp.WithString("status", mcp.Required(), mcp.Description("active, execute, transfer or deleted")),
	), s.updateIdeaStatus)

	s.mcp.AddTool(mcp.NewTool("get_idea_contract",
		mcp.WithDescription("Returns the idea field and lifecycle contract."),
	), s.getIdeaContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Idea Contract",
			mcp.WithResourceDescription("Idea fields and status lifecycle."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func (s *Server) randomIdea(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := optionalStatus(req, idea.StatusActive)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, err := s.ideas.Random(ctx, status)
	if err != nil {
		return toolError(err, fmt.Sprintf("no %s ideas found", status)), nil
	}
	return jsonResult(it), nil
}

func (s *Server) getIdea(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, err := s.ideas.Get(ctx, id)
	if err != nil {
		return toolError(err, fmt.Sprintf("idea not found: %d", id)), nil
	}
	return jsonResult(it), nil
}

func (s *Server) searchIdeas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := optionalStatus(req, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.ideas.Search(ctx, ideaservice.Query{
		Keyword: req.GetString("keyword", ""),
		Tags:    idea.SplitTags(req.GetString("tags", "")),
		Status:  status,
	})
	if err != nil {
		return toolError(err, ""), nil
	}
	return jsonResult(results), nil
}

func (s *Server) suggestIdeas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := s.ideas.Suggest(ctx,
		req.GetString("keyword", ""),
		idea.SplitTags(req.GetString("tags", "")))
	if err != nil {
		return toolError(err, ""), nil
	}
	return jsonResult(results), nil
}

func (s *Server) createIdea(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links, err := parseIDs(req.GetString("born_with", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	it, err := s.ideas.Create(ctx, idea.CreatePayload{Payload: idea.Payload{
		Body:        body,
		Tags:        idea.SplitTags(req.GetString("tags", "")),
		Blockers:    splitLines(req.GetString("blockers", "")),
		BornWithIDs: links,
	}})
	if err != nil {
		return toolError(err, ""), nil
	}
	return jsonResult(it), nil
}

func (s *Server) updateIdeaStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := idea.ParseStatus(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, err := s.ideas.UpdateStatus(ctx, id, status)
	if err != nil {
		return toolError(err, fmt.Sprintf("idea not found: %d", id)), nil
	}
	return jsonResult(it), nil
}

func (s *Server) getIdeaContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(IdeaFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     IdeaFormatContract,
		},
	}, nil
}

func requireID(req mcp.CallToolRequest) (int64, error) {
	v, err := req.RequireFloat("id")
	if err != nil {
		return 0, err
	}
	if v < 1 || v != float64(int64(v)) {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return int64(v), nil
}

func optionalStatus(req mcp.CallToolRequest, def idea.Status) (idea.Status, error) {
	raw := strings.TrimSpace(req.GetString("status", ""))
	if raw == "" {
		return def, nil
	}
	return idea.ParseStatus(raw)
}

func parseIDs(raw string) ([]int64, error) {
	ids := []int64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("born_with: %q is not an idea id", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitLines(raw string) []string {
	out := []string{}
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// toolError maps service errors to tool results. notFound replaces the
// message of apperr.ErrNotFound when set.
func toolError(err error, notFound string) *mcp.CallToolResult {
	if notFound != "" && errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(notFound)
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}
