package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/issuetracker/internal/models"
	"github.com/joescharf/issuetracker/internal/store"
	"github.com/joescharf/issuetracker/internal/tracker"
)

// Server exposes the issue operations as MCP tools.
type Server struct {
	issues  *tracker.Service
	version string
}

// NewServer creates the MCP server wrapper over s.
func NewServer(s store.Store, version string) *Server {
	return &Server{issues: tracker.NewService(s), version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("issuetracker", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.showIssueTool())
	srv.AddTool(s.updateIssueTool())
	srv.AddTool(s.deleteIssueTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// jsonResult renders v as the text of a tool result.
func jsonResult(v any, isError bool) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	if isError {
		return mcp.NewToolResultError(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// fields collects the tool arguments as submitted fields, mapping "id" to "_id".
func fields(request mcp.CallToolRequest) tracker.Fields {
	f := tracker.FieldsFromMap(request.GetArguments())
	if id, ok := f["id"]; ok {
		f[models.FieldID] = id
		delete(f, "id")
	}
	return f
}

var fieldOptions = []struct {
	name string
	desc string
}{
	{models.FieldTitle, "Issue title"},
	{models.FieldText, "Issue description text"},
	{models.FieldCreatedBy, "Reporter name"},
	{models.FieldAssignedTo, "Assignee name"},
	{models.FieldStatusText, "Free-form status text"},
}

// issues_create
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issues_create",
		mcp.WithDescription("Create an issue in a project. issue_title, issue_text and created_by are required. Returns the stored issue as JSON, including its _id and timestamps."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString(models.FieldTitle, mcp.Required(), mcp.Description("Issue title")),
		mcp.WithString(models.FieldText, mcp.Required(), mcp.Description("Issue description text")),
		mcp.WithString(models.FieldCreatedBy, mcp.Required(), mcp.Description("Reporter name")),
		mcp.WithString(models.FieldAssignedTo, mcp.Description("Assignee name")),
		mcp.WithString(models.FieldStatusText, mcp.Description("Free-form status text")),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}

	issue, err := s.issues.Create(ctx, project, tracker.NewCreateRequest(fields(request)))
	if err != nil {
		if tracker.IsLogical(err) {
			return jsonResult(tracker.ErrorResponse("", err), true)
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to create issue: %v", err)), nil
	}
	return jsonResult(issue, false)
}

// issues_list
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := []mcp.ToolOption{
		mcp.WithDescription("List a project's issues. Every supplied filter must match exactly (case-sensitive). Returns a JSON array ordered by creation time."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("id", mcp.Description("Filter by issue _id")),
		mcp.WithString(models.FieldOpen, mcp.Description("Filter by state: true or false")),
	}
	for _, f := range fieldOptions {
		opts = append(opts, mcp.WithString(f.name, mcp.Description("Filter by "+f.desc)))
	}
	return mcp.NewTool("issues_list", opts...), s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}

	filters := make(map[string][]string)
	for key, value := range fields(request) {
		if key == "project" || value == "" {
			continue
		}
		filters[key] = []string{value}
	}

	issues, err := s.issues.List(ctx, project, filters)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}
	return jsonResult(issues, false)
}

// issues_show
func (s *Server) showIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issues_show",
		mcp.WithDescription("Get a single issue by _id. Returns the issue as JSON."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Issue _id")),
	)
	return tool, s.handleShowIssue
}

func (s *Server) handleShowIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	issue, err := s.issues.Get(ctx, project, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%v: %s", err, id)), nil
	}
	return jsonResult(issue, false)
}

// issues_update
func (s *Server) updateIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Update an issue. Provide the _id and at least one non-empty field; only supplied fields change and updated_on is refreshed. Returns {result, _id} or {error, _id}."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Issue _id")),
		mcp.WithBoolean(models.FieldOpen, mcp.Description("Set false to close the issue, true to reopen")),
	}
	for _, f := range fieldOptions {
		opts = append(opts, mcp.WithString(f.name, mcp.Description("New "+f.desc)))
	}
	return mcp.NewTool("issues_update", opts...), s.handleUpdateIssue
}

func (s *Server) handleUpdateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}

	resp, err := s.issues.Update(ctx, project, tracker.NewUpdateRequest(fields(request)))
	return jsonResult(resp, err != nil)
}

// issues_delete
func (s *Server) deleteIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issues_delete",
		mcp.WithDescription("Permanently delete an issue by _id. Returns {result, _id} or {error, _id}."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Issue _id")),
	)
	return tool, s.handleDeleteIssue
}

func (s *Server) handleDeleteIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}

	resp, err := s.issues.Delete(ctx, project, fields(request).ID())
	return jsonResult(resp, err != nil)
}
