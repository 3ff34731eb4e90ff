package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/paularlott/mcp"

	"github.com/martinsuchenak/subnetplan/internal/log"
	"github.com/martinsuchenak/subnetplan/internal/model"
	"github.com/martinsuchenak/subnetplan/internal/planner"
	"github.com/martinsuchenak/subnetplan/internal/schema"
	"github.com/martinsuchenak/subnetplan/internal/snapshot"
)

// Server wraps the MCP server with the snapshot store
type Server struct {
	mcpServer   *mcp.Server
	store       snapshot.Store
	bearerToken string
}

// NewServer creates a new MCP server exposing allocation runs
func NewServer(store snapshot.Store, bearerToken string) *Server {
	s := &Server{
		mcpServer:   mcp.NewServer("subnetplan", "1.0.0"),
		store:       store,
		bearerToken: bearerToken,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	// allocation_list - List allocations from the latest run
	s.mcpServer.RegisterTool(
		mcp.NewTool("allocation_list", "List allocated subnets and ranges from the latest run, optionally filtered by node",
			mcp.String("node", "Node name to filter by"),
		),
		s.handleAllocationList,
	)

	// allocation_get - Get one allocation by node and name
	s.mcpServer.RegisterTool(
		mcp.NewTool("allocation_get", "Get a single allocation by node and entry name",
			mcp.String("node", "Node name", mcp.Required()),
			mcp.String("name", "Entry name", mcp.Required()),
		),
		s.handleAllocationGet,
	)

	// plan_run - Run the planner against the latest stored run
	s.mcpServer.RegisterTool(
		mcp.NewTool("plan_run", "Run an allocation plan from a YAML schema. The latest stored run is replayed so existing assignments stay stable.",
			mcp.String("schema_yaml", "The network schema as YAML", mcp.Required()),
			mcp.String("save", "Set to \"true\" to store the resulting run"),
		),
		s.handlePlanRun,
	)

	// Run history tools (SQLite backend only)

	// run_list - List stored runs
	s.mcpServer.RegisterTool(
		mcp.NewTool("run_list", "List stored allocation runs, newest first"),
		s.handleRunList,
	)

	// run_get - Get a stored run by id
	s.mcpServer.RegisterTool(
		mcp.NewTool("run_get", "Get the full document of a stored run by id",
			mcp.String("id", "Run ID", mcp.Required()),
		),
		s.handleRunGet,
	)
}

// HandleRequest handles MCP HTTP requests with optional bearer token authentication
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	log.Debug("MCP request received", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

	// Check bearer token if configured
	if s.bearerToken != "" {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			log.Warn("MCP request missing Authorization header", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			log.Warn("MCP request invalid Authorization format", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid Authorization format", http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		if token != s.bearerToken {
			log.Warn("MCP request invalid token", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}
		log.Debug("MCP request authenticated successfully")
	}

	s.mcpServer.HandleRequest(w, r)
}

// GetHTTPHandler returns the handler for the /mcp endpoint
func (s *Server) GetHTTPHandler() http.HandlerFunc {
	return s.HandleRequest
}

// LogStartup logs the server configuration and registered tools
func (s *Server) LogStartup() {
	log.Info("MCP Server initialized", "version", "1.0.0")
	if s.bearerToken != "" {
		log.Info("MCP authentication enabled", "type", "Bearer token")
	} else {
		log.Info("MCP authentication disabled")
	}
	tools := s.mcpServer.ListTools()
	log.Info("MCP tools registered", "count", len(tools))
	for _, tool := range tools {
		log.Debug("MCP tool registered", "name", tool.Name, "description", tool.Description)
	}
}

func (s *Server) handlePlanRun(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	schemaYAML, err := req.String("schema_yaml")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("schema_yaml is required: " + err.Error())
	}

	sch, err := schema.Parse([]byte(schemaYAML))
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams(err.Error())
	}

	prior, err := s.latestSnapshot()
	if err != nil {
		log.Error("MCP plan run failed loading prior run", "error", err)
		return nil, mcp.NewToolErrorInternal("loading latest run: " + err.Error())
	}

	p, err := planner.Run(sch, prior)
	if err != nil {
		log.Warn("MCP plan run failed", "error", err)
		return nil, mcp.NewToolErrorInternal(err.Error())
	}

	doc := snapshot.FromPlan(p)
	if req.StringOr("save", "") == "true" {
		id, err := s.store.Save(doc)
		if err != nil {
			log.Error("MCP plan run failed saving", "error", err)
			return nil, mcp.NewToolErrorInternal("saving run: " + err.Error())
		}
		log.Info("MCP plan run saved", "id", id, "entries", doc.Count())
	}

	return documentResponse(doc)
}

func (s *Server) latestSnapshot() (*model.Snapshot, error) {
	doc, err := s.store.Latest()
	if err != nil || doc == nil {
		return nil, err
	}
	return doc.Snapshot()
}

func (s *Server) handleAllocationList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	node := req.StringOr("node", "")

	doc, err := s.store.Latest()
	if err != nil {
		log.Error("MCP allocation list failed", "error", err)
		return nil, mcp.NewToolErrorInternal("loading latest run: " + err.Error())
	}
	if doc == nil {
		return mcp.NewToolResponseText("No allocation run has been stored yet."), nil
	}

	if node != "" {
		nd, ok := doc[node]
		if !ok {
			return nil, mcp.NewToolErrorInvalidParams("unknown node: " + node)
		}
		doc = snapshot.Document{node: nd}
	}

	log.Debug("MCP allocation list", "node", node, "entries", doc.Count())
	return documentResponse(doc)
}

func (s *Server) handleAllocationGet(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	node, err := req.String("node")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("node is required: " + err.Error())
	}
	name, err := req.String("name")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("name is required: " + err.Error())
	}

	doc, err := s.store.Latest()
	if err != nil {
		log.Error("MCP allocation get failed", "error", err, "node", node, "name", name)
		return nil, mcp.NewToolErrorInternal("loading latest run: " + err.Error())
	}
	if doc == nil {
		return nil, mcp.NewToolErrorInternal("no allocation run has been stored yet")
	}

	nd, ok := doc[node]
	if !ok {
		return nil, mcp.NewToolErrorInvalidParams("unknown node: " + node)
	}
	rec, ok := nd.IPAM[name]
	if !ok {
		return nil, mcp.NewToolErrorInvalidParams(fmt.Sprintf("no allocation %s.%s", node, name))
	}

	log.Info("MCP allocation retrieved", "node", node, "name", name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, mcp.NewToolErrorInternal("encoding allocation: " + err.Error())
	}
	return mcp.NewToolResponseText(string(data)), nil
}

func (s *Server) handleRunList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	hs, ok := s.store.(snapshot.HistoryStore)
	if !ok {
		return nil, mcp.NewToolErrorInternal("run history requires the sqlite snapshot backend")
	}

	runs, err := hs.Runs()
	if err != nil {
		log.Error("MCP run list failed", "error", err)
		return nil, mcp.NewToolErrorInternal("listing runs: " + err.Error())
	}
	if len(runs) == 0 {
		return mcp.NewToolResponseText("No runs stored."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d run(s):\n\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(&b, "%s  %s  %d entries\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Entries)
	}
	return mcp.NewToolResponseText(b.String()), nil
}

func (s *Server) handleRunGet(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	id, err := req.String("id")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("id is required: " + err.Error())
	}

	hs, ok := s.store.(snapshot.HistoryStore)
	if !ok {
		return nil, mcp.NewToolErrorInternal("run history requires the sqlite snapshot backend")
	}

	doc, err := hs.GetRun(id)
	if err != nil {
		log.Error("MCP run get failed", "error", err, "id", id)
		return nil, mcp.NewToolErrorInternal(err.Error())
	}

	log.Info("MCP run retrieved", "id", id)
	return documentResponse(doc)
}

// documentResponse renders a run document as indented JSON with nodes in
// sorted order.
func documentResponse(doc snapshot.Document) (*mcp.ToolResponse, error) {
	nodes := make([]string, 0, len(doc))
	for n := range doc {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	data, err := snapshot.Encode(doc)
	if err != nil {
		return nil, mcp.NewToolErrorInternal("encoding run: " + err.Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Nodes: %s\n\n", strings.Join(nodes, ", "))
	b.Write(data)
	return mcp.NewToolResponseText(b.String()), nil
}
