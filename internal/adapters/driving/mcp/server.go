package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/dpa-check/internal/logger"
)

// Version is the MCP server version reported when none is configured.
const Version = "0.1.0"

// instructions is sent to clients during initialisation.
const instructions = "dpa-check reviews data processing agreements (Auftragsverarbeitungsverträge) " +
	"against Art. 28 GDPR. Call analyze_document with either the contract text or a local file path. " +
	"Read " + uriScheme + "categories for the assessed categories and their weights."

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version announced to MCP clients.
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// Server exposes contract analysis to MCP clients. It serves one tool,
// analyze_document, plus read-only resources for the category catalogue
// and the active prompt templates.
type Server struct {
	ports   *Ports
	version string
	server  *mcp.Server
}

// NewServer validates the ports and registers the tool and resources.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{ports: ports, version: Version}
	for _, opt := range opts {
		opt(s)
	}

	s.server = mcp.NewServer(
		&mcp.Implementation{Name: "dpa-check", Version: s.version},
		&mcp.ServerOptions{Instructions: instructions},
	)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: toolAnalyze,
		Description: "Analyse a data processing agreement against Art. 28 GDPR and return " +
			"per-clause findings, recommended actions and a compliance score (0-100)",
	}, s.handleAnalyze)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "categories",
		Name:        "categories",
		Description: "Assessed Art. 28 GDPR categories with their score weights",
		MIMEType:    "application/json",
	}, s.handleCategoriesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "prompts/{name}",
		Name:        "prompt",
		Description: "Active prompt template (system, chunk_analysis or merge)",
		MIMEType:    "text/plain",
	}, s.handlePromptResource)

	logger.Debug("mcp server %s ready (prompt store: %t)", s.version, ports.Prompts != nil)
	return s, nil
}

// Version returns the version announced to clients.
func (s *Server) Version() string {
	return s.version
}

// Connect serves a single session over t. Run and RunHTTP build on the
// same server; tests use it with in-memory transports.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves streamable HTTP on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp http shutdown: %v", err)
		}
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
