// Package mcp exposes the recommendation engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/preventive-care-server/internal/domain"
	"github.com/preventive-care-server/internal/service"
)

// Server represents the preventive care MCP server
type Server struct {
	mcpServer *mcp.Server
	service   *service.RecommendationService
	bridge    *service.SchedulingBridge
	logger    *logrus.Logger
	clock     func() time.Time
}

// NewServer creates a new MCP server instance with every tool registered
func NewServer(cfg domain.MCPConfig, svc *service.RecommendationService, bridge *service.SchedulingBridge, logger *logrus.Logger) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("recommendation service is required")
	}
	if bridge == nil {
		bridge = service.NewSchedulingBridge(nil)
	}

	serverInfo := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}
	if serverInfo.Name == "" {
		serverInfo.Name = "preventive-care"
	}
	if serverInfo.Version == "" {
		serverInfo.Version = "1.0.0"
	}

	server := &Server{
		mcpServer: mcp.NewServer(serverInfo, nil),
		service:   svc,
		bridge:    bridge,
		logger:    logger,
		clock:     time.Now,
	}

	server.registerTools()
	return server, nil
}

// Start serves MCP over stdio until ctx is cancelled or the client disconnects
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("catalog_version", s.service.Catalog().Version).Info("Starting preventive care MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolComputeChecklist,
		Description: "Compute the ranked preventive screening checklist for a set of onboarding answers",
	}, s.handleComputeChecklist)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolExplainChecklist,
		Description: "Explain every screening rule's decision, including rules that do not apply",
	}, s.handleExplainChecklist)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolValidateForScheduling,
		Description: "Check that a screening is on the patient's current checklist and return its booking target",
	}, s.handleValidateForScheduling)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListScreeningRules,
		Description: "List the guideline catalog's screening rules, optionally filtered by category",
	}, s.handleListScreeningRules)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolOnboardingSteps,
		Description: "Return the onboarding wizard steps shown for the answers given so far",
	}, s.handleOnboardingSteps)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolConfirmRecency,
		Description: "Record the date a patient last had a screening so later checklists can use it",
	}, s.handleConfirmRecency)

	s.logger.WithField("tool_count", len(ToolNames)).Info("Registered MCP tools")
}
