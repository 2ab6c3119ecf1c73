// The stage-server binary serves the spam and attachment analysis stages as
// MCP tools over streamable HTTP, so the orchestrator can call them as an
// independently deployable service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/finofficer/autoreply/cmd/mainconfig"
	appconfig "github.com/finofficer/autoreply/internal/config"
	"github.com/finofficer/autoreply/internal/stage"
	"github.com/finofficer/autoreply/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	tools := stage.NewToolServer(
		stage.NewRuleSpamChecker(stage.DefaultSpamRules()),
		stage.NewSizeTypeValidator(stage.DefaultAttachmentFilters()),
		logger,
	)
	mcpServer := tools.MCPServer(mainconfig.Version)

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("stage server listening", "addr", addr)

	httpServer := server.NewStreamableHTTPServer(mcpServer)
	if err := httpServer.Start(addr); err != nil {
		logger.Error("stage server failed", "error", err)
		os.Exit(1)
	}
}
