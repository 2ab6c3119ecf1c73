package stage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/finofficer/autoreply/internal/mail"
	"github.com/finofficer/autoreply/pkg/logging"
)

const (
	// ToolDetectSpam is the MCP tool name for spam screening.
	ToolDetectSpam = "detect_spam"
	// ToolValidateAttachments is the MCP tool name for attachment validation.
	ToolValidateAttachments = "validate_attachments"
)

// ToolServer exposes the analysis stages as MCP tools so they can run as a
// standalone service and be swapped out independently of the orchestrator.
type ToolServer struct {
	spam      SpamChecker
	validator AttachmentValidator
	logger    *logging.Logger
}

// NewToolServer creates the tool handlers over the given stage
// implementations.
func NewToolServer(spam SpamChecker, validator AttachmentValidator, logger *logging.Logger) *ToolServer {
	if logger == nil {
		logger = logging.Default()
	}
	return &ToolServer{spam: spam, validator: validator, logger: logger}
}

// MCPServer builds the MCP server with both stage tools registered.
func (t *ToolServer) MCPServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"autoreply-stages",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool(ToolDetectSpam,
		mcp.WithDescription("Screen an email for spam based on content and metadata"),
		mcp.WithString("sender", mcp.Required(), mcp.Description("Sender email address")),
		mcp.WithString("subject", mcp.Description("Email subject line")),
		mcp.WithString("content", mcp.Description("Plain-text email body")),
		mcp.WithBoolean("has_attachments", mcp.Description("Whether the email carries attachments")),
	), t.handleDetectSpam)

	s.AddTool(mcp.NewTool(ToolValidateAttachments,
		mcp.WithDescription("Validate attachment metadata against size and type filters"),
		mcp.WithString("attachments", mcp.Required(),
			mcp.Description("JSON array of attachment metadata: filename, content_type, size_bytes")),
	), t.handleValidateAttachments)

	return s
}

func (t *ToolServer) handleDetectSpam(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sender, err := req.RequireString("sender")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg := mail.Message{
		From:    sender,
		Subject: req.GetString("subject", ""),
		Content: req.GetString("content", ""),
	}
	if req.GetBool("has_attachments", false) {
		msg.Attachments = []mail.Attachment{{}}
	}

	verdict, err := t.spam.Check(ctx, msg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("spam check failed: %v", err)), nil
	}
	t.logger.Debug("spam check served", "sender", sender, "is_spam", verdict.IsSpam, "score", verdict.Score)
	return toolResultJSON(verdict)
}

func (t *ToolServer) handleValidateAttachments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("attachments")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var attachments []mail.Attachment
	if err := json.Unmarshal([]byte(raw), &attachments); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid attachments payload: %v", err)), nil
	}

	verdict, err := t.validator.Validate(ctx, attachments)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("attachment validation failed: %v", err)), nil
	}
	t.logger.Debug("attachments validated", "allowed", len(verdict.Allowed), "rejected", len(verdict.Rejected))
	return toolResultJSON(verdict)
}

func toolResultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
