package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/finofficer/autoreply/internal/mail"
)

// toolCaller is the slice of the MCP client the stage adapters use.
type toolCaller interface {
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// NewStageClient connects to a remote stage server over streamable HTTP and
// completes the MCP handshake.
func NewStageClient(ctx context.Context, baseURL, version string) (*client.Client, error) {
	c, err := client.NewStreamableHttpClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("stage: create client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("stage: start client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "autoreply", Version: version}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return nil, fmt.Errorf("stage: initialize: %w", err)
	}
	return c, nil
}

// MCPSpamChecker screens messages by calling the detect_spam tool on a
// remote stage server.
type MCPSpamChecker struct {
	caller  toolCaller
	timeout time.Duration
}

// NewMCPSpamChecker wraps an MCP client as a SpamChecker.
func NewMCPSpamChecker(caller toolCaller, timeout time.Duration) *MCPSpamChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MCPSpamChecker{caller: caller, timeout: timeout}
}

func (c *MCPSpamChecker) Check(ctx context.Context, msg mail.Message) (SpamVerdict, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = ToolDetectSpam
	req.Params.Arguments = map[string]any{
		"sender":          msg.From,
		"subject":         msg.Subject,
		"content":         msg.Content,
		"has_attachments": len(msg.Attachments) > 0,
	}

	var verdict SpamVerdict
	if err := callToolJSON(ctx, c.caller, req, &verdict); err != nil {
		return SpamVerdict{}, fmt.Errorf("stage: %s: %w", ToolDetectSpam, err)
	}
	return verdict, nil
}

// MCPAttachmentValidator validates attachments by calling the
// validate_attachments tool on a remote stage server.
type MCPAttachmentValidator struct {
	caller  toolCaller
	timeout time.Duration
}

// NewMCPAttachmentValidator wraps an MCP client as an AttachmentValidator.
func NewMCPAttachmentValidator(caller toolCaller, timeout time.Duration) *MCPAttachmentValidator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MCPAttachmentValidator{caller: caller, timeout: timeout}
}

func (c *MCPAttachmentValidator) Validate(ctx context.Context, attachments []mail.Attachment) (AttachmentVerdict, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(attachments)
	if err != nil {
		return AttachmentVerdict{}, fmt.Errorf("stage: encode attachments: %w", err)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = ToolValidateAttachments
	req.Params.Arguments = map[string]any{"attachments": string(payload)}

	var verdict AttachmentVerdict
	if err := callToolJSON(ctx, c.caller, req, &verdict); err != nil {
		return AttachmentVerdict{}, fmt.Errorf("stage: %s: %w", ToolValidateAttachments, err)
	}
	return verdict, nil
}

// callToolJSON invokes the tool and decodes its text content as JSON into
// out.
func callToolJSON(ctx context.Context, caller toolCaller, req mcp.CallToolRequest, out any) error {
	res, err := caller.CallTool(ctx, req)
	if err != nil {
		return err
	}
	if res.IsError {
		return fmt.Errorf("tool error: %s", resultText(res))
	}
	text := resultText(res)
	if text == "" {
		return errors.New("empty tool result")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode tool result: %w", err)
	}
	return nil
}

func resultText(res *mcp.CallToolResult) string {
	for _, content := range res.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
