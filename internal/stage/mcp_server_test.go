package stage

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finofficer/autoreply/pkg/logging"
)

func newToolServer() *ToolServer {
	return NewToolServer(
		NewRuleSpamChecker(DefaultSpamRules()),
		NewSizeTypeValidator(DefaultAttachmentFilters()),
		logging.NewWithWriter("error", io.Discard),
	)
}

func callToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestHandleDetectSpam(t *testing.T) {
	ts := newToolServer()

	res, err := ts.handleDetectSpam(context.Background(), callToolRequest(ToolDetectSpam, map[string]any{
		"sender":  "prince@win.xyz",
		"subject": "LOTTERY WINNER!!!",
		"content": "You won million dollars! Claim your inheritance via bank transfer now!",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var verdict SpamVerdict
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &verdict))
	assert.True(t, verdict.IsSpam)
	assert.NotEmpty(t, verdict.Indicators)
}

func TestHandleDetectSpamMissingSender(t *testing.T) {
	ts := newToolServer()

	res, err := ts.handleDetectSpam(context.Background(), callToolRequest(ToolDetectSpam, map[string]any{
		"subject": "hello",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleValidateAttachments(t *testing.T) {
	ts := newToolServer()

	res, err := ts.handleValidateAttachments(context.Background(), callToolRequest(ToolValidateAttachments, map[string]any{
		"attachments": `[{"filename":"a.pdf","content_type":"application/pdf","size_bytes":100},
		                 {"filename":"b.exe","content_type":"","size_bytes":100}]`,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var verdict AttachmentVerdict
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &verdict))
	require.Len(t, verdict.Allowed, 1)
	require.Len(t, verdict.Rejected, 1)
	assert.Equal(t, "b.exe", verdict.Rejected[0].Filename)
}

func TestHandleValidateAttachmentsBadPayload(t *testing.T) {
	ts := newToolServer()

	res, err := ts.handleValidateAttachments(context.Background(), callToolRequest(ToolValidateAttachments, map[string]any{
		"attachments": "not json",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestMCPServerRegistersTools(t *testing.T) {
	s := newToolServer().MCPServer("test")
	assert.NotNil(t, s)
}
