package reply

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finofficer/autoreply/pkg/logging"
)

func newTestStore(t *testing.T, templates map[string]string) *TemplateStore {
	t.Helper()
	dir := t.TempDir()
	for key, content := range templates {
		require.NoError(t, os.WriteFile(filepath.Join(dir, key+templateExt), []byte(content), 0o644))
	}
	store := NewTemplateStore(dir, logging.NewWithWriter("error", io.Discard))
	require.NoError(t, store.Load())
	return store
}

func TestLoadRequiresDefaultTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "positive"+templateExt), []byte("hi"), 0o644))

	store := NewTemplateStore(dir, logging.NewWithWriter("error", io.Discard))
	assert.ErrorIs(t, store.Load(), ErrDefaultTemplateMissing)
}

func TestGetFallsBackToDefault(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"default": "default body",
	})

	content, err := store.Get(KeyUrgentHigh)
	require.NoError(t, err)
	assert.Equal(t, "default body", content)
}

func TestRenderSubstitutesTokens(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"default": "Dear {{SENDER_NAME}}, re: {{SUBJECT}} ({{SENTIMENT}}/{{URGENCY}}) on {{CURRENT_DATE}}. {{SUMMARY}}",
	})

	got, err := store.Render(KeyDefault, Context{
		SenderName:  "Jan Kowalski",
		Subject:     "Invoice",
		Sentiment:   "NEGATIVE",
		Urgency:     "HIGH",
		Summary:     "Complains about a late invoice.",
		CurrentDate: "02.07.2025",
	})
	require.NoError(t, err)
	assert.Equal(t, KeyDefault, got.Template)
	assert.Equal(t, "Dear Jan Kowalski, re: Invoice (NEGATIVE/HIGH) on 02.07.2025. Complains about a late invoice.", got.Body)
}

func TestRenderSenderNameFromAddress(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"default": "Hello {{SENDER_NAME}}!",
	})

	got, err := store.Render(KeyDefault, Context{SenderName: SenderName("jan_kowalski@example.com")})
	require.NoError(t, err)
	assert.Contains(t, got.Body, "Jan Kowalski")
}

func TestRenderLeavesUnmatchedTokensVerbatim(t *testing.T) {
	// Typoed tokens leak through silently. Existing template authors may
	// rely on this, so the behavior is pinned rather than fixed.
	store := newTestStore(t, map[string]string{
		"default": "Hi {{SENDERNAME}}, {{UNKNOWN_TOKEN}} stays.",
	})

	got, err := store.Render(KeyDefault, Context{SenderName: "Jan"})
	require.NoError(t, err)
	assert.Equal(t, "Hi {{SENDERNAME}}, {{UNKNOWN_TOKEN}} stays.", got.Body)
}

func TestRenderOptionalHistoryTokens(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"default":         "n/a",
		"frequent_sender": "Message {{EMAIL_COUNT}}, last on {{LAST_EMAIL_DATE}}.",
	})

	got, err := store.Render(KeyFrequentSender, Context{EmailCount: 4, LastEmailDate: "01.05.2025"})
	require.NoError(t, err)
	assert.Equal(t, "Message 4, last on 01.05.2025.", got.Body)

	// Unset history context leaves the tokens in place.
	got, err = store.Render(KeyFrequentSender, Context{})
	require.NoError(t, err)
	assert.Equal(t, "Message {{EMAIL_COUNT}}, last on {{LAST_EMAIL_DATE}}.", got.Body)
}

func TestRenderMissingKeyUsesDefaultContent(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"default": "fallback for {{SENDER_NAME}}",
	})

	got, err := store.Render(KeyNegativeVery, Context{SenderName: "Jan"})
	require.NoError(t, err)
	// The result names the template that actually served the request, so
	// archive records never point at a key with no backing file.
	assert.Equal(t, KeyDefault, got.Template)
	assert.Equal(t, "fallback for Jan", got.Body)
}

func TestRenderReportsRequestedKeyWhenPresent(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"default":  "fallback",
		"negative": "sorry {{SENDER_NAME}}",
	})

	got, err := store.Render(KeyNegative, Context{SenderName: "Jan"})
	require.NoError(t, err)
	assert.Equal(t, KeyNegative, got.Template)
	assert.Equal(t, "sorry Jan", got.Body)
}

func TestEnsureDefaultsCreatesMissingTemplates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "templates")
	store := NewTemplateStore(dir, logging.NewWithWriter("error", io.Discard))

	require.NoError(t, store.EnsureDefaults())
	require.NoError(t, store.Load())
	assert.Len(t, store.Keys(), len(starterTemplates))

	// Existing files survive a second run.
	custom := filepath.Join(dir, "default"+templateExt)
	require.NoError(t, os.WriteFile(custom, []byte("custom"), 0o644))
	require.NoError(t, store.EnsureDefaults())
	content, err := os.ReadFile(custom)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(content))
}

func TestSenderName(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jan_kowalski@example.com", "Jan Kowalski"},
		{"jan.kowalski42@example.com", "Jan Kowalski"},
		{"Jan Kowalski <jan@example.com>", "Jan Kowalski"},
		{"<anna@example.com>", "Anna"},
		{"MARIA@example.com", "Maria"},
		{"12345@example.com", "Customer"},
		{"", "Customer"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, SenderName(tt.email))
		})
	}
}
