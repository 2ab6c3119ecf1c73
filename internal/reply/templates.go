package reply

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/finofficer/autoreply/pkg/logging"
)

// ErrDefaultTemplateMissing means the store has no `default` template. There
// is nothing to fall back to, so this is a fatal configuration error.
var ErrDefaultTemplateMissing = errors.New("reply: default template missing")

const templateExt = ".template"

// Context carries the values substituted into a template. Zero values render
// as empty strings, except EmailCount and LastEmailDate which are skipped
// when unset so templates can carry their own wording around them.
type Context struct {
	SenderName    string
	Subject       string
	Sentiment     string
	Urgency       string
	Summary       string
	EmailCount    int
	LastEmailDate string
	CurrentDate   string
}

// Rendered is the final reply body together with the template that
// produced it.
type Rendered struct {
	Template TemplateKey
	Body     string
}

// TemplateStore loads *.template files from a directory and renders them by
// literal token replacement. Reload on demand via Load; lookups are served
// from the in-memory catalog.
type TemplateStore struct {
	dir       string
	templates map[TemplateKey]string
	logger    *logging.Logger
}

// NewTemplateStore creates a store over dir. Call Load before Get or Render.
func NewTemplateStore(dir string, logger *logging.Logger) *TemplateStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &TemplateStore{
		dir:       dir,
		templates: map[TemplateKey]string{},
		logger:    logger,
	}
}

// Load reads every *.template file in the directory into the catalog. The
// filename stem is the key. Returns ErrDefaultTemplateMissing when no
// `default` template is found.
func (s *TemplateStore) Load() error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+templateExt))
	if err != nil {
		return fmt.Errorf("reply: list templates: %w", err)
	}

	loaded := make(map[TemplateKey]string, len(matches))
	for _, path := range matches {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reply: read template %s: %w", path, err)
		}
		key := TemplateKey(strings.TrimSuffix(filepath.Base(path), templateExt))
		loaded[key] = string(content)
	}
	if _, ok := loaded[KeyDefault]; !ok {
		return ErrDefaultTemplateMissing
	}

	s.templates = loaded
	s.logger.Info("templates loaded", "dir", s.dir, "count", len(loaded))
	return nil
}

// Keys returns the catalog's keys in no particular order.
func (s *TemplateStore) Keys() []TemplateKey {
	keys := make([]TemplateKey, 0, len(s.templates))
	for k := range s.templates {
		keys = append(keys, k)
	}
	return keys
}

// Get returns the raw template text for key, falling back to `default` when
// the key has no backing file.
func (s *TemplateStore) Get(key TemplateKey) (string, error) {
	_, content, err := s.lookup(key)
	return content, err
}

// lookup resolves key to the template that will actually serve it.
func (s *TemplateStore) lookup(key TemplateKey) (TemplateKey, string, error) {
	if content, ok := s.templates[key]; ok {
		return key, content, nil
	}
	content, ok := s.templates[KeyDefault]
	if !ok {
		return "", "", ErrDefaultTemplateMissing
	}
	s.logger.Warn("template missing, using default", "key", string(key))
	return KeyDefault, content, nil
}

// Render fills the template for key with ctx. Substitution is literal
// {{TOKEN}} replacement; tokens the template spells differently than the
// fixed set are left verbatim. Rendered.Template names the template that
// actually served the request, so a fallback reports `default`.
func (s *TemplateStore) Render(key TemplateKey, ctx Context) (Rendered, error) {
	resolved, content, err := s.lookup(key)
	if err != nil {
		return Rendered{}, err
	}

	currentDate := ctx.CurrentDate
	if currentDate == "" {
		currentDate = time.Now().Format("02.01.2006")
	}

	body := content
	body = strings.ReplaceAll(body, "{{SENDER_NAME}}", ctx.SenderName)
	body = strings.ReplaceAll(body, "{{SUBJECT}}", ctx.Subject)
	body = strings.ReplaceAll(body, "{{CURRENT_DATE}}", currentDate)
	body = strings.ReplaceAll(body, "{{SENTIMENT}}", ctx.Sentiment)
	body = strings.ReplaceAll(body, "{{URGENCY}}", ctx.Urgency)
	body = strings.ReplaceAll(body, "{{SUMMARY}}", ctx.Summary)
	if ctx.EmailCount > 0 {
		body = strings.ReplaceAll(body, "{{EMAIL_COUNT}}", strconv.Itoa(ctx.EmailCount))
	}
	if ctx.LastEmailDate != "" {
		body = strings.ReplaceAll(body, "{{LAST_EMAIL_DATE}}", ctx.LastEmailDate)
	}

	return Rendered{Template: resolved, Body: body}, nil
}

// EnsureDefaults creates the template directory and writes starter templates
// for any catalog key that has no file yet. Existing files are left alone.
func (s *TemplateStore) EnsureDefaults() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("reply: create template dir: %w", err)
	}
	for key, content := range starterTemplates {
		path := filepath.Join(s.dir, string(key)+templateExt)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("reply: write starter template %s: %w", key, err)
		}
		s.logger.Info("starter template written", "key", string(key))
	}
	return nil
}

var nameSeparators = regexp.MustCompile(`[0-9_.]+`)

// SenderName derives a display name from an email address. It handles the
// "Jan Kowalski <jan@example.com>" form, otherwise capitalizes the words of
// the local part with digits, dots and underscores treated as separators.
// Falls back to "Customer" when nothing usable remains.
func SenderName(email string) string {
	addr := strings.TrimSpace(email)
	if i := strings.Index(addr, "<"); i >= 0 {
		if name := strings.TrimSpace(addr[:i]); name != "" {
			return name
		}
		if j := strings.Index(addr, ">"); j > i {
			addr = addr[i+1 : j]
		}
	}

	local := addr
	if at := strings.Index(addr, "@"); at >= 0 {
		local = addr[:at]
	}

	words := strings.Fields(nameSeparators.ReplaceAllString(local, " "))
	if len(words) == 0 {
		return "Customer"
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

var starterTemplates = map[TemplateKey]string{
	KeyDefault: `Dear {{SENDER_NAME}},

Thank you for your message regarding "{{SUBJECT}}".

We have received it and will get back to you shortly.

Kind regards,
Customer Service Team
`,
	KeyUrgentCritical: `Dear {{SENDER_NAME}},

Thank you for your message regarding "{{SUBJECT}}".

We understand your matter is critically urgent and have escalated it for immediate attention. We will contact you as soon as possible.

Kind regards,
Customer Service Team
`,
	KeyUrgentHigh: `Dear {{SENDER_NAME}},

Thank you for your message regarding "{{SUBJECT}}".

Your matter has been flagged as high priority and will be handled ahead of the regular queue.

Kind regards,
Customer Service Team
`,
	KeyNegativeVery: `Dear {{SENDER_NAME}},

Thank you for your message regarding "{{SUBJECT}}".

We are very sorry about your experience. Your case has been forwarded to a team lead who will personally look into it.

Kind regards,
Customer Service Team
`,
	KeyNegative: `Dear {{SENDER_NAME}},

Thank you for your message regarding "{{SUBJECT}}".

We are sorry to hear things did not go as expected. We will review your case and respond shortly.

Kind regards,
Customer Service Team
`,
	KeyNegativeRepeated: `Dear {{SENDER_NAME}},

Thank you for writing to us again regarding "{{SUBJECT}}".

We see this is not the first time you have run into problems, and we sincerely apologize. Your case has been escalated to a team lead for personal follow-up.

Kind regards,
Customer Service Team
`,
	KeyPositiveVery: `Dear {{SENDER_NAME}},

Thank you for your wonderful message regarding "{{SUBJECT}}"!

We are delighted to hear it. Feedback like yours makes our day.

Kind regards,
Customer Service Team
`,
	KeyPositive: `Dear {{SENDER_NAME}},

Thank you for your kind message regarding "{{SUBJECT}}".

We appreciate you taking the time to write to us.

Kind regards,
Customer Service Team
`,
	KeyFirstContact: `Dear {{SENDER_NAME}},

Welcome, and thank you for your first message to us regarding "{{SUBJECT}}".

We have received it and will get back to you shortly.

Kind regards,
Customer Service Team
`,
	KeyFrequentSender: `Dear {{SENDER_NAME}},

Thank you for your message regarding "{{SUBJECT}}".

We value your continued trust. This is message number {{EMAIL_COUNT}} from you; you last wrote to us on {{LAST_EMAIL_DATE}}. Your case will be handled with priority.

Kind regards,
Customer Service Team
`,
}
