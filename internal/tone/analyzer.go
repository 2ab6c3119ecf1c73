package tone

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/finofficer/autoreply/internal/mail"
	"github.com/finofficer/autoreply/pkg/logging"
)

const (
	defaultSummaryMaxLen = 200
	defaultCallTimeout   = 20 * time.Second
)

const analysisSystemPrompt = `You are an email tone classifier for a customer service platform. Analyze the email and return a JSON object with classification fields. Be precise and conservative.`

// Analyzer turns raw message content into a ToneAnalysis by prompting the
// language-model backend. Any backend failure, timeout or malformed response
// degrades to a neutral default analysis; Analyze never fails the pipeline.
type Analyzer struct {
	llm           LLMClient
	timeout       time.Duration
	summaryMaxLen int
	logger        *logging.Logger
}

// AnalyzerOption customizes analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithTimeout sets the per-call deadline applied to backend requests.
func WithTimeout(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithSummaryMaxLen caps the fallback summary taken from the original
// message when the backend provides none.
func WithSummaryMaxLen(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.summaryMaxLen = n
		}
	}
}

// NewAnalyzer creates an Analyzer backed by the given LLM client.
func NewAnalyzer(llm LLMClient, logger *logging.Logger, opts ...AnalyzerOption) *Analyzer {
	if logger == nil {
		logger = logging.Default()
	}
	a := &Analyzer{
		llm:           llm,
		timeout:       defaultCallTimeout,
		summaryMaxLen: defaultSummaryMaxLen,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze classifies the tone of content. It always returns a usable
// analysis: backend errors and unparseable responses yield the neutral
// default rather than an error.
func (a *Analyzer) Analyze(ctx context.Context, content string) mail.ToneAnalysis {
	if strings.TrimSpace(content) == "" {
		return a.defaultAnalysis(content)
	}
	if a.llm == nil {
		return a.defaultAnalysis(content)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.llm.Complete(callCtx, LLMRequest{
		System:      analysisSystemPrompt,
		Prompt:      analysisPrompt(content),
		MaxTokens:   1024,
		Temperature: 0,
	})
	if err != nil {
		a.logger.Warn("tone analysis backend failed, using default analysis", "error", err)
		return a.defaultAnalysis(content)
	}

	analysis, ok := a.parseAnalysis(resp.Text, content)
	if !ok {
		a.logger.Warn("tone analysis response unparseable, using default analysis")
		return a.defaultAnalysis(content)
	}
	return analysis
}

func analysisPrompt(content string) string {
	return fmt.Sprintf(`Analyze this email and return ONLY a JSON object with these fields:

{
  "sentiment": "VERY_NEGATIVE|NEGATIVE|NEUTRAL|POSITIVE|VERY_POSITIVE",
  "emotions": {"ANGER|FEAR|HAPPINESS|SADNESS|SURPRISE|DISGUST|NEUTRAL": 0.0-1.0},
  "urgency": "LOW|NORMAL|HIGH|CRITICAL",
  "formality": "VERY_INFORMAL|INFORMAL|NEUTRAL|FORMAL|VERY_FORMAL",
  "topTopics": ["keyword", ...],
  "summaryText": "one or two sentence summary"
}

Rules:
- sentiment: overall tone of the sender
- emotions: weights between 0 and 1, only for emotions actually present
- urgency: CRITICAL only for explicit deadlines or service outages
- topTopics: at most five keywords

Email:
%s`, content)
}

// rawAnalysis mirrors the JSON shape the backend is asked to produce.
// Everything is loosely typed; validation happens after decoding.
type rawAnalysis struct {
	Sentiment   string             `json:"sentiment"`
	Emotions    map[string]float64 `json:"emotions"`
	Urgency     string             `json:"urgency"`
	Formality   string             `json:"formality"`
	TopTopics   []string           `json:"topTopics"`
	SummaryText string             `json:"summaryText"`
}

func (a *Analyzer) parseAnalysis(text, original string) (mail.ToneAnalysis, bool) {
	// Find JSON in the response; models often wrap it in markdown fences
	// or prose.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return mail.ToneAnalysis{}, false
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return mail.ToneAnalysis{}, false
	}

	emotions := make(map[mail.Emotion]float64)
	for name, weight := range raw.Emotions {
		if !mail.KnownEmotion(name) {
			continue
		}
		emotions[mail.Emotion(name)] = clamp01(weight)
	}
	if len(emotions) == 0 {
		emotions[mail.EmotionNeutral] = 1.0
	}

	summary := strings.TrimSpace(raw.SummaryText)
	if summary == "" {
		summary = truncate(original, a.summaryMaxLen)
	}

	topics := raw.TopTopics
	if topics == nil {
		topics = []string{}
	}

	return mail.ToneAnalysis{
		Sentiment:   mail.ParseSentiment(raw.Sentiment, mail.SentimentNeutral),
		Emotions:    emotions,
		Urgency:     mail.ParseUrgency(raw.Urgency, mail.UrgencyNormal),
		Formality:   mail.ParseFormality(raw.Formality, mail.FormalityNeutral),
		TopTopics:   topics,
		SummaryText: summary,
	}, true
}

// defaultAnalysis is the degrade-gracefully result: treat the message as
// ordinary traffic and carry a snippet of the original as the summary.
func (a *Analyzer) defaultAnalysis(content string) mail.ToneAnalysis {
	return mail.ToneAnalysis{
		Sentiment:   mail.SentimentNeutral,
		Emotions:    map[mail.Emotion]float64{mail.EmotionNeutral: 1.0},
		Urgency:     mail.UrgencyNormal,
		Formality:   mail.FormalityNeutral,
		TopTopics:   []string{},
		SummaryText: truncate(content, a.summaryMaxLen),
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
