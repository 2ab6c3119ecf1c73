// Package reply turns tone analysis and sender history into a template
// choice and renders the chosen template into a reply body.
package reply

import (
	"github.com/finofficer/autoreply/internal/history"
	"github.com/finofficer/autoreply/internal/mail"
)

// frequentSenderThreshold is the prior-message count at which a sender is
// considered frequent.
const frequentSenderThreshold = 3

// TemplateKey identifies one reply template in the catalog. The catalog is
// closed at deployment time; unknown keys resolve to KeyDefault at render.
type TemplateKey string

const (
	KeyDefault          TemplateKey = "default"
	KeyUrgentCritical   TemplateKey = "urgent_critical"
	KeyUrgentHigh       TemplateKey = "urgent_high"
	KeyNegativeVery     TemplateKey = "negative_very"
	KeyNegative         TemplateKey = "negative"
	KeyNegativeRepeated TemplateKey = "negative_repeated"
	KeyPositiveVery     TemplateKey = "positive_very"
	KeyPositive         TemplateKey = "positive"
	KeyFirstContact     TemplateKey = "first_contact"
	KeyFrequentSender   TemplateKey = "frequent_sender"
)

// Decision is the outcome of the rule evaluation: whether to reply at all,
// with which template, and the inputs that produced it.
type Decision struct {
	ShouldReply bool
	Template    TemplateKey
	Analysis    mail.ToneAnalysis
	History     history.Summary
}

// Rule pairs a predicate over (analysis, history) with the outcome it
// selects. Rules are evaluated top to bottom; the first match wins.
type Rule struct {
	Name        string
	Matches     func(a mail.ToneAnalysis, h history.Summary) bool
	Template    TemplateKey
	ShouldReply bool
}

// Rules is the ordered decision list. Urgency dominates sentiment, which
// dominates history signals; the catch-all at the bottom is the only rule
// that declines to reply. Kept as a literal sequence so the precedence
// contract stays auditable.
var Rules = []Rule{
	{
		Name: "urgency critical",
		Matches: func(a mail.ToneAnalysis, _ history.Summary) bool {
			return a.Urgency == mail.UrgencyCritical
		},
		Template:    KeyUrgentCritical,
		ShouldReply: true,
	},
	{
		Name: "urgency high",
		Matches: func(a mail.ToneAnalysis, _ history.Summary) bool {
			return a.Urgency == mail.UrgencyHigh
		},
		Template:    KeyUrgentHigh,
		ShouldReply: true,
	},
	{
		Name: "very negative, repeated",
		Matches: func(a mail.ToneAnalysis, h history.Summary) bool {
			return a.Sentiment == mail.SentimentVeryNegative && h.RepeatedNegative
		},
		Template:    KeyNegativeRepeated,
		ShouldReply: true,
	},
	{
		Name: "very negative",
		Matches: func(a mail.ToneAnalysis, _ history.Summary) bool {
			return a.Sentiment == mail.SentimentVeryNegative
		},
		Template:    KeyNegativeVery,
		ShouldReply: true,
	},
	{
		Name: "negative, repeated",
		Matches: func(a mail.ToneAnalysis, h history.Summary) bool {
			return a.Sentiment == mail.SentimentNegative && h.RepeatedNegative
		},
		Template:    KeyNegativeRepeated,
		ShouldReply: true,
	},
	{
		Name: "negative",
		Matches: func(a mail.ToneAnalysis, _ history.Summary) bool {
			return a.Sentiment == mail.SentimentNegative
		},
		Template:    KeyNegative,
		ShouldReply: true,
	},
	{
		Name: "first contact",
		Matches: func(_ mail.ToneAnalysis, h history.Summary) bool {
			return h.TotalCount == 0
		},
		Template:    KeyFirstContact,
		ShouldReply: true,
	},
	{
		Name: "frequent sender",
		Matches: func(_ mail.ToneAnalysis, h history.Summary) bool {
			return h.TotalCount >= frequentSenderThreshold
		},
		Template:    KeyFrequentSender,
		ShouldReply: true,
	},
	{
		Name: "very positive",
		Matches: func(a mail.ToneAnalysis, _ history.Summary) bool {
			return a.Sentiment == mail.SentimentVeryPositive
		},
		Template:    KeyPositiveVery,
		ShouldReply: true,
	},
	{
		Name: "positive",
		Matches: func(a mail.ToneAnalysis, _ history.Summary) bool {
			return a.Sentiment == mail.SentimentPositive
		},
		Template:    KeyPositive,
		ShouldReply: true,
	},
	{
		Name:        "unremarkable",
		Matches:     func(mail.ToneAnalysis, history.Summary) bool { return true },
		Template:    KeyDefault,
		ShouldReply: false,
	},
}

// Decide evaluates the rule list against the analysis and history. It is a
// pure, total function: every input combination reaches the catch-all rule
// at the latest.
func Decide(analysis mail.ToneAnalysis, hist history.Summary) Decision {
	for _, r := range Rules {
		if r.Matches(analysis, hist) {
			return Decision{
				ShouldReply: r.ShouldReply,
				Template:    r.Template,
				Analysis:    analysis,
				History:     hist,
			}
		}
	}
	// Unreachable: the last rule always matches.
	return Decision{Template: KeyDefault, Analysis: analysis, History: hist}
}
