package stage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/finofficer/autoreply/internal/mail"
)

// SpamRules configures the rule-based spam checker.
type SpamRules struct {
	Keywords       []string
	SuspiciousTLDs []string
	// Whitelist entries are matched as substrings of the sender address,
	// so both full addresses and bare domains work.
	Whitelist []string
	MaxLinks  int
	Threshold float64
}

// DefaultSpamRules returns the stock rule set.
func DefaultSpamRules() SpamRules {
	return SpamRules{
		Keywords: []string{
			"viagra", "lottery", "winner", "million dollars", "nigerian prince",
			"inheritance", "bank transfer", "urgent attention", "confidential business",
			"investment opportunity", "cryptocurrency offer", "extend warranty",
		},
		SuspiciousTLDs: []string{".xyz", ".top", ".loan", ".work", ".click", ".link"},
		Whitelist:      []string{"finofficer.com"},
		MaxLinks:       5,
		Threshold:      0.7,
	}
}

var linkPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// RuleSpamChecker scores messages against a static rule set: keyword hits,
// sender TLD, capitalization, exclamation marks, link count and attachment
// presence. The score is capped at 1.0 and compared against the threshold.
type RuleSpamChecker struct {
	rules SpamRules
}

// NewRuleSpamChecker creates a checker over the given rules.
func NewRuleSpamChecker(rules SpamRules) *RuleSpamChecker {
	if rules.Threshold <= 0 {
		rules.Threshold = DefaultSpamRules().Threshold
	}
	if rules.MaxLinks <= 0 {
		rules.MaxLinks = DefaultSpamRules().MaxLinks
	}
	return &RuleSpamChecker{rules: rules}
}

// Check never returns an error; the rule evaluation is local and total.
func (c *RuleSpamChecker) Check(_ context.Context, msg mail.Message) (SpamVerdict, error) {
	sender := strings.ToLower(msg.From)
	for _, trusted := range c.rules.Whitelist {
		if trusted != "" && strings.Contains(sender, strings.ToLower(trusted)) {
			return SpamVerdict{Indicators: []string{fmt.Sprintf("trusted sender: %s", trusted)}}, nil
		}
	}

	var (
		score      float64
		indicators []string
	)
	subject := strings.ToLower(msg.Subject)
	content := strings.ToLower(msg.Content)

	for _, kw := range c.rules.Keywords {
		k := strings.ToLower(kw)
		if strings.Contains(subject, k) || strings.Contains(content, k) {
			indicators = append(indicators, fmt.Sprintf("spam keyword: %s", kw))
			score += 0.1
		}
	}

	for _, tld := range c.rules.SuspiciousTLDs {
		if strings.Contains(sender, tld) {
			indicators = append(indicators, fmt.Sprintf("suspicious sender TLD: %s", tld))
			score += 0.2
		}
	}

	if capsRatio(msg.Subject) > 0.5 {
		indicators = append(indicators, "excessive capitalization in subject")
		score += 0.1
	}

	if strings.Count(msg.Subject, "!") > 2 || strings.Count(msg.Content, "!") > 5 {
		indicators = append(indicators, "multiple exclamation marks")
		score += 0.1
	}

	if links := len(linkPattern.FindAllString(msg.Content, -1)); links > c.rules.MaxLinks {
		indicators = append(indicators, fmt.Sprintf("excessive links: %d", links))
		score += 0.2
	}

	if len(msg.Attachments) > 0 {
		indicators = append(indicators, "contains attachments")
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return SpamVerdict{
		IsSpam:     score >= c.rules.Threshold,
		Score:      score,
		Indicators: indicators,
	}, nil
}

func capsRatio(s string) float64 {
	if s == "" {
		return 0
	}
	upper := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(len([]rune(s)))
}
