package stage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finofficer/autoreply/internal/mail"
)

func TestRuleSpamCheckerCleanMessage(t *testing.T) {
	c := NewRuleSpamChecker(DefaultSpamRules())

	verdict, err := c.Check(context.Background(), mail.Message{
		From:    "jan@example.com",
		Subject: "Question about my invoice",
		Content: "Hello, could you resend invoice 2025-113? Thanks.",
	})
	require.NoError(t, err)
	assert.False(t, verdict.IsSpam)
	assert.Zero(t, verdict.Score)
	assert.Empty(t, verdict.Indicators)
}

func TestRuleSpamCheckerObviousSpam(t *testing.T) {
	c := NewRuleSpamChecker(DefaultSpamRules())

	verdict, err := c.Check(context.Background(), mail.Message{
		From:    "prince@win.xyz",
		Subject: "URGENT ATTENTION: LOTTERY WINNER!!!",
		Content: "You won million dollars in our lottery! Claim your inheritance now! " +
			strings.Repeat("visit http://claim.example.xyz/now ", 7),
		Attachments: []mail.Attachment{{Filename: "claim.pdf"}},
	})
	require.NoError(t, err)
	assert.True(t, verdict.IsSpam)
	assert.LessOrEqual(t, verdict.Score, 1.0)
	assert.NotEmpty(t, verdict.Indicators)
}

func TestRuleSpamCheckerWhitelistShortCircuits(t *testing.T) {
	rules := DefaultSpamRules()
	rules.Whitelist = []string{"trusted-partner.com"}
	c := NewRuleSpamChecker(rules)

	// Would otherwise score on keywords and capitalization.
	verdict, err := c.Check(context.Background(), mail.Message{
		From:    "sales@trusted-partner.com",
		Subject: "LOTTERY WINNER!!!",
		Content: "nigerian prince inheritance bank transfer",
	})
	require.NoError(t, err)
	assert.False(t, verdict.IsSpam)
	assert.Zero(t, verdict.Score)
}

func TestRuleSpamCheckerIndicators(t *testing.T) {
	c := NewRuleSpamChecker(DefaultSpamRules())

	tests := []struct {
		name string
		msg  mail.Message
		want string
	}{
		{
			name: "keyword",
			msg:  mail.Message{From: "a@b.com", Content: "a great investment opportunity"},
			want: "spam keyword",
		},
		{
			name: "suspicious tld",
			msg:  mail.Message{From: "x@offers.click", Subject: "hi"},
			want: "suspicious sender TLD",
		},
		{
			name: "caps subject",
			msg:  mail.Message{From: "a@b.com", Subject: "READ THIS NOW"},
			want: "capitalization",
		},
		{
			name: "exclamation marks",
			msg:  mail.Message{From: "a@b.com", Subject: "wow!!! really!!!"},
			want: "exclamation",
		},
		{
			name: "excessive links",
			msg:  mail.Message{From: "a@b.com", Content: strings.Repeat("see https://e.com/x ", 6)},
			want: "excessive links",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := c.Check(context.Background(), tt.msg)
			require.NoError(t, err)
			require.NotEmpty(t, verdict.Indicators)
			found := false
			for _, ind := range verdict.Indicators {
				if strings.Contains(ind, tt.want) {
					found = true
				}
			}
			assert.True(t, found, "indicators %v should mention %q", verdict.Indicators, tt.want)
		})
	}
}
