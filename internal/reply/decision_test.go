package reply

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/finofficer/autoreply/internal/history"
	"github.com/finofficer/autoreply/internal/mail"
)

func analysis(sentiment mail.Sentiment, urgency mail.Urgency) mail.ToneAnalysis {
	return mail.ToneAnalysis{
		Sentiment: sentiment,
		Urgency:   urgency,
		Formality: mail.FormalityNeutral,
	}
}

func hist(total int, repeatedNegative bool) history.Summary {
	var last *time.Time
	if total > 0 {
		t := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
		last = &t
	}
	return history.Summary{
		Sender:           "x@example.com",
		TotalCount:       total,
		LastContact:      last,
		RepeatedNegative: repeatedNegative,
	}
}

func TestDecideRulePriority(t *testing.T) {
	tests := []struct {
		name        string
		analysis    mail.ToneAnalysis
		history     history.Summary
		wantKey     TemplateKey
		wantShould  bool
	}{
		{
			// Urgency has absolute precedence over every sentiment and
			// history signal.
			name:       "critical beats very negative repeated",
			analysis:   analysis(mail.SentimentVeryNegative, mail.UrgencyCritical),
			history:    hist(5, true),
			wantKey:    KeyUrgentCritical,
			wantShould: true,
		},
		{
			name:       "critical beats first contact",
			analysis:   analysis(mail.SentimentNeutral, mail.UrgencyCritical),
			history:    hist(0, false),
			wantKey:    KeyUrgentCritical,
			wantShould: true,
		},
		{
			name:       "high urgency",
			analysis:   analysis(mail.SentimentPositive, mail.UrgencyHigh),
			history:    hist(1, false),
			wantKey:    KeyUrgentHigh,
			wantShould: true,
		},
		{
			name:       "very negative repeated",
			analysis:   analysis(mail.SentimentVeryNegative, mail.UrgencyNormal),
			history:    hist(4, true),
			wantKey:    KeyNegativeRepeated,
			wantShould: true,
		},
		{
			name:       "very negative first occurrence",
			analysis:   analysis(mail.SentimentVeryNegative, mail.UrgencyNormal),
			history:    hist(1, false),
			wantKey:    KeyNegativeVery,
			wantShould: true,
		},
		{
			name:       "negative repeated",
			analysis:   analysis(mail.SentimentNegative, mail.UrgencyLow),
			history:    hist(2, true),
			wantKey:    KeyNegativeRepeated,
			wantShould: true,
		},
		{
			name:       "negative beats frequent sender",
			analysis:   analysis(mail.SentimentNegative, mail.UrgencyNormal),
			history:    hist(7, false),
			wantKey:    KeyNegative,
			wantShould: true,
		},
		{
			name:       "first contact neutral",
			analysis:   analysis(mail.SentimentNeutral, mail.UrgencyNormal),
			history:    hist(0, false),
			wantKey:    KeyFirstContact,
			wantShould: true,
		},
		{
			name:       "frequent sender neutral",
			analysis:   analysis(mail.SentimentNeutral, mail.UrgencyNormal),
			history:    hist(3, false),
			wantKey:    KeyFrequentSender,
			wantShould: true,
		},
		{
			name:       "very positive",
			analysis:   analysis(mail.SentimentVeryPositive, mail.UrgencyLow),
			history:    hist(1, false),
			wantKey:    KeyPositiveVery,
			wantShould: true,
		},
		{
			name:       "positive",
			analysis:   analysis(mail.SentimentPositive, mail.UrgencyNormal),
			history:    hist(2, false),
			wantKey:    KeyPositive,
			wantShould: true,
		},
		{
			name:       "unremarkable traffic stays silent",
			analysis:   analysis(mail.SentimentNeutral, mail.UrgencyNormal),
			history:    hist(1, false),
			wantKey:    KeyDefault,
			wantShould: false,
		},
		{
			name:       "low urgency neutral two priors stays silent",
			analysis:   analysis(mail.SentimentNeutral, mail.UrgencyLow),
			history:    hist(2, false),
			wantKey:    KeyDefault,
			wantShould: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.analysis, tt.history)
			assert.Equal(t, tt.wantKey, d.Template)
			assert.Equal(t, tt.wantShould, d.ShouldReply)
			assert.Equal(t, tt.analysis, d.Analysis)
			assert.Equal(t, tt.history, d.History)
		})
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	a := analysis(mail.SentimentNegative, mail.UrgencyHigh)
	h := hist(4, true)

	first := Decide(a, h)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Decide(a, h))
	}
}

func TestRulesEndWithCatchAll(t *testing.T) {
	last := Rules[len(Rules)-1]
	assert.True(t, last.Matches(mail.ToneAnalysis{}, history.Summary{}))
	assert.Equal(t, KeyDefault, last.Template)
	assert.False(t, last.ShouldReply)
}
