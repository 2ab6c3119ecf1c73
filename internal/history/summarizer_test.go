package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finofficer/autoreply/internal/mail"
)

func TestSummarizeEmptyHistory(t *testing.T) {
	s := Summarize("new@example.com", nil)

	assert.Equal(t, "new@example.com", s.Sender)
	assert.Zero(t, s.TotalCount)
	assert.Nil(t, s.LastContact)
	assert.False(t, s.RepeatedNegative)
}

func TestSummarizeLastContactIsMaxTimestamp(t *testing.T) {
	oldest := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	newest := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	rows := []StoredMessage{
		{ReceivedAt: newest, Sentiment: mail.SentimentNeutral},
		{ReceivedAt: oldest, Sentiment: mail.SentimentPositive},
	}

	s := Summarize("a@example.com", rows)

	assert.Equal(t, 2, s.TotalCount)
	require.NotNil(t, s.LastContact)
	assert.True(t, s.LastContact.Equal(newest))
}

func TestSummarizeRepeatedNegative(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		sentiments []mail.Sentiment
		want       bool
	}{
		{"no negatives", []mail.Sentiment{mail.SentimentNeutral, mail.SentimentPositive}, false},
		{"single negative", []mail.Sentiment{mail.SentimentNegative, mail.SentimentNeutral}, false},
		{"two negatives", []mail.Sentiment{mail.SentimentNegative, mail.SentimentNegative}, true},
		{"negative plus very negative", []mail.Sentiment{mail.SentimentNegative, mail.SentimentVeryNegative, mail.SentimentPositive}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([]StoredMessage, len(tt.sentiments))
			for i, sent := range tt.sentiments {
				rows[i] = StoredMessage{ReceivedAt: base.Add(time.Duration(i) * time.Hour), Sentiment: sent}
			}
			assert.Equal(t, tt.want, Summarize("x@example.com", rows).RepeatedNegative)
		})
	}
}
