// Package history derives per-sender decision inputs from previously stored
// messages. It is a pure view over data the caller already fetched; the
// summary is recomputed for every decision and never persisted.
package history

import (
	"time"

	"github.com/finofficer/autoreply/internal/mail"
)

// repeatedNegativeThreshold is how many prior negative messages mark a sender
// as having repeated negative sentiment.
const repeatedNegativeThreshold = 2

// StoredMessage is the minimal slice of a persisted message the summarizer
// needs.
type StoredMessage struct {
	ReceivedAt time.Time
	Sentiment  mail.Sentiment
}

// Summary condenses a sender's prior traffic into the signals the reply
// decision engine consumes.
type Summary struct {
	Sender string
	// TotalCount is the number of prior stored messages from this sender.
	TotalCount int
	// LastContact is the most recent prior message timestamp; nil means
	// first contact.
	LastContact *time.Time
	// RepeatedNegative is true when at least two prior messages carried
	// NEGATIVE or VERY_NEGATIVE sentiment.
	RepeatedNegative bool
}

// Summarize computes a Summary over rows. It performs no I/O.
func Summarize(sender string, rows []StoredMessage) Summary {
	summary := Summary{Sender: sender, TotalCount: len(rows)}

	negatives := 0
	for _, row := range rows {
		if summary.LastContact == nil || row.ReceivedAt.After(*summary.LastContact) {
			ts := row.ReceivedAt
			summary.LastContact = &ts
		}
		if row.Sentiment == mail.SentimentNegative || row.Sentiment == mail.SentimentVeryNegative {
			negatives++
		}
	}
	summary.RepeatedNegative = negatives >= repeatedNegativeThreshold

	return summary
}
