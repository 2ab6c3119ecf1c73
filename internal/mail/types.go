package mail

import (
	"time"

	"github.com/google/uuid"
)

// Sentiment classifies the overall tone of a message, from hostile to
// enthusiastic.
type Sentiment string

const (
	SentimentVeryNegative Sentiment = "VERY_NEGATIVE"
	SentimentNegative     Sentiment = "NEGATIVE"
	SentimentNeutral      Sentiment = "NEUTRAL"
	SentimentPositive     Sentiment = "POSITIVE"
	SentimentVeryPositive Sentiment = "VERY_POSITIVE"
)

// Urgency classifies how quickly a message needs attention.
type Urgency string

const (
	UrgencyLow      Urgency = "LOW"
	UrgencyNormal   Urgency = "NORMAL"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyCritical Urgency = "CRITICAL"
)

// Formality classifies the register of a message.
type Formality string

const (
	FormalityVeryInformal Formality = "VERY_INFORMAL"
	FormalityInformal     Formality = "INFORMAL"
	FormalityNeutral      Formality = "NEUTRAL"
	FormalityFormal       Formality = "FORMAL"
	FormalityVeryFormal   Formality = "VERY_FORMAL"
)

// Emotion names a detectable emotion in the emotion-weight map of a
// ToneAnalysis.
type Emotion string

const (
	EmotionAnger     Emotion = "ANGER"
	EmotionFear      Emotion = "FEAR"
	EmotionHappiness Emotion = "HAPPINESS"
	EmotionSadness   Emotion = "SADNESS"
	EmotionSurprise  Emotion = "SURPRISE"
	EmotionDisgust   Emotion = "DISGUST"
	EmotionNeutral   Emotion = "NEUTRAL"
)

// Status is the terminal processing status persisted with a message.
type Status string

const (
	StatusReceived   Status = "RECEIVED"
	StatusReplied    Status = "REPLIED"
	StatusRejected   Status = "REJECTED"
	StatusSuppressed Status = "SUPPRESSED"
)

// Message is an inbound email accepted for processing. Parsing and MIME
// decoding happen upstream; by the time a Message reaches the pipeline it is
// plain text plus attachment metadata.
type Message struct {
	ID          uuid.UUID    `json:"id"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Content     string       `json:"content"`
	ReceivedAt  time.Time    `json:"received_at"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// ProviderMessageID is the upstream Message-ID header, used for
	// inbound deduplication. Optional.
	ProviderMessageID string `json:"provider_message_id,omitempty"`
}

// Attachment is metadata about one attachment; contents stay upstream.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// ToneAnalysis is the structured classification of a message's text.
// Produced once per message and never mutated afterwards.
type ToneAnalysis struct {
	Sentiment   Sentiment           `json:"sentiment"`
	Emotions    map[Emotion]float64 `json:"emotions"`
	Urgency     Urgency             `json:"urgency"`
	Formality   Formality           `json:"formality"`
	TopTopics   []string            `json:"topTopics"`
	SummaryText string              `json:"summaryText"`
}

var sentiments = map[Sentiment]bool{
	SentimentVeryNegative: true,
	SentimentNegative:     true,
	SentimentNeutral:      true,
	SentimentPositive:     true,
	SentimentVeryPositive: true,
}

var urgencies = map[Urgency]bool{
	UrgencyLow:      true,
	UrgencyNormal:   true,
	UrgencyHigh:     true,
	UrgencyCritical: true,
}

var formalities = map[Formality]bool{
	FormalityVeryInformal: true,
	FormalityInformal:     true,
	FormalityNeutral:      true,
	FormalityFormal:       true,
	FormalityVeryFormal:   true,
}

var emotions = map[Emotion]bool{
	EmotionAnger:     true,
	EmotionFear:      true,
	EmotionHappiness: true,
	EmotionSadness:   true,
	EmotionSurprise:  true,
	EmotionDisgust:   true,
	EmotionNeutral:   true,
}

// ParseSentiment returns the sentiment named by s, or fallback when s is not
// a recognized value. Backend drift degrades to the fallback instead of
// erroring.
func ParseSentiment(s string, fallback Sentiment) Sentiment {
	if sentiments[Sentiment(s)] {
		return Sentiment(s)
	}
	return fallback
}

// ParseUrgency returns the urgency named by s, or fallback when unrecognized.
func ParseUrgency(s string, fallback Urgency) Urgency {
	if urgencies[Urgency(s)] {
		return Urgency(s)
	}
	return fallback
}

// ParseFormality returns the formality named by s, or fallback when
// unrecognized.
func ParseFormality(s string, fallback Formality) Formality {
	if formalities[Formality(s)] {
		return Formality(s)
	}
	return fallback
}

// KnownEmotion reports whether e names one of the supported emotions.
func KnownEmotion(e string) bool {
	return emotions[Emotion(e)]
}
