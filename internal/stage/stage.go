// Package stage holds the analysis stages that run before tone analysis:
// spam screening and attachment validation. Both are available in-process
// and as MCP tools so they can be deployed as separate services.
package stage

import (
	"context"

	"github.com/finofficer/autoreply/internal/mail"
)

// SpamVerdict is the outcome of spam screening for one message.
type SpamVerdict struct {
	IsSpam     bool     `json:"is_spam"`
	Score      float64  `json:"spam_score"`
	Indicators []string `json:"spam_indicators,omitempty"`
}

// SpamChecker screens a message for spam.
type SpamChecker interface {
	Check(ctx context.Context, msg mail.Message) (SpamVerdict, error)
}

// RejectedAttachment names one attachment that failed validation and why.
type RejectedAttachment struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// AttachmentVerdict partitions a message's attachments into those that pass
// validation and those that are dropped.
type AttachmentVerdict struct {
	Allowed  []mail.Attachment    `json:"allowed,omitempty"`
	Rejected []RejectedAttachment `json:"rejected,omitempty"`
}

// AttachmentValidator validates attachment metadata.
type AttachmentValidator interface {
	Validate(ctx context.Context, attachments []mail.Attachment) (AttachmentVerdict, error)
}
