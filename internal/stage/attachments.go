package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/finofficer/autoreply/internal/mail"
)

// AttachmentFilters configures the size/type validator.
type AttachmentFilters struct {
	MaxSizeBytes      int64
	BlockedExtensions []string
	BlockedMIMETypes  []string
}

// DefaultAttachmentFilters returns the stock filter set.
func DefaultAttachmentFilters() AttachmentFilters {
	return AttachmentFilters{
		MaxSizeBytes: 10 << 20,
		BlockedExtensions: []string{
			".exe", ".bat", ".cmd", ".sh", ".js", ".jar", ".msi",
			".dll", ".scr", ".vbs", ".ps1",
		},
		BlockedMIMETypes: []string{
			"application/x-msdownload",
			"application/x-executable",
			"application/x-dosexec",
			"application/java-archive",
			"application/x-ms-installer",
		},
	}
}

// SizeTypeValidator rejects attachments by size, file extension and declared
// MIME type. It works on metadata only; contents never reach this service.
type SizeTypeValidator struct {
	filters AttachmentFilters
	blocked map[string]bool
}

// NewSizeTypeValidator creates a validator over the given filters.
func NewSizeTypeValidator(filters AttachmentFilters) *SizeTypeValidator {
	if filters.MaxSizeBytes <= 0 {
		filters.MaxSizeBytes = DefaultAttachmentFilters().MaxSizeBytes
	}
	blocked := make(map[string]bool, len(filters.BlockedExtensions))
	for _, ext := range filters.BlockedExtensions {
		blocked[strings.ToLower(ext)] = true
	}
	return &SizeTypeValidator{filters: filters, blocked: blocked}
}

// Validate never returns an error; every attachment lands in Allowed or
// Rejected.
func (v *SizeTypeValidator) Validate(_ context.Context, attachments []mail.Attachment) (AttachmentVerdict, error) {
	var verdict AttachmentVerdict
	for _, att := range attachments {
		if reason := v.reject(att); reason != "" {
			verdict.Rejected = append(verdict.Rejected, RejectedAttachment{
				Filename: att.Filename,
				Reason:   reason,
			})
			continue
		}
		verdict.Allowed = append(verdict.Allowed, att)
	}
	return verdict, nil
}

func (v *SizeTypeValidator) reject(att mail.Attachment) string {
	if att.SizeBytes > v.filters.MaxSizeBytes {
		return fmt.Sprintf("size %d exceeds maximum %d bytes", att.SizeBytes, v.filters.MaxSizeBytes)
	}
	if ext := strings.ToLower(filepath.Ext(att.Filename)); ext != "" && v.blocked[ext] {
		return fmt.Sprintf("extension %q is not allowed", ext)
	}
	ct := strings.ToLower(att.ContentType)
	for _, blocked := range v.filters.BlockedMIMETypes {
		if ct != "" && strings.Contains(ct, blocked) {
			return fmt.Sprintf("content type %q is not allowed", att.ContentType)
		}
	}
	return ""
}
