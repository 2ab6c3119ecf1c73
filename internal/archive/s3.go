package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/finofficer/autoreply/pkg/logging"
)

// S3API is the subset of the S3 client used by S3Writer.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ManifestEntry is one JSONL line in the monthly manifest, a compact index
// over the per-message records.
type ManifestEntry struct {
	MessageID   string `json:"message_id"`
	S3Key       string `json:"s3_key"`
	Status      string `json:"status"`
	TemplateKey string `json:"template_key,omitempty"`
	ArchivedAt  string `json:"archived_at"`
}

// S3Writer archives records as JSON objects keyed by date, and keeps a
// monthly JSONL manifest alongside them.
type S3Writer struct {
	bucket string
	client S3API
	logger *logging.Logger
}

// NewS3Writer creates an S3-backed archive writer. If bucket is empty, all
// operations are no-ops.
func NewS3Writer(client S3API, bucket string, logger *logging.Logger) *S3Writer {
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Writer{bucket: bucket, client: client, logger: logger}
}

// Enabled returns true if archival is configured.
func (w *S3Writer) Enabled() bool {
	return w != nil && w.bucket != "" && w.client != nil
}

// Write stores the record under emails/v1/by-date/YYYY/MM/DD/<id>.json and
// appends a manifest line. A manifest failure is logged but does not fail
// the write; the record itself is already durable.
func (w *S3Writer) Write(ctx context.Context, record Record) error {
	if !w.Enabled() {
		return nil
	}

	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = time.Now().UTC()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}

	at := record.ArchivedAt
	key := fmt.Sprintf("emails/v1/by-date/%d/%02d/%02d/%s.json",
		at.Year(), at.Month(), at.Day(), record.MessageID)

	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}

	w.logger.Info("archived email to S3",
		"message_id", record.MessageID,
		"s3_key", key,
		"status", string(record.Status),
	)

	entry := ManifestEntry{
		MessageID:   record.MessageID.String(),
		S3Key:       key,
		Status:      string(record.Status),
		TemplateKey: record.TemplateKey,
		ArchivedAt:  at.Format(time.RFC3339),
	}
	if err := w.appendManifest(ctx, entry, at); err != nil {
		w.logger.Warn("failed to append manifest", "error", err, "message_id", record.MessageID)
	}
	return nil
}

// appendManifest appends a JSONL line to the monthly manifest. S3 has no
// append, so this is read-modify-write.
func (w *S3Writer) appendManifest(ctx context.Context, entry ManifestEntry, at time.Time) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	manifestKey := fmt.Sprintf("emails/v1/manifests/%d-%02d.jsonl", at.Year(), at.Month())

	var existing []byte
	getResp, err := w.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(manifestKey),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if !errors.As(err, &nsk) {
			w.logger.Debug("manifest not readable, starting fresh", "key", manifestKey, "error", err)
		}
	} else {
		existing, _ = io.ReadAll(getResp.Body)
		getResp.Body.Close()
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest %s: %w", manifestKey, err)
	}
	return nil
}
