package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finofficer/autoreply/internal/mail"
	"github.com/finofficer/autoreply/pkg/logging"
)

// mockS3Client records PutObject/GetObject calls for testing.
type mockS3Client struct {
	putCalls []putCall
	objects  map[string][]byte
}

type putCall struct {
	bucket string
	key    string
	body   []byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(input.Body)
	m.putCalls = append(m.putCalls, putCall{
		bucket: *input.Bucket,
		key:    *input.Key,
		body:   body,
	})
	m.objects[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &notFoundError{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "NoSuchKey: key not found" }

func testRecord(at time.Time) Record {
	return Record{
		MessageID:   uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		From:        "jan@example.com",
		To:          "support@finofficer.com",
		Subject:     "Invoice question",
		ReceivedAt:  at.Add(-time.Minute),
		Status:      mail.StatusReplied,
		TemplateKey: "negative",
		ReplyBody:   "Dear Jan...",
		ArchivedAt:  at,
	}
}

func TestS3WriterWrite(t *testing.T) {
	mock := newMockS3()
	w := NewS3Writer(mock, "test-bucket", logging.NewWithWriter("error", io.Discard))

	at := time.Date(2025, 7, 2, 15, 0, 0, 0, time.UTC)
	require.NoError(t, w.Write(context.Background(), testRecord(at)))

	// One put for the record, one for the manifest.
	require.Len(t, mock.putCalls, 2)
	assert.Equal(t, "test-bucket", mock.putCalls[0].bucket)
	assert.Equal(t, "emails/v1/by-date/2025/07/02/6ba7b810-9dad-11d1-80b4-00c04fd430c8.json", mock.putCalls[0].key)

	var decoded Record
	require.NoError(t, json.Unmarshal(mock.putCalls[0].body, &decoded))
	assert.Equal(t, mail.StatusReplied, decoded.Status)
	assert.Equal(t, "negative", decoded.TemplateKey)

	assert.Equal(t, "emails/v1/manifests/2025-07.jsonl", mock.putCalls[1].key)
}

func TestS3WriterManifestAccumulates(t *testing.T) {
	mock := newMockS3()
	w := NewS3Writer(mock, "test-bucket", logging.NewWithWriter("error", io.Discard))

	at := time.Date(2025, 7, 2, 15, 0, 0, 0, time.UTC)
	first := testRecord(at)
	second := testRecord(at.Add(time.Hour))
	second.MessageID = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

	require.NoError(t, w.Write(context.Background(), first))
	require.NoError(t, w.Write(context.Background(), second))

	manifest := string(mock.objects["emails/v1/manifests/2025-07.jsonl"])
	lines := strings.Split(strings.TrimSpace(manifest), "\n")
	require.Len(t, lines, 2)

	var entry ManifestEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, second.MessageID.String(), entry.MessageID)
	assert.Equal(t, "REPLIED", entry.Status)
}

func TestS3WriterDisabledIsNoop(t *testing.T) {
	w := NewS3Writer(nil, "", nil)
	assert.False(t, w.Enabled())
	assert.NoError(t, w.Write(context.Background(), testRecord(time.Now())))
}
