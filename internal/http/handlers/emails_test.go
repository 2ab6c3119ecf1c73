package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finofficer/autoreply/internal/mail"
	"github.com/finofficer/autoreply/internal/pipeline"
	"github.com/finofficer/autoreply/internal/reply"
	"github.com/finofficer/autoreply/pkg/logging"
)

type fakePublisher struct {
	err  error
	msgs []mail.Message
}

func (f *fakePublisher) Enqueue(_ context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeEngine struct {
	result pipeline.Result
	err    error
}

func (f *fakeEngine) Process(context.Context, mail.Message) (pipeline.Result, error) {
	return f.result, f.err
}

func testHandler(pub enqueuer, eng processor) *EmailHandler {
	return NewEmailHandler(pub, eng, logging.NewWithWriter("error", io.Discard))
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestEnqueueAccepted(t *testing.T) {
	pub := &fakePublisher{}
	h := testHandler(pub, nil)

	rec := postJSON(t, h.Enqueue, `{"from":"jan@example.com","subject":"Hi","content":"Hello"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "jan@example.com", pub.msgs[0].From)
	assert.NotEqual(t, uuid.Nil, pub.msgs[0].ID)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RECEIVED", resp["status"])
	assert.NotEmpty(t, resp["message_id"])
}

func TestEnqueueValidation(t *testing.T) {
	h := testHandler(&fakePublisher{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing from", `{"subject":"x","content":"y"}`},
		{"empty subject and content", `{"from":"a@b.com"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Enqueue, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestEnqueueQueueFailure(t *testing.T) {
	h := testHandler(&fakePublisher{err: errors.New("queue down")}, nil)

	rec := postJSON(t, h.Enqueue, `{"from":"a@b.com","content":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProcessSynchronous(t *testing.T) {
	id := uuid.New()
	eng := &fakeEngine{result: pipeline.Result{
		MessageID: id,
		Status:    mail.StatusReplied,
		Decision: reply.Decision{
			ShouldReply: true,
			Template:    reply.KeyUrgentCritical,
			Analysis:    mail.ToneAnalysis{Sentiment: mail.SentimentNeutral, Urgency: mail.UrgencyCritical},
		},
		Reply: &reply.Rendered{Template: reply.KeyUrgentCritical, Body: "Dear Jan..."},
	}}
	h := testHandler(nil, eng)

	rec := postJSON(t, h.Process, `{"from":"jan@example.com","subject":"HELP","content":"system down"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id.String(), resp.MessageID)
	assert.Equal(t, "REPLIED", resp.Status)
	assert.True(t, resp.ShouldReply)
	assert.Equal(t, "urgent_critical", resp.Template)
	assert.Equal(t, "CRITICAL", resp.Urgency)
	assert.Equal(t, "Dear Jan...", resp.ReplyBody)
}

func TestProcessFailure(t *testing.T) {
	h := testHandler(nil, &fakeEngine{err: errors.New("archive down")})

	rec := postJSON(t, h.Process, `{"from":"a@b.com","content":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	h := testHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
