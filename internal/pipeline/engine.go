// Package pipeline orchestrates the processing of one inbound email: spam
// screening, attachment validation, tone analysis, history summarization,
// reply decision, rendering, delivery and archival. Stage failures before
// the decision degrade to documented defaults; only delivery, archival and
// configuration errors surface to the caller. Every accepted message
// reaches a terminal status.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/finofficer/autoreply/internal/archive"
	"github.com/finofficer/autoreply/internal/history"
	"github.com/finofficer/autoreply/internal/mail"
	"github.com/finofficer/autoreply/internal/notify"
	"github.com/finofficer/autoreply/internal/observability/metrics"
	"github.com/finofficer/autoreply/internal/reply"
	"github.com/finofficer/autoreply/internal/stage"
	"github.com/finofficer/autoreply/pkg/logging"
)

// toneAnalyzer classifies message text. Implementations never fail; backend
// trouble degrades to a neutral default analysis.
type toneAnalyzer interface {
	Analyze(ctx context.Context, content string) mail.ToneAnalysis
}

// messageStore persists messages and serves sender history.
type messageStore interface {
	Append(ctx context.Context, msg mail.Message) (uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status mail.Status, analysis *mail.ToneAnalysis) error
	History(ctx context.Context, sender string) ([]history.StoredMessage, error)
}

// templateRenderer renders a template key against contextual data.
type templateRenderer interface {
	Render(key reply.TemplateKey, ctx reply.Context) (reply.Rendered, error)
}

// dedupeStore tracks provider message IDs that already reached a terminal
// outcome. IDs are only marked after the outcome is recorded, so a failed
// delivery attempt never claims the ID and the redelivered message is
// processed again.
type dedupeStore interface {
	AlreadyProcessed(ctx context.Context, providerMessageID string) (bool, error)
	MarkProcessed(ctx context.Context, providerMessageID string) (bool, error)
}

// Result is the terminal outcome of processing one message.
type Result struct {
	MessageID uuid.UUID
	Status    mail.Status
	Decision  reply.Decision
	Reply     *reply.Rendered

	// Duplicate is set when the provider message ID was already processed;
	// no other field is meaningful then.
	Duplicate bool
}

// Engine runs the message pipeline. Messages from the same sender are
// processed serially so history reads and the appends they precede do not
// interleave; different senders proceed in parallel.
type Engine struct {
	analyzer  toneAnalyzer
	store     messageStore
	templates templateRenderer
	sender    notify.EmailSender

	spam        stage.SpamChecker
	attachments stage.AttachmentValidator
	dedupe      dedupeStore
	archiver    archive.Writer
	metrics     *metrics.PipelineMetrics
	logger      *logging.Logger
	tracer      trace.Tracer

	sendTimeout time.Duration

	mu          sync.Mutex
	senderLocks map[string]*senderLock
}

// senderLock serializes processing per sender; refs counts waiters so the
// entry can be dropped once nobody holds or wants it.
type senderLock struct {
	mu   sync.Mutex
	refs int
}

// EngineOption customizes engine behavior.
type EngineOption func(*Engine)

// WithSpamChecker wires a spam screening stage. Without one, no message is
// rejected as spam.
func WithSpamChecker(c stage.SpamChecker) EngineOption {
	return func(e *Engine) { e.spam = c }
}

// WithAttachmentValidator wires an attachment validation stage.
func WithAttachmentValidator(v stage.AttachmentValidator) EngineOption {
	return func(e *Engine) { e.attachments = v }
}

// WithDedupe wires inbound deduplication by provider message ID.
func WithDedupe(d dedupeStore) EngineOption {
	return func(e *Engine) { e.dedupe = d }
}

// WithArchiver wires an archival writer for terminal records.
func WithArchiver(w archive.Writer) EngineOption {
	return func(e *Engine) { e.archiver = w }
}

// WithMetrics wires pipeline metrics.
func WithMetrics(m *metrics.PipelineMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithSendTimeout bounds each mail-provider call. Zero or negative values
// keep the default.
func WithSendTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.sendTimeout = d
		}
	}
}

// NewEngine constructs the pipeline engine.
func NewEngine(analyzer toneAnalyzer, store messageStore, templates templateRenderer, sender notify.EmailSender, logger *logging.Logger, opts ...EngineOption) *Engine {
	if analyzer == nil {
		panic("pipeline: analyzer cannot be nil")
	}
	if store == nil {
		panic("pipeline: store cannot be nil")
	}
	if templates == nil {
		panic("pipeline: template renderer cannot be nil")
	}
	if sender == nil {
		panic("pipeline: email sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	e := &Engine{
		analyzer:    analyzer,
		store:       store,
		templates:   templates,
		sender:      sender,
		archiver:    archive.Nop{},
		logger:      logger,
		tracer:      otel.Tracer("autoreply.internal.pipeline"),
		sendTimeout: defaultSendTimeout,
		senderLocks: make(map[string]*senderLock),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.archiver == nil {
		e.archiver = archive.Nop{}
	}
	return e
}

// Process runs the full pipeline for one message. The returned error is
// non-nil only for delivery, archival, storage and configuration failures;
// upstream stage trouble degrades to defaults and is absorbed here.
func (e *Engine) Process(ctx context.Context, msg mail.Message) (Result, error) {
	started := time.Now()

	ctx, span := e.tracer.Start(ctx, "pipeline.process")
	defer span.End()

	if e.isDuplicate(ctx, msg) {
		e.logger.Info("duplicate message skipped", "provider_message_id", msg.ProviderMessageID, "from", msg.From)
		return Result{Duplicate: true}, nil
	}

	unlock := e.lockSender(msg.From)
	defer unlock()

	log := e.logger.With("from", msg.From, "subject", msg.Subject)

	// Spam screening. Unreachable or failing checkers degrade to "not
	// spam" so one sidecar outage does not stall the pipeline.
	if e.spam != nil {
		verdict, err := e.spam.Check(ctx, msg)
		switch {
		case err != nil:
			log.Warn("spam check failed, continuing", "error", err)
			e.metrics.ObserveStageFailure("spam_check")
		case verdict.IsSpam:
			log.Info("message rejected as spam", "score", verdict.Score, "indicators", verdict.Indicators)
			return e.finishRejected(ctx, msg, started)
		}
	}

	// Attachment validation. Failure keeps the original attachment list.
	if e.attachments != nil && len(msg.Attachments) > 0 {
		verdict, err := e.attachments.Validate(ctx, msg.Attachments)
		if err != nil {
			log.Warn("attachment validation failed, continuing", "error", err)
			e.metrics.ObserveStageFailure("attachment_validation")
		} else {
			for _, rej := range verdict.Rejected {
				log.Info("attachment dropped", "filename", rej.Filename, "reason", rej.Reason)
			}
			msg.Attachments = verdict.Allowed
		}
	}

	analysis := e.analyzer.Analyze(ctx, msg.Content)

	// History is read before the current message is appended so the
	// summary covers prior traffic only. A failed lookup summarizes an
	// empty history, which biases toward the friendlier first-contact
	// handling rather than dropping the message.
	rows, err := e.store.History(ctx, msg.From)
	if err != nil {
		log.Warn("history lookup failed, using empty history", "error", err)
		e.metrics.ObserveStageFailure("history")
		rows = nil
	}
	summary := history.Summarize(msg.From, rows)

	id, err := e.store.Append(ctx, msg)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: persist message: %w", err)
	}
	msg.ID = id

	decision := reply.Decide(analysis, summary)
	log.Info("reply decided",
		"message_id", id,
		"template", string(decision.Template),
		"should_reply", decision.ShouldReply,
		"sentiment", string(analysis.Sentiment),
		"urgency", string(analysis.Urgency),
	)

	if !decision.ShouldReply {
		return e.finish(ctx, msg, mail.StatusSuppressed, decision, nil, started)
	}

	rendered, err := e.render(decision, msg, summary)
	if err != nil {
		// Missing default template: fatal configuration error.
		return Result{}, err
	}
	e.metrics.ObserveReply(string(rendered.Template))

	// Mail-provider calls carry their own deadline so a hung transport
	// cannot pin a worker goroutine and the sender's lock.
	sendCtx, cancelSend := context.WithTimeout(ctx, e.sendTimeout)
	sendErr := e.sender.Send(sendCtx, notify.EmailMessage{
		To:      msg.From,
		ToName:  reply.SenderName(msg.From),
		Subject: replySubject(msg.Subject),
		Body:    rendered.Body,
	})
	cancelSend()
	if sendErr != nil {
		// The decision and rendered reply stay archived so an external
		// retry can resend without recomputing anything.
		log.Error("reply delivery failed", "error", sendErr, "message_id", id)
		res, archErr := e.finish(ctx, msg, mail.StatusReceived, decision, &rendered, started)
		if archErr != nil {
			return res, archErr
		}
		return res, fmt.Errorf("pipeline: send reply: %w", sendErr)
	}

	return e.finish(ctx, msg, mail.StatusReplied, decision, &rendered, started)
}

func (e *Engine) isDuplicate(ctx context.Context, msg mail.Message) bool {
	if e.dedupe == nil || msg.ProviderMessageID == "" {
		return false
	}
	seen, err := e.dedupe.AlreadyProcessed(ctx, msg.ProviderMessageID)
	if err != nil {
		e.logger.Warn("dedupe check failed, processing anyway", "error", err)
		e.metrics.ObserveStageFailure("dedupe")
		return false
	}
	return seen
}

// markProcessed claims the provider message ID once a terminal outcome is
// recorded. Failed delivery attempts never reach this, so the queue's
// redelivery retries them.
func (e *Engine) markProcessed(ctx context.Context, msg mail.Message) {
	if e.dedupe == nil || msg.ProviderMessageID == "" {
		return
	}
	if _, err := e.dedupe.MarkProcessed(ctx, msg.ProviderMessageID); err != nil {
		e.logger.Warn("dedupe mark failed", "error", err, "provider_message_id", msg.ProviderMessageID)
		e.metrics.ObserveStageFailure("dedupe")
	}
}

// finishRejected persists and archives a spam rejection.
func (e *Engine) finishRejected(ctx context.Context, msg mail.Message, started time.Time) (Result, error) {
	id, err := e.store.Append(ctx, msg)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: persist rejected message: %w", err)
	}
	msg.ID = id
	return e.finish(ctx, msg, mail.StatusRejected, reply.Decision{}, nil, started)
}

// finish records the terminal status, archives the message, and emits
// metrics. Archival failures surface; status-update failures are logged
// because the archive record already carries the outcome.
func (e *Engine) finish(ctx context.Context, msg mail.Message, status mail.Status, decision reply.Decision, rendered *reply.Rendered, started time.Time) (Result, error) {
	var analysis *mail.ToneAnalysis
	if status != mail.StatusRejected {
		a := decision.Analysis
		analysis = &a
	}
	if status != mail.StatusReceived {
		if err := e.store.UpdateStatus(ctx, msg.ID, status, analysis); err != nil {
			e.logger.Warn("status update failed", "error", err, "message_id", msg.ID, "status", string(status))
		}
	}

	record := archive.Record{
		MessageID:  msg.ID,
		From:       msg.From,
		To:         msg.To,
		Subject:    msg.Subject,
		ReceivedAt: msg.ReceivedAt,
		Status:     status,
	}
	if analysis != nil {
		record.Sentiment = string(analysis.Sentiment)
		record.Urgency = string(analysis.Urgency)
	}
	if rendered != nil {
		record.TemplateKey = string(rendered.Template)
		record.ReplyBody = rendered.Body
	}

	result := Result{
		MessageID: msg.ID,
		Status:    status,
		Decision:  decision,
		Reply:     rendered,
	}
	if err := e.archiver.Write(ctx, record); err != nil {
		return result, fmt.Errorf("pipeline: archive message: %w", err)
	}

	if status != mail.StatusReceived {
		e.markProcessed(ctx, msg)
	}

	e.metrics.ObserveProcessed(string(status))
	e.metrics.ObserveLatency(time.Since(started).Seconds())
	return result, nil
}

func (e *Engine) render(decision reply.Decision, msg mail.Message, summary history.Summary) (reply.Rendered, error) {
	ctx := reply.Context{
		SenderName: reply.SenderName(msg.From),
		Subject:    msg.Subject,
		Sentiment:  string(decision.Analysis.Sentiment),
		Urgency:    string(decision.Analysis.Urgency),
		Summary:    decision.Analysis.SummaryText,
		EmailCount: summary.TotalCount,
	}
	if summary.LastContact != nil {
		ctx.LastEmailDate = summary.LastContact.Format("02.01.2006")
	}
	return e.templates.Render(decision.Template, ctx)
}

func (e *Engine) lockSender(sender string) func() {
	e.mu.Lock()
	lock, ok := e.senderLocks[sender]
	if !ok {
		lock = &senderLock{}
		e.senderLocks[sender] = lock
	}
	lock.refs++
	e.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		e.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(e.senderLocks, sender)
		}
		e.mu.Unlock()
	}
}

func replySubject(subject string) string {
	if subject == "" {
		return "Re: your message"
	}
	return "Re: " + subject
}
