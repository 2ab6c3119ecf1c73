package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finofficer/autoreply/internal/mail"
)

func TestWorkerProcessesEnqueuedMessages(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}
	archiver := &mockArchiver{}

	engine := NewEngine(
		&mockAnalyzer{analysis: mail.ToneAnalysis{Sentiment: mail.SentimentNegative, Urgency: mail.UrgencyNormal}},
		store, &mockRenderer{}, sender, testLogger(),
		WithArchiver(archiver),
	)

	queue := NewMemoryQueue(8)
	publisher := NewPublisher(queue, testLogger())
	worker := NewWorker(engine, queue, testLogger(), WithWorkerCount(1), WithReceiveWaitSeconds(1))

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	require.NoError(t, publisher.Enqueue(ctx, inbound()))

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.appended) == 1
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	worker.Wait()

	require.Len(t, sender.sent, 1)
	require.Len(t, archiver.records, 1)
	assert.Equal(t, mail.StatusReplied, archiver.records[0].Status)
}

func TestWorkerDropsUndecodableMessages(t *testing.T) {
	engine := NewEngine(&mockAnalyzer{}, &mockStore{}, &mockRenderer{}, &mockSender{}, testLogger())
	queue := NewMemoryQueue(2)
	worker := NewWorker(engine, queue, testLogger(), WithWorkerCount(1), WithReceiveWaitSeconds(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, queue.Send(ctx, "{not json"))

	worker.Start(ctx)

	// The bad payload is deleted without reaching the engine; a
	// subsequent good message still processes.
	publisher := NewPublisher(queue, testLogger())
	require.NoError(t, publisher.Enqueue(ctx, inbound()))

	store := engine.store.(*mockStore)
	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.appended) == 1
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	worker.Wait()
}

func TestWorkerOptionsClampRanges(t *testing.T) {
	cfg := workerConfig{workers: defaultWorkerCount, receiveWaitSecs: defaultWaitSeconds, receiveBatchSize: defaultBatchSize}

	WithReceiveWaitSeconds(99)(&cfg)
	assert.Equal(t, maxWaitSeconds, cfg.receiveWaitSecs)

	WithReceiveBatchSize(99)(&cfg)
	assert.Equal(t, maxBatchSize, cfg.receiveBatchSize)

	WithWorkerCount(0)(&cfg)
	assert.Equal(t, defaultWorkerCount, cfg.workers)
}
