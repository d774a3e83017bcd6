package messaging

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"tracehub-api/pkg/logger"
)

func setupStream(t *testing.T, retryLimit int) (*Producer, *Consumer, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	consumer := NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamCommitJobs,
		Group:        CommitWorkerGroup("test-"),
		ConsumerName: "worker-1",
		BlockTimeout: 10 * time.Millisecond,
		RetryLimit:   retryLimit,
		Backoff: BackoffConfig{
			Initial:    time.Millisecond,
			Max:        5 * time.Millisecond,
			Multiplier: 2,
		},
	})
	if err := consumer.ensureGroup(context.Background()); err != nil {
		t.Fatalf("ensureGroup failed: %v", err)
	}
	return NewProducer(rdb, 0), consumer, rdb
}

func publish(t *testing.T, ctx context.Context, p *Producer) {
	t.Helper()
	_, err := p.PublishCommitJob(ctx, &CommitJobMessage{
		JobID:            "job-1",
		ProjectID:        "project-1",
		ProjectVersionID: "version-1",
		JobType:          "commit",
	})
	if err != nil {
		t.Fatalf("PublishCommitJob failed: %v", err)
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := cfg.CalculateBackoff(tt.retry); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestCommitJobRoundTrip(t *testing.T) {
	producer, consumer, _ := setupStream(t, 3)
	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-1")

	var got *Message
	var job CommitJobMessage
	consumer.RegisterHandler(MessageTypeCommitJob, func(ctx context.Context, msg *Message) error {
		got = msg
		return msg.UnmarshalPayload(&job)
	})

	publish(t, ctx, producer)
	if err := consumer.poll(context.Background(), false); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if got == nil {
		t.Fatal("expected handler to be called")
	}
	if job.JobID != "job-1" || job.ProjectVersionID != "version-1" {
		t.Errorf("unexpected payload %+v", job)
	}
	if got.GetMetadata(MetaRequestID) != "req-1" {
		t.Errorf("expected request id metadata, got %q", got.GetMetadata(MetaRequestID))
	}
}

func TestFailedMessageIsRetried(t *testing.T) {
	producer, consumer, rdb := setupStream(t, 3)
	ctx := context.Background()

	calls := 0
	consumer.RegisterHandler(MessageTypeCommitJob, func(context.Context, *Message) error {
		calls++
		if calls == 1 {
			return stderrors.New("transient")
		}
		return nil
	})

	publish(t, ctx, producer)
	if err := consumer.poll(ctx, false); err != nil {
		t.Fatalf("first poll failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}

	time.Sleep(20 * time.Millisecond)
	if err := consumer.poll(ctx, false); err != nil {
		t.Fatalf("second poll failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected retry, got %d calls", calls)
	}

	pending, err := rdb.XPending(ctx, string(StreamCommitJobs), string(CommitWorkerGroup("test-"))).Result()
	if err != nil {
		t.Fatalf("XPending failed: %v", err)
	}
	if pending.Count != 0 {
		t.Errorf("expected message to be acked, %d pending", pending.Count)
	}
}

func TestExhaustedMessageGoesToDLQ(t *testing.T) {
	producer, consumer, rdb := setupStream(t, 1)
	ctx := context.Background()

	consumer.RegisterHandler(MessageTypeCommitJob, func(context.Context, *Message) error {
		return stderrors.New("permanent")
	})

	publish(t, ctx, producer)
	if err := consumer.poll(ctx, false); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	n, err := rdb.XLen(ctx, StreamCommitJobs.DLQStream()).Result()
	if err != nil {
		t.Fatalf("XLen failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 DLQ entry, got %d", n)
	}
}

func TestUnknownMessageTypeIsAcked(t *testing.T) {
	producer, consumer, rdb := setupStream(t, 3)
	ctx := context.Background()

	msg, err := NewMessage("m-1", "unknown", "project-1", map[string]string{})
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}
	if _, err := producer.Publish(ctx, StreamCommitJobs, msg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := consumer.poll(ctx, false); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	pending, err := rdb.XPending(ctx, string(StreamCommitJobs), string(CommitWorkerGroup("test-"))).Result()
	if err != nil {
		t.Fatalf("XPending failed: %v", err)
	}
	if pending.Count != 0 {
		t.Errorf("expected unknown message to be acked, %d pending", pending.Count)
	}
}

func TestConsumerStartAndStop(t *testing.T) {
	producer, consumer, _ := setupStream(t, 3)
	ctx := context.Background()

	handled := make(chan string, 1)
	consumer.RegisterHandler(MessageTypeCommitJob, func(_ context.Context, msg *Message) error {
		handled <- msg.ID
		return nil
	})

	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := consumer.Start(ctx); err == nil {
		t.Error("expected second Start to fail")
	}

	publish(t, ctx, producer)

	select {
	case id := <-handled:
		if id != "job-1" {
			t.Errorf("unexpected message id %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	consumer.Stop()
	select {
	case <-consumer.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestCheckDLQReportsLength(t *testing.T) {
	producer, consumer, _ := setupStream(t, 1)
	ctx := context.Background()

	if n := consumer.checkDLQ(ctx, 0); n != 0 {
		t.Fatalf("empty DLQ length = %d", n)
	}

	consumer.RegisterHandler(MessageTypeCommitJob, func(context.Context, *Message) error {
		return stderrors.New("permanent")
	})
	publish(t, ctx, producer)
	if err := consumer.poll(ctx, false); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if n := consumer.checkDLQ(ctx, 0); n != 1 {
		t.Errorf("DLQ length = %d, want 1", n)
	}
}

func TestPublishWritesLookupFields(t *testing.T) {
	producer, _, rdb := setupStream(t, 3)
	ctx := context.Background()
	publish(t, ctx, producer)

	entries, err := rdb.XRange(ctx, string(StreamCommitJobs), "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Values["type"] != MessageTypeCommitJob || entries[0].Values["project_id"] != "project-1" {
		t.Errorf("entry values = %v", entries[0].Values)
	}
}
