package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messaging")

// DefaultMaxLen 流的近似长度上限
const DefaultMaxLen int64 = 100000

// Producer 向提交任务流追加消息
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer maxLen <= 0 时使用 DefaultMaxLen
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Producer{client: client, maxLen: maxLen}
}

// Publish 追加到 stream 并返回流内消息 ID
// 除 data 外同时写入 type 与 project_id 字段，便于用 XRANGE 排查
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	msg.Stamp(ctx)
	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"data":       string(data),
			"type":       msg.Type,
			"project_id": msg.ProjectID,
		},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish %s to %s: %w", msg.Type, stream, err)
	}

	span.SetAttributes(attribute.String("stream.message_id", id))
	return id, nil
}

// PublishCommitJob 只投递任务 ID 等定位信息，提交载荷由 worker 从 jobs 表读取
func (p *Producer) PublishCommitJob(ctx context.Context, job *CommitJobMessage) (string, error) {
	msg, err := NewMessage(job.JobID, MessageTypeCommitJob, job.ProjectID, job)
	if err != nil {
		return "", err
	}
	msg.SetMetadata(MetaJobType, job.JobType)
	return p.Publish(ctx, StreamCommitJobs, msg)
}
