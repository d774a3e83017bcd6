// Package messaging 提供基于 Redis Streams 的任务队列
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"tracehub-api/pkg/logger"
)

// 消息元数据键；W3C traceparent 等追踪头也写在元数据中
const (
	MetaRequestID = "request_id"
	MetaTraceID   = "trace_id"
	MetaJobType   = "job_type"
)

// Message 流中 data 字段的 JSON 内容
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	ProjectID string            `json:"project_id"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage payload 序列化为 JSON 后内嵌
func NewMessage(id, msgType, projectID string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        id,
		Type:      msgType,
		ProjectID: projectID,
		Payload:   raw,
		Metadata:  map[string]string{},
		CreatedAt: time.Now(),
	}, nil
}

func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = map[string]string{}
	}
	m.Metadata[key] = value
}

func (m *Message) GetMetadata(key string) string {
	return m.Metadata[key]
}

// UnmarshalPayload 解析消息载荷
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// Stamp 记录发送方的请求 ID 与追踪上下文
func (m *Message) Stamp(ctx context.Context) {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		m.SetMetadata(MetaRequestID, reqID)
	}
	if traceID, ok := ctx.Value(logger.TraceIDKey).(string); ok && traceID != "" {
		m.SetMetadata(MetaTraceID, traceID)
	}
	if m.Metadata == nil {
		m.Metadata = map[string]string{}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(m.Metadata))
}

// Restore 在消费侧恢复 Stamp 写入的上下文，使 worker 日志与 span 接续发送方
func (m *Message) Restore(ctx context.Context) context.Context {
	if m.Metadata != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(m.Metadata))
	}
	if m.ProjectID != "" {
		ctx = logger.WithContext(ctx, logger.ProjectIDKey, m.ProjectID)
	}
	if reqID := m.GetMetadata(MetaRequestID); reqID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, reqID)
	}
	if traceID := m.GetMetadata(MetaTraceID); traceID != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
	}
	return ctx
}

// Stream 流定义
type Stream string

// StreamCommitJobs 提交任务流
const StreamCommitJobs Stream = "stream:commit:jobs"

// DLQStream 获取对应的死信队列流名称
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组定义
type ConsumerGroup string

// CommitWorkerGroup 按配置前缀生成提交任务消费者组名
func CommitWorkerGroup(prefix string) ConsumerGroup {
	if prefix == "" {
		prefix = "cg-"
	}
	return ConsumerGroup(prefix + "commit-worker")
}

// MessageTypeCommitJob 提交任务消息类型
const MessageTypeCommitJob = "commit_job"

// CommitJobMessage 提交任务消息，载荷本身保存在 jobs 表中
type CommitJobMessage struct {
	JobID            string `json:"job_id"`
	ProjectID        string `json:"project_id"`
	ProjectVersionID string `json:"project_version_id"`
	JobType          string `json:"job_type"`
}

// BackoffConfig 退避配置
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig 默认退避配置
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}
}

// CalculateBackoff 计算第 retryCount 次重试前的等待时间
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	backoff := c.Initial
	for i := 0; i < retryCount; i++ {
		backoff = time.Duration(float64(backoff) * c.Multiplier)
		if backoff > c.Max {
			backoff = c.Max
			break
		}
	}
	return backoff
}
