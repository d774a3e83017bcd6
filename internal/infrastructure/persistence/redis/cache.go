// Package redis 提供快照缓存实现
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"tracehub-api/pkg/logger"
	"tracehub-api/pkg/metrics"
)

var cacheTracer = otel.Tracer("redis.cache")

// DefaultSnapshotTTL 未配置时的快照缓存时长
const DefaultSnapshotTTL = 10 * time.Minute

// SnapshotCache 版本快照的读穿缓存
// 键中带有项目代数，提交成功后递增代数即可使该项目的全部快照失效
type SnapshotCache struct {
	client *Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewSnapshotCache 创建快照缓存
func NewSnapshotCache(client *Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

func generationKey(projectID string) string {
	return "snapshot:gen:" + projectID
}

func snapshotKey(projectID string, generation int64, kind, versionID string) string {
	return fmt.Sprintf("snapshot:%s:%d:%s:%s", projectID, generation, kind, versionID)
}

// Generation 获取项目当前缓存代数，从未提交过时为 0
func (c *SnapshotCache) Generation(ctx context.Context, projectID string) (int64, error) {
	gen, err := c.client.rdb.Get(ctx, generationKey(projectID)).Int64()
	if IsNil(err) {
		return 0, nil
	}
	return gen, err
}

// Invalidate 递增项目缓存代数
func (c *SnapshotCache) Invalidate(ctx context.Context, projectID string) (int64, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.Invalidate",
		trace.WithAttributes(attribute.String("cache.project_id", projectID)))
	defer span.End()

	gen, err := c.client.rdb.Incr(ctx, generationKey(projectID)).Result()
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to bump snapshot generation: %w", err)
	}
	return gen, nil
}

// GetOrLoad 读取快照，未命中时调用 loader 并写回
// Redis 不可用时直接返回 loader 的结果；并发的相同请求通过 singleflight 合并
func (c *SnapshotCache) GetOrLoad(ctx context.Context, kind, projectID, versionID string, loader func(ctx context.Context) (any, error)) ([]byte, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(
			attribute.String("cache.kind", kind),
			attribute.String("cache.version_id", versionID),
		))
	defer span.End()

	gen, err := c.Generation(ctx, projectID)
	if err != nil {
		metrics.SnapshotCacheRequests.WithLabelValues(kind, "error").Inc()
		logger.Warn(ctx, "snapshot cache unavailable, loading directly", "error", err.Error())
		return load(ctx, loader)
	}

	key := snapshotKey(projectID, gen, kind, versionID)
	val, err := c.client.rdb.Get(ctx, key).Bytes()
	if err == nil {
		metrics.SnapshotCacheRequests.WithLabelValues(kind, "hit").Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return val, nil
	}
	if !IsNil(err) {
		metrics.SnapshotCacheRequests.WithLabelValues(kind, "error").Inc()
		logger.Warn(ctx, "snapshot cache read failed", "key", key, "error", err.Error())
		return load(ctx, loader)
	}

	metrics.SnapshotCacheRequests.WithLabelValues(kind, "miss").Inc()
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err, shared := c.group.Do(key, func() (any, error) {
		bytes, err := load(ctx, loader)
		if err != nil {
			return nil, err
		}
		if err := c.client.rdb.Set(ctx, key, bytes, c.ttl).Err(); err != nil {
			// 写缓存失败不影响返回结果
			logger.Warn(ctx, "snapshot cache write failed", "key", key, "error", err.Error())
		}
		return bytes, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))

	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result.([]byte), nil
}

func load(ctx context.Context, loader func(ctx context.Context) (any, error)) ([]byte, error) {
	data, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return bytes, nil
}
