package versioning

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"tracehub-api/internal/domain/entity"
	"tracehub-api/internal/domain/repository"
	"tracehub-api/pkg/logger"
	"tracehub-api/pkg/metrics"
	"tracehub-api/pkg/tracer"
)

// Engine 通用版本化引擎
type Engine[B BaseEntity, V VersionEntity[V, A], A AppEntity] struct {
	store   Store[B, V]
	binding Binding[B, V, A]
	tx      repository.Transactor
}

// New 创建引擎；tx 为空时批处理中的实体不做保存点隔离
func New[B BaseEntity, V VersionEntity[V, A], A AppEntity](store Store[B, V], binding Binding[B, V, A], tx repository.Transactor) (*Engine[B, V, A], error) {
	if store == nil {
		return nil, fmt.Errorf("versioning store is required")
	}
	if err := binding.validate(); err != nil {
		return nil, err
	}
	return &Engine[B, V, A]{store: store, binding: binding, tx: tx}, nil
}

// Kind 引擎负责的实体类别
func (e *Engine[B, V, A]) Kind() entity.CommitActivity {
	return e.binding.Kind
}

// CalculateModificationType 比较两个快照
func (e *Engine[B, V, A]) CalculateModificationType(before, after V) entity.ModificationType {
	return CalculateModificationType(before, after)
}

// CalculateModificationTypeForApp 以 pv 之前的最新行为基准，与期望状态比较
// app 为零值表示不再需要该实体
func (e *Engine[B, V, A]) CalculateModificationTypeForApp(ctx context.Context, pv *entity.ProjectVersion, base B, app A) (entity.ModificationType, error) {
	var zeroB B
	var zeroA A

	var before V
	if base != zeroB {
		rows, err := e.store.ListBaseVersions(ctx, base.EntityID())
		if err != nil {
			return NoChange, err
		}
		before = LatestWithFilter(rows, Before(pv))
	}

	return classify(isLive(before), app != zeroA, func() bool {
		return before.HasSameAppContent(app)
	}), nil
}

// CalculateVersionAt 计算 pv 上需要写入的行，无变化时返回零值
// pv 上已有的行会把 ID 让给新行；类型与内容都相同时视为无变化。
// 期望状态与 pv 之前一致但 pv 上已有行时，改写该行使 pv 的快照回到之前的状态：
// 之前不存在则写 REMOVED，否则按之前的内容写 MODIFIED
func (e *Engine[B, V, A]) CalculateVersionAt(ctx context.Context, pv *entity.ProjectVersion, base B, app A) (V, error) {
	var zero V
	var zeroB B
	var zeroA A

	mod, err := e.CalculateModificationTypeForApp(ctx, pv, base, app)
	if err != nil {
		return zero, err
	}
	if base == zeroB {
		if mod == NoChange {
			return zero, nil
		}
		return e.binding.NewVersion(pv, base, mod, app), nil
	}

	existing, err := e.store.FindVersion(ctx, pv.ID, base.EntityID())
	if err != nil {
		return zero, err
	}
	if mod == NoChange {
		if existing == zero {
			return zero, nil
		}
		mod = entity.ModificationModified
		if app == zeroA {
			mod = entity.ModificationRemoved
		}
	}

	next := e.binding.NewVersion(pv, base, mod, app)
	if existing != zero {
		if existing.ModificationType() == mod && existing.HasSameContent(next) {
			return zero, nil
		}
		next.SetEntityVersionID(existing.EntityVersionID())
	}
	return next, nil
}

// ResolveAndCalculate 解析或创建基础实体，执行领域规则后计算版本行
func (e *Engine[B, V, A]) ResolveAndCalculate(ctx context.Context, pv *entity.ProjectVersion, app A) (B, V, error) {
	var zero V

	base, err := e.binding.Resolve(ctx, pv, app)
	if err != nil {
		return base, zero, err
	}
	v, err := e.calculate(ctx, pv, base, app)
	return base, v, err
}

// calculate 先执行领域规则再计算版本行
func (e *Engine[B, V, A]) calculate(ctx context.Context, pv *entity.ProjectVersion, base B, app A) (V, error) {
	if e.binding.Guard != nil {
		if err := e.binding.Guard(ctx, pv, base, app); err != nil {
			var zero V
			return zero, err
		}
	}
	return e.CalculateVersionAt(ctx, pv, base, app)
}

// SetAppEntity 写入单个实体，错误直接返回
func (e *Engine[B, V, A]) SetAppEntity(ctx context.Context, pv *entity.ProjectVersion, app A) (V, error) {
	ctx, span := tracer.Start(ctx, "versioning.Engine.SetAppEntity")
	defer span.End()

	var zero V
	_, v, err := e.ResolveAndCalculate(ctx, pv, app)
	if err != nil {
		return zero, err
	}
	if err := e.save(ctx, app.DisplayName(), v); err != nil {
		return zero, err
	}
	return v, nil
}

// RemoveAppEntity 删除单个实体；实体不存在或已删除时返回零值
func (e *Engine[B, V, A]) RemoveAppEntity(ctx context.Context, pv *entity.ProjectVersion, app A) (V, error) {
	ctx, span := tracer.Start(ctx, "versioning.Engine.RemoveAppEntity")
	defer span.End()

	var zero V
	var zeroB B
	var zeroA A

	base, err := e.binding.Lookup(ctx, pv, app)
	if err != nil {
		return zero, err
	}
	if base == zeroB {
		return zero, nil
	}
	v, err := e.CalculateVersionAt(ctx, pv, base, zeroA)
	if err != nil {
		return zero, err
	}
	if err := e.save(ctx, app.DisplayName(), v); err != nil {
		return zero, err
	}
	return v, nil
}

// SetAppEntities 批量应用期望状态
// 每个实体在独立保存点中处理，失败记为提交错误并继续；上下文取消时中止整个批次
func (e *Engine[B, V, A]) SetAppEntities(ctx context.Context, pv *entity.ProjectVersion, apps []A, mode Mode) (*BatchResult[V], error) {
	ctx, span := tracer.Start(ctx, "versioning.Engine.SetAppEntities")
	defer span.End()
	span.SetAttributes(
		attribute.String("versioning.kind", string(e.binding.Kind)),
		attribute.String("versioning.mode", string(mode)),
		attribute.Int("versioning.entities", len(apps)),
	)

	start := time.Now()
	defer func() {
		metrics.BatchDuration.WithLabelValues(string(e.binding.Kind), string(mode)).Observe(time.Since(start).Seconds())
	}()

	var zero V
	result := &BatchResult[V]{}
	seen := make(map[string]struct{}, len(apps))
	referenced := make(map[string]struct{}, len(apps))

	for _, app := range apps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := app.DisplayName()
		key := app.NaturalKey()
		if _, dup := seen[key]; dup {
			e.reject(ctx, pv, result, name, ErrDuplicateBatchEntry)
			continue
		}
		seen[key] = struct{}{}

		var v V
		err := e.isolate(ctx, func(ctx context.Context) error {
			base, err := e.binding.Resolve(ctx, pv, app)
			if err != nil {
				return err
			}
			// 自然键不同但解析到同一基础实体时同样按重复处理
			if _, dup := referenced[base.EntityID()]; dup {
				return ErrDuplicateBatchEntry.WithDetail(fmt.Sprintf("%s resolves to an entity already in this batch", name))
			}
			referenced[base.EntityID()] = struct{}{}

			calculated, err := e.calculate(ctx, pv, base, app)
			if err != nil {
				return err
			}
			if err := e.save(ctx, name, calculated); err != nil {
				return err
			}
			v = calculated
			return nil
		})
		if err != nil {
			if isContextError(err) {
				return nil, err
			}
			e.reject(ctx, pv, result, name, err)
			continue
		}
		if v != zero {
			result.Versions = append(result.Versions, v)
		}
	}

	if mode == ModeCompleteSet {
		if err := e.removeUnreferenced(ctx, pv, referenced, result); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(
		attribute.Int("versioning.rows", len(result.Versions)),
		attribute.Int("versioning.errors", len(result.Errors)),
	)
	return result, nil
}

// removeUnreferenced 为未被引用的基础实体写入隐式 REMOVED 行
func (e *Engine[B, V, A]) removeUnreferenced(ctx context.Context, pv *entity.ProjectVersion, referenced map[string]struct{}, result *BatchResult[V]) error {
	var zero V
	var zeroA A

	bases, err := e.store.ListBaseEntities(ctx, pv.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to list %s entities: %w", e.binding.Noun, err)
	}

	for _, base := range bases {
		if _, ok := referenced[base.EntityID()]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := e.describe(base)
		var v V
		err := e.isolate(ctx, func(ctx context.Context) error {
			calculated, err := e.CalculateVersionAt(ctx, pv, base, zeroA)
			if err != nil {
				return err
			}
			if err := e.save(ctx, name, calculated); err != nil {
				return err
			}
			v = calculated
			return nil
		})
		if err != nil {
			if isContextError(err) {
				return err
			}
			e.reject(ctx, pv, result, name, err)
			continue
		}
		if v != zero {
			result.Versions = append(result.Versions, v)
		}
	}
	return nil
}

// save 持久化非零行
func (e *Engine[B, V, A]) save(ctx context.Context, name string, v V) error {
	var zero V
	if v == zero {
		return nil
	}
	if err := e.store.SaveVersion(ctx, v); err != nil {
		return fmt.Errorf("failed to save %s %q: %w", e.binding.Noun, name, err)
	}
	metrics.VersionRowsWritten.WithLabelValues(string(e.binding.Kind), string(v.ModificationType())).Inc()
	return nil
}

// isolate 在保存点中执行，失败只回滚当前实体
func (e *Engine[B, V, A]) isolate(ctx context.Context, fn func(ctx context.Context) error) error {
	if e.tx == nil {
		return fn(ctx)
	}
	return e.tx.WithTransaction(ctx, fn)
}

func (e *Engine[B, V, A]) reject(ctx context.Context, pv *entity.ProjectVersion, result *BatchResult[V], name string, err error) {
	metrics.VersionEntityErrors.WithLabelValues(string(e.binding.Kind)).Inc()
	logger.Warn(ctx, "versioning entity rejected",
		"kind", string(e.binding.Kind),
		"entity", name,
		"project_version", pv.String(),
		"error", err.Error(),
	)
	result.Errors = append(result.Errors,
		entity.NewCommitError(pv.ID, e.binding.Kind, name, describeError(name, err)))
}

func (e *Engine[B, V, A]) describe(base B) string {
	if e.binding.Describe != nil {
		return e.binding.Describe(base)
	}
	return base.EntityID()
}
