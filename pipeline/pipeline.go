package pipeline

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/rushteam/churnkit/artifact"
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/interpret"
)

// Pipeline 把一条原始记录依次交给 Node 链：校验 → 组装 → 缩放 → 推理 → 解释。
//
// Pipeline 构建后只读，可被并发调用；每次调用要么返回完整结果，要么返回错误。
type Pipeline struct {
	name    string
	bundle  *artifact.Bundle
	interp  interpret.Interpreter
	fields  []string
	nodes   []Node
	cache   *lru.Cache[string, *core.Prediction]
	monitor *feature.Monitor
	logger  *zap.Logger
}

// Option Pipeline 配置选项
type Option func(*options)

type options struct {
	logger    *zap.Logger
	rules     []Rule
	cacheSize int
	monitor   *feature.Monitor
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRules 设置输入校验规则
func WithRules(rules ...Rule) Option {
	return func(o *options) {
		o.rules = append(o.rules, rules...)
	}
}

// WithCacheSize 开启结果缓存（LRU），size <= 0 表示不缓存
func WithCacheSize(size int) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

// WithMonitor 记录输入字段的分布（缺失、未知类别、数值统计）
func WithMonitor(m *feature.Monitor) Option {
	return func(o *options) {
		o.monitor = m
	}
}

// New 基于已加载的 Bundle 创建 Pipeline。
// Bundle 内部不一致返回 SCHEMA_MISMATCH；解释器任务与元数据任务不一致返回错误。
func New(name string, bundle *artifact.Bundle, interp interpret.Interpreter, opts ...Option) (*Pipeline, error) {
	if bundle == nil || interp == nil {
		return nil, fmt.Errorf("pipeline %s requires bundle and interpreter", name)
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	if task := bundle.Task(); task != "" && task != interp.Task() {
		return nil, fmt.Errorf("pipeline %s: artifacts are trained for %s, interpreter is %s", name, task, interp.Task())
	}

	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	p := &Pipeline{
		name:    name,
		bundle:  bundle,
		interp:  interp,
		fields:  bundle.Assembler().RequiredFields(),
		monitor: o.monitor,
		logger:  o.logger.With(zap.String("pipeline", name)),
	}
	p.nodes = []Node{
		&validateNode{fields: p.fields, rules: o.rules, monitor: o.monitor},
		&assembleNode{assembler: bundle.Assembler(), monitor: o.monitor},
		&scaleNode{scaler: bundle.Scaler()},
		&inferNode{model: bundle.Model()},
		&interpretNode{interp: interp, version: bundle.Version()},
	}
	if o.cacheSize > 0 {
		cache, err := lru.New[string, *core.Prediction](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", name, err)
		}
		p.cache = cache
	}
	return p, nil
}

// Name 返回 Pipeline 名称
func (p *Pipeline) Name() string { return p.name }

// Task 返回任务类型
func (p *Pipeline) Task() core.Task { return p.interp.Task() }

// RequiredFields 返回原始记录必须包含的字段
func (p *Pipeline) RequiredFields() []string { return append([]string(nil), p.fields...) }

// Stats 返回输入监控统计，未开启监控时返回 nil
func (p *Pipeline) Stats() []feature.FieldStats {
	if p.monitor == nil {
		return nil
	}
	return p.monitor.Snapshot()
}

// Bundle 返回 Pipeline 使用的产物
func (p *Pipeline) Bundle() *artifact.Bundle { return p.bundle }

// Predict 对单条记录推理。
// 缓存在校验与组装之后查找，键为组装后的特征向量，规则校验对每次调用都生效。
// 未预期的 panic 会在此处恢复并转换为 TRANSFORM_FAILURE，进程保持可用。
func (p *Pipeline) Predict(ctx context.Context, record core.RawRecord) (pred *core.Prediction, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			pred, err = nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeTransformFailure,
				fmt.Sprintf("unexpected failure in %s pipeline: %v", p.name, r))
		}
	}()

	var key string
	st := &State{Record: record}
	for _, node := range p.nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := node.Process(ctx, st); err != nil {
			p.logger.Debug("pipeline stage failed",
				zap.String("stage", string(node.Kind())), zap.String("node", node.Name()), zap.Error(err))
			return nil, asDomainError(node, err)
		}
		if p.cache != nil && node.Kind() == KindAssemble {
			key = cacheKey(st.Assembly)
			if cached, ok := p.cache.Get(key); ok {
				return clonePrediction(cached), nil
			}
		}
	}

	if unknown := st.Prediction.UnknownCategories; len(unknown) > 0 {
		p.logger.Warn("unknown category encoded as zero vector", zap.Strings("fields", unknown))
	}
	p.logger.Debug("prediction",
		zap.Float64("raw", st.Raw),
		zap.String("summary", st.Prediction.Summary()),
		zap.Duration("elapsed", time.Since(start)))

	if p.cache != nil {
		p.cache.Add(key, clonePrediction(st.Prediction))
	}
	return st.Prediction, nil
}

// cacheKey 由特征向量的精确位模式与未知类别字段组成。
// 未知类别降级为零向量，可能与某个已知编码重合，需要字段名区分。
func cacheKey(a *feature.Assembly) string {
	var b strings.Builder
	buf := make([]byte, 0, 16)
	for i, v := range a.Vector {
		if i > 0 {
			b.WriteByte(',')
		}
		buf = strconv.AppendUint(buf[:0], math.Float64bits(v), 16)
		b.Write(buf)
	}
	for _, f := range a.UnknownFields() {
		b.WriteByte('|')
		b.WriteString(f)
	}
	return b.String()
}

// asDomainError 领域错误原样返回，其余错误归为 TRANSFORM_FAILURE
func asDomainError(node Node, err error) error {
	if core.IsDomainError(err) {
		return err
	}
	return core.WrapDomainError(core.ModulePipeline, core.ErrorCodeTransformFailure,
		fmt.Sprintf("%s stage %s failed", node.Kind(), node.Name()), err)
}

func clonePrediction(p *core.Prediction) *core.Prediction {
	out := *p
	if p.Churn != nil {
		c := *p.Churn
		out.Churn = &c
	}
	if p.Salary != nil {
		s := *p.Salary
		out.Salary = &s
	}
	out.UnknownCategories = append([]string(nil), p.UnknownCategories...)
	if len(out.UnknownCategories) == 0 {
		out.UnknownCategories = nil
	}
	return &out
}
