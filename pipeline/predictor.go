package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/churnkit/artifact"
	registry "github.com/rushteam/churnkit/config"
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feast"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/interpret"
	"github.com/rushteam/churnkit/store"
)

// Predictor 持有按名称注册的 Pipeline（通常是 churn 与 salary），
// 以及可选的按实体 ID 取数的 RecordSource。
type Predictor struct {
	pipelines map[string]*Pipeline
	records   core.RecordSource
	closers   []func() error
	logger    *zap.Logger
}

// PredictorOption Predictor 配置选项
type PredictorOption func(*Predictor)

// WithRecordSource 设置按实体 ID 取数的来源
func WithRecordSource(src core.RecordSource) PredictorOption {
	return func(p *Predictor) {
		p.records = src
	}
}

// WithPredictorLogger 设置日志
func WithPredictorLogger(l *zap.Logger) PredictorOption {
	return func(p *Predictor) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPredictor 用已构建的 Pipeline 创建 Predictor，名称重复返回错误。
func NewPredictor(pipelines []*Pipeline, opts ...PredictorOption) (*Predictor, error) {
	p := &Predictor{
		pipelines: make(map[string]*Pipeline, len(pipelines)),
		logger:    zap.NewNop(),
	}
	for _, pl := range pipelines {
		if _, dup := p.pipelines[pl.Name()]; dup {
			return nil, fmt.Errorf("duplicated pipeline %s", pl.Name())
		}
		p.pipelines[pl.Name()] = pl
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Build 根据配置加载全部产物并创建 Predictor。
// 任一 Pipeline 加载失败都会释放已加载的资源并返回错误，不会留下半初始化的 Predictor。
func Build(ctx context.Context, cfg *Config, logger *zap.Logger) (_ *Predictor, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		pipelines []*Pipeline
		redisOnce *store.RedisStore
	)
	defer func() {
		if redisOnce != nil {
			_ = redisOnce.Close()
		}
		if err != nil {
			for _, pl := range pipelines {
				_ = pl.Bundle().Close()
			}
		}
	}()

	names := make([]string, 0, len(cfg.Pipelines))
	for name := range cfg.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pc := cfg.Pipelines[name]

		var src artifact.Source
		switch pc.Artifacts.Source {
		case SourceDir:
			src = artifact.NewDirSource(pc.Artifacts.Location)
		case SourceHTTP:
			src = artifact.NewHTTPSource(pc.Artifacts.Location, time.Duration(pc.Artifacts.Timeout)*time.Second)
		case SourceRedis:
			if redisOnce == nil {
				if cfg.Redis == nil {
					return nil, fmt.Errorf("pipeline %s: redis is not configured", name)
				}
				redisOnce, err = store.NewRedisStore(ctx, *cfg.Redis)
				if err != nil {
					return nil, fmt.Errorf("pipeline %s: %w", name, err)
				}
			}
			src = artifact.NewStoreSource(redisOnce, pc.Artifacts.Location)
		default:
			return nil, fmt.Errorf("pipeline %s: unknown artifact source %q", name, pc.Artifacts.Source)
		}

		pl, err := buildPipeline(ctx, name, pc, src, logger)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, pl)
		logger.Info("pipeline loaded",
			zap.String("pipeline", name),
			zap.String("task", string(pl.Task())),
			zap.String("model_version", pl.Bundle().Version()),
			zap.String("source", src.Name()))
	}

	var opts []PredictorOption
	opts = append(opts, WithPredictorLogger(logger))
	var closers []func() error
	if cfg.Feast != nil && cfg.Feast.Endpoint != "" {
		records, err := feast.NewSourceFromConfig(*cfg.Feast)
		if err != nil {
			return nil, fmt.Errorf("feast: %w", err)
		}
		opts = append(opts, WithRecordSource(records))
		closers = append(closers, records.Close)
	}

	pred, err := NewPredictor(pipelines, opts...)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}
	pred.closers = closers
	return pred, nil
}

// buildPipeline 从来源加载产物并创建单个 Pipeline
func buildPipeline(ctx context.Context, name string, pc *PipelineConfig, src artifact.Source, logger *zap.Logger) (*Pipeline, error) {
	files := pc.Artifacts.Files
	if files.Model == "" {
		file, err := registry.DefaultModelFile(pc.Model.Type)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", name, err)
		}
		files.Model = file
	}
	build, err := registry.ArtifactBuilder(pc.Model.Type, pc.Model.Config)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", name, err)
	}
	interp, err := interpret.New(pc.Task, pc.Threshold, pc.SalaryScale)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", name, err)
	}
	rules, err := CompileRules(pc.Validation)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", name, err)
	}

	bundle, err := artifact.Load(ctx, src, files, build, artifact.WithLogger(logger.With(zap.String("pipeline", name))))
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithLogger(logger),
		WithRules(rules...),
		WithCacheSize(pc.CacheSize),
	}
	if pc.MonitorSamples > 0 {
		opts = append(opts, WithMonitor(feature.NewMonitor(pc.MonitorSamples)))
	}
	pl, err := New(name, bundle, interp, opts...)
	if err != nil {
		_ = bundle.Close()
		return nil, err
	}
	return pl, nil
}

// Names 返回已注册的 Pipeline 名称（排序后）
func (p *Predictor) Names() []string {
	names := make([]string, 0, len(p.pipelines))
	for name := range p.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline 按名称获取 Pipeline
func (p *Predictor) Pipeline(name string) (*Pipeline, bool) {
	pl, ok := p.pipelines[name]
	return pl, ok
}

// HasRecordSource 是否配置了按实体 ID 取数的来源
func (p *Predictor) HasRecordSource() bool { return p.records != nil }

// Predict 使用指定 Pipeline 对单条记录推理，未注册的名称返回 NOT_FOUND。
func (p *Predictor) Predict(ctx context.Context, name string, record core.RawRecord) (*core.Prediction, error) {
	pl, ok := p.pipelines[name]
	if !ok {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeNotFound,
			fmt.Sprintf("pipeline %s is not configured", name))
	}
	return pl.Predict(ctx, record)
}

// PredictChurn 预测客户是否流失
func (p *Predictor) PredictChurn(ctx context.Context, record core.RawRecord) (*core.Prediction, error) {
	return p.Predict(ctx, NameChurn, record)
}

// PredictSalary 预测客户的估计薪资
func (p *Predictor) PredictSalary(ctx context.Context, record core.RawRecord) (*core.Prediction, error) {
	return p.Predict(ctx, NameSalary, record)
}

// PredictEntity 先从 RecordSource 取回实体的原始记录，再交给 Pipeline 推理。
func (p *Predictor) PredictEntity(ctx context.Context, name, entityID string) (*core.Prediction, error) {
	if p.records == nil {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeNotSupported,
			"no record source configured")
	}
	if _, ok := p.pipelines[name]; !ok {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeNotFound,
			fmt.Sprintf("pipeline %s is not configured", name))
	}
	record, err := p.records.GetRecord(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return p.Predict(ctx, name, record)
}

// Stats 返回指定 Pipeline 的输入监控统计
func (p *Predictor) Stats(name string) ([]feature.FieldStats, error) {
	pl, ok := p.pipelines[name]
	if !ok {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeNotFound,
			fmt.Sprintf("pipeline %s is not configured", name))
	}
	return pl.Stats(), nil
}

// Health 检查依赖远程服务的模型（如 TF Serving），本地模型总是可用。
// 返回不可用的 Pipeline 及原因，全部可用时返回 nil。
func (p *Predictor) Health(ctx context.Context) map[string]error {
	var down map[string]error
	for _, name := range p.Names() {
		hc, ok := p.pipelines[name].Bundle().Model().(interface{ Health(context.Context) error })
		if !ok {
			continue
		}
		if err := hc.Health(ctx); err != nil {
			if down == nil {
				down = make(map[string]error)
			}
			down[name] = core.WrapDomainError(core.ModulePipeline, core.ErrorCodeUnavailable,
				fmt.Sprintf("pipeline %s model is unavailable", name), err)
		}
	}
	return down
}

// Close 释放模型与记录来源
func (p *Predictor) Close() error {
	var errs []error
	for _, name := range p.Names() {
		if err := p.pipelines[name].Bundle().Close(); err != nil {
			errs = append(errs, fmt.Errorf("pipeline %s: %w", name, err))
		}
	}
	for _, c := range p.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
