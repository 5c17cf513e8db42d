package artifact

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/model"
)

// ModelBuilder 根据模型文件内容创建模型。
// data 在 Files.Model 为 NoModelFile 时为 nil；columns 为 Schema 列名。
type ModelBuilder func(ctx context.Context, data []byte, columns []string) (model.Model, error)

// LoadOption 加载选项
type LoadOption func(*loadOptions)

type loadOptions struct {
	logger *zap.Logger
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) LoadOption {
	return func(o *loadOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Load 并发读取全部产物并组装 Bundle。
// 任一产物缺失、损坏或彼此不一致都返回 ARTIFACT_LOAD_FAILURE，底层原因保留在错误链中。
func Load(ctx context.Context, src Source, files Files, build ModelBuilder, opts ...LoadOption) (*Bundle, error) {
	o := &loadOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if src == nil || build == nil {
		return nil, loadFailure("source and model builder are required", nil)
	}
	files = files.WithDefaults()

	var metaData, encData, scalerData, modelData []byte
	g, gctx := errgroup.WithContext(ctx)
	fetch := func(name string, dst *[]byte) {
		g.Go(func() error {
			data, err := src.Fetch(gctx, name)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", name, err)
			}
			*dst = data
			return nil
		})
	}
	fetch(files.Metadata, &metaData)
	fetch(files.Encoders, &encData)
	fetch(files.Scaler, &scalerData)
	if files.Model != NoModelFile {
		fetch(files.Model, &modelData)
	}
	if err := g.Wait(); err != nil {
		return nil, loadFailure(fmt.Sprintf("failed to read artifacts from %s", src.Name()), err)
	}

	meta, err := feature.ParseFeatureMetadata(metaData)
	if err != nil {
		return nil, loadFailure(files.Metadata+" is corrupt", err)
	}
	encoder, err := feature.ParseEncoder(encData)
	if err != nil {
		return nil, loadFailure(files.Encoders+" is corrupt", err)
	}
	for _, field := range encoder.OneHotFields() {
		if synthetic, _ := encoder.Synthetic(field); synthetic {
			o.logger.Warn("one-hot feature names unavailable, using synthetic column names",
				zap.String("field", field), zap.Strings("columns", encoder.Columns(field)))
		}
	}
	scaler, err := feature.ParseScaler(scalerData)
	if err != nil {
		return nil, loadFailure(files.Scaler+" is corrupt", err)
	}
	m, err := build(ctx, modelData, meta.FeatureColumns)
	if err != nil {
		return nil, loadFailure("failed to build model", err)
	}

	b, err := NewBundle(meta, encoder, scaler, m)
	if err != nil {
		if c, ok := m.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		return nil, loadFailure("artifacts are inconsistent", err)
	}

	o.logger.Info("artifacts loaded",
		zap.String("source", src.Name()),
		zap.String("model", m.Name()),
		zap.String("model_version", meta.ModelVersion),
		zap.Int("features", b.Schema().Len()),
		zap.String("scaler", scaler.Name()))
	return b, nil
}

func loadFailure(msg string, err error) error {
	return core.WrapDomainError(core.ModuleArtifact, core.ErrorCodeArtifactLoad, msg, err)
}
