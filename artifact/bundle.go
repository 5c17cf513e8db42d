// Package artifact 加载训练产物（特征元数据、编码器、scaler、模型），
// 并组装为进程内只读的 Bundle。
package artifact

import (
	"fmt"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/model"
)

// Files 产物文件名；空字段使用默认值，Model 为 "-" 表示远程模型没有本地文件。
type Files struct {
	Metadata string `yaml:"metadata" json:"metadata"`
	Encoders string `yaml:"encoders" json:"encoders"`
	Scaler   string `yaml:"scaler" json:"scaler"`
	Model    string `yaml:"model" json:"model"`
}

// 默认产物文件名
const (
	DefaultMetadataFile = "feature_meta.json"
	DefaultEncodersFile = "encoders.json"
	DefaultScalerFile   = "scaler.json"
	DefaultModelFile    = "model.json"

	// NoModelFile 表示模型不需要本地文件（如 TF Serving）
	NoModelFile = "-"
)

// WithDefaults 返回补全默认文件名后的副本
func (f Files) WithDefaults() Files {
	if f.Metadata == "" {
		f.Metadata = DefaultMetadataFile
	}
	if f.Encoders == "" {
		f.Encoders = DefaultEncodersFile
	}
	if f.Scaler == "" {
		f.Scaler = DefaultScalerFile
	}
	if f.Model == "" {
		f.Model = DefaultModelFile
	}
	return f
}

// Names 返回需要读取的文件名列表
func (f Files) Names() []string {
	f = f.WithDefaults()
	names := []string{f.Metadata, f.Encoders, f.Scaler}
	if f.Model != NoModelFile {
		names = append(names, f.Model)
	}
	return names
}

// Bundle 是一次加载得到的全部产物，构建后不可替换，可被任意多个并发推理共享。
// 各部分只能通过 NewBundle 组装，字段不导出。
type Bundle struct {
	metadata  *feature.FeatureMetadata
	schema    *feature.Schema
	encoder   *feature.CategoricalEncoder
	assembler *feature.Assembler
	scaler    feature.Scaler
	model     model.Model
}

// NewBundle 由已解析的产物构建 Bundle，并校验各部分与 Schema 对齐。
func NewBundle(meta *feature.FeatureMetadata, encoder *feature.CategoricalEncoder, scaler feature.Scaler, m model.Model) (*Bundle, error) {
	if meta == nil || encoder == nil || scaler == nil || m == nil {
		return nil, fmt.Errorf("bundle requires metadata, encoder, scaler and model")
	}
	schema, err := meta.Schema()
	if err != nil {
		return nil, err
	}
	assembler, err := feature.NewAssembler(schema, encoder)
	if err != nil {
		return nil, err
	}
	b := &Bundle{
		metadata:  meta,
		schema:    schema,
		encoder:   encoder,
		assembler: assembler,
		scaler:    scaler,
		model:     m,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Metadata 返回特征元数据
func (b *Bundle) Metadata() *feature.FeatureMetadata { return b.metadata }

// Schema 返回特征列顺序
func (b *Bundle) Schema() *feature.Schema { return b.schema }

// Encoder 返回类别编码器
func (b *Bundle) Encoder() *feature.CategoricalEncoder { return b.encoder }

// Assembler 返回特征组装器
func (b *Bundle) Assembler() *feature.Assembler { return b.assembler }

// Scaler 返回标准化器
func (b *Bundle) Scaler() feature.Scaler { return b.scaler }

// Model 返回推理模型
func (b *Bundle) Model() model.Model { return b.model }

// Validate 校验 scaler 与模型的维度（以及 scaler 的列名）与 Schema 一致。
// 不一致返回 SCHEMA_MISMATCH。
func (b *Bundle) Validate() error {
	if b.schema == nil || b.assembler == nil || b.scaler == nil || b.model == nil {
		return fmt.Errorf("bundle is incomplete")
	}
	n := b.schema.Len()
	if b.scaler.Dim() != n {
		return core.NewDomainError(core.ModuleArtifact, core.ErrorCodeSchemaMismatch,
			fmt.Sprintf("scaler expects %d features, schema has %d", b.scaler.Dim(), n))
	}
	if names := b.scaler.FeatureNames(); len(names) > 0 && !b.schema.Equal(names) {
		return core.NewDomainError(core.ModuleArtifact, core.ErrorCodeSchemaMismatch,
			fmt.Sprintf("scaler feature names %v differ from schema %v", names, b.schema.Columns()))
	}
	if dim := b.model.InputDim(); dim > 0 && dim != n {
		return core.NewDomainError(core.ModuleArtifact, core.ErrorCodeSchemaMismatch,
			fmt.Sprintf("model %s expects %d features, schema has %d", b.model.Name(), dim, n))
	}
	return nil
}

// Task 返回元数据中的任务类型
func (b *Bundle) Task() core.Task {
	if b.metadata == nil {
		return ""
	}
	return core.Task(b.metadata.Task)
}

// Version 返回模型版本
func (b *Bundle) Version() string {
	if b.metadata == nil {
		return ""
	}
	return b.metadata.ModelVersion
}

// Close 释放模型持有的资源（ONNX session 等）
func (b *Bundle) Close() error {
	if c, ok := b.model.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
