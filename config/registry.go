// Package config 维护模型类型注册表，让 YAML 中的 model.type 可以驱动模型构建。
package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/churnkit/artifact"
	"github.com/rushteam/churnkit/model"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/churnkit/config/builders"
// 以触发内置模型（dense、lr、onnx、tfserving）的 init 注册。

// ModelBuilder 根据 model.config 参数与模型文件内容构建 Model。
// data 在模型不需要本地文件时为 nil；columns 为 Schema 列名。
type ModelBuilder func(params map[string]any, data []byte, columns []string) (model.Model, error)

type registration struct {
	builder ModelBuilder
	file    string
}

// RegisterOption 注册选项
type RegisterOption func(*registration)

// WithDefaultFile 设置该模型类型的默认产物文件名；artifact.NoModelFile 表示不需要文件。
func WithDefaultFile(name string) RegisterOption {
	return func(r *registration) {
		r.file = name
	}
}

var (
	defaultBuilders   = make(map[string]registration)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种模型的构建逻辑。
// 建议在 init 中调用，例如：func init() { config.Register("dense", BuildDense) }
func Register(typeName string, builder ModelBuilder, opts ...RegisterOption) {
	if typeName == "" || builder == nil {
		return
	}
	r := registration{builder: builder, file: artifact.DefaultModelFile}
	for _, opt := range opts {
		opt(&r)
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = r
}

// SupportedTypes 返回当前已注册的模型类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func lookup(typeName string) (registration, error) {
	defaultBuildersMu.RLock()
	r, ok := defaultBuilders[typeName]
	defaultBuildersMu.RUnlock()
	if !ok {
		return r, fmt.Errorf("unsupported model type %q (supported: %v)", typeName, SupportedTypes())
	}
	return r, nil
}

// ValidateModelType 校验模型类型已注册
func ValidateModelType(typeName string) error {
	_, err := lookup(typeName)
	return err
}

// DefaultModelFile 返回模型类型的默认产物文件名
func DefaultModelFile(typeName string) (string, error) {
	r, err := lookup(typeName)
	if err != nil {
		return "", err
	}
	return r.file, nil
}

// BuildModel 按类型构建模型
func BuildModel(typeName string, params map[string]any, data []byte, columns []string) (model.Model, error) {
	r, err := lookup(typeName)
	if err != nil {
		return nil, err
	}
	return r.builder(params, data, columns)
}

// ArtifactBuilder 返回供 artifact.Load 使用的模型构建函数
func ArtifactBuilder(typeName string, params map[string]any) (artifact.ModelBuilder, error) {
	if err := ValidateModelType(typeName); err != nil {
		return nil, err
	}
	return func(ctx context.Context, data []byte, columns []string) (model.Model, error) {
		return BuildModel(typeName, params, data, columns)
	}, nil
}
