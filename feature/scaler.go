package feature

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/churnkit/core"
)

// Scaler 是训练时拟合好的按列归一化变换。
//
// Transform 要求输入长度与 Dim 完全一致，不一致时返回 SCHEMA_MISMATCH，
// 不会截断或补零。
type Scaler interface {
	Name() string
	Dim() int
	// FeatureNames 返回拟合时的列名（可能为空）
	FeatureNames() []string
	Transform(x []float64) ([]float64, error)
	Inverse(x []float64) ([]float64, error)
}

// StandardScaler Z-score 标准化（Standardization）
// 公式: z = (x - μ) / σ
// σ 为 0 的列按 1 处理（与 sklearn 一致）。
type StandardScaler struct {
	mean  []float64
	scale []float64
	names []string
}

// NewStandardScaler 创建 Z-score 标准化器，mean 与 scale 按列位置对应。
func NewStandardScaler(mean, scale []float64, names []string) (*StandardScaler, error) {
	if len(mean) == 0 {
		return nil, fmt.Errorf("standard scaler has no columns")
	}
	if len(mean) != len(scale) {
		return nil, fmt.Errorf("standard scaler: %d means vs %d scales", len(mean), len(scale))
	}
	if len(names) > 0 && len(names) != len(mean) {
		return nil, fmt.Errorf("standard scaler: %d feature names vs %d columns", len(names), len(mean))
	}
	s := &StandardScaler{
		mean:  append([]float64(nil), mean...),
		scale: append([]float64(nil), scale...),
		names: append([]string(nil), names...),
	}
	for i, v := range s.scale {
		if v == 0 {
			s.scale[i] = 1
		}
	}
	return s, nil
}

func (s *StandardScaler) Name() string           { return "standard" }
func (s *StandardScaler) Dim() int               { return len(s.mean) }
func (s *StandardScaler) FeatureNames() []string { return append([]string(nil), s.names...) }

// Transform 标准化特征向量
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if err := checkDim(s, x); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	floats.SubTo(out, x, s.mean)
	floats.Div(out, s.scale)
	return out, nil
}

// Inverse 还原标准化前的特征向量
func (s *StandardScaler) Inverse(x []float64) ([]float64, error) {
	if err := checkDim(s, x); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	floats.MulTo(out, x, s.scale)
	floats.Add(out, s.mean)
	return out, nil
}

// MinMaxScaler Min-Max 归一化
// 公式: x' = (x - min) / (max - min)
// 区间为 0 的列按 1 处理。
type MinMaxScaler struct {
	min   []float64
	rng   []float64
	names []string
}

// NewMinMaxScaler 创建 Min-Max 归一化器。
func NewMinMaxScaler(min, max []float64, names []string) (*MinMaxScaler, error) {
	if len(min) == 0 {
		return nil, fmt.Errorf("minmax scaler has no columns")
	}
	if len(min) != len(max) {
		return nil, fmt.Errorf("minmax scaler: %d mins vs %d maxes", len(min), len(max))
	}
	if len(names) > 0 && len(names) != len(min) {
		return nil, fmt.Errorf("minmax scaler: %d feature names vs %d columns", len(names), len(min))
	}
	rng := make([]float64, len(min))
	floats.SubTo(rng, max, min)
	for i, v := range rng {
		if v < 0 {
			return nil, fmt.Errorf("minmax scaler: column %d has max < min", i)
		}
		if v == 0 {
			rng[i] = 1
		}
	}
	return &MinMaxScaler{
		min:   append([]float64(nil), min...),
		rng:   rng,
		names: append([]string(nil), names...),
	}, nil
}

func (s *MinMaxScaler) Name() string           { return "minmax" }
func (s *MinMaxScaler) Dim() int               { return len(s.min) }
func (s *MinMaxScaler) FeatureNames() []string { return append([]string(nil), s.names...) }

// Transform 归一化特征向量
func (s *MinMaxScaler) Transform(x []float64) ([]float64, error) {
	if err := checkDim(s, x); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	floats.SubTo(out, x, s.min)
	floats.Div(out, s.rng)
	return out, nil
}

// Inverse 还原归一化前的特征向量
func (s *MinMaxScaler) Inverse(x []float64) ([]float64, error) {
	if err := checkDim(s, x); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	floats.MulTo(out, x, s.rng)
	floats.Add(out, s.min)
	return out, nil
}

func checkDim(s Scaler, x []float64) error {
	if len(x) != s.Dim() {
		return core.NewDomainError(core.ModuleScaler, core.ErrorCodeSchemaMismatch,
			fmt.Sprintf("scaler expects %d features, got %d", s.Dim(), len(x)))
	}
	return nil
}

var (
	_ Scaler = (*StandardScaler)(nil)
	_ Scaler = (*MinMaxScaler)(nil)
)
