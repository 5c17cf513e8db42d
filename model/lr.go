package model

import (
	"context"
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// LRModel 实现了逻辑回归 (Logistic Regression) 模型。
//
// 预测原理：
// 1. 线性加权求和: z = Bias + sum(Weight_i * Feature_i)
// 2. Sigmoid 变换: P = 1 / (1 + exp(-z))
//
// 权重按特征名保存，需要先通过 Bind 绑定到 schema 的列顺序。
type LRModel struct {
	Bias    float64            // 偏置项 (Bias / Intercept)
	Weights map[string]float64 // 特征权重 (Weights / Coefficients)

	columns []string
	coef    []float64
}

// ParseLRModel 从 model.json 内容（type=lr）创建逻辑回归模型
func ParseLRModel(data []byte) (*LRModel, error) {
	var raw struct {
		Type    string             `json:"type"`
		Bias    float64            `json:"bias"`
		Weights map[string]float64 `json:"weights"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode lr model: %w", err)
	}
	if raw.Type != "" && raw.Type != "lr" {
		return nil, fmt.Errorf("model type %q is not lr", raw.Type)
	}
	if len(raw.Weights) == 0 {
		return nil, fmt.Errorf("lr model has no weights")
	}
	return &LRModel{Bias: raw.Bias, Weights: raw.Weights}, nil
}

// Bind 按列顺序展开权重，返回新的模型。
// schema 中没有权重的列按 0 处理；权重引用了 schema 之外的列视为产物不一致。
func (m *LRModel) Bind(columns []string) (*LRModel, error) {
	index := make(map[string]bool, len(columns))
	for _, c := range columns {
		index[c] = true
	}
	for name := range m.Weights {
		if !index[name] {
			return nil, fmt.Errorf("lr weight %q does not match any feature column", name)
		}
	}
	coef := make([]float64, len(columns))
	for i, c := range columns {
		coef[i] = m.Weights[c]
	}
	return &LRModel{
		Bias:    m.Bias,
		Weights: m.Weights,
		columns: append([]string(nil), columns...),
		coef:    coef,
	}, nil
}

func (m *LRModel) Name() string  { return "lr" }
func (m *LRModel) InputDim() int { return len(m.coef) }

func (m *LRModel) Predict(ctx context.Context, x []float64) (float64, error) {
	if m.coef == nil {
		return 0, fmt.Errorf("lr model is not bound to feature columns")
	}
	if err := checkInput(m, x); err != nil {
		return 0, err
	}
	return checkOutput(m, sigmoid(m.Bias+floats.Dot(m.coef, x)))
}

var _ Model = (*LRModel)(nil)
