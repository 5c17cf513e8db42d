package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DenseLayer 是 Keras Dense 层导出的参数。
// Kernel 形状为 [输入维度][Units]，与 Keras get_weights()[0] 一致。
type DenseLayer struct {
	Units      int         `json:"units"`
	Activation string      `json:"activation"` // relu / sigmoid / tanh / linear
	Kernel     [][]float64 `json:"kernel"`
	Bias       []float64   `json:"bias"`
}

// DenseModel 是 Keras Sequential 全连接网络的本地推理实现（Deep Neural Network）。
//
// 工程特征：
//   - 实时性：好（本地推理，无网络开销）
//   - 计算复杂度：低（两三层全连接，gonum 矩阵乘）
//   - 可解释性：弱
//
// 最后一层必须只有 1 个单元，输出即原始标量（分类模型为 sigmoid 概率）。
type DenseModel struct {
	name   string
	input  int
	layers []denseLayer
}

type denseLayer struct {
	weights *mat.Dense // units × in
	bias    *mat.VecDense
	act     func(float64) float64
}

// NewDenseModel 根据层参数创建 DNN 模型，并校验各层形状首尾相接。
func NewDenseModel(name string, layers []DenseLayer) (*DenseModel, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("dense model has no layers")
	}
	if name == "" {
		name = "dense"
	}
	m := &DenseModel{name: name, input: len(layers[0].Kernel)}

	in := m.input
	for i, l := range layers {
		if len(l.Kernel) != in || in == 0 {
			return nil, fmt.Errorf("layer %d: kernel has %d rows, want %d", i, len(l.Kernel), in)
		}
		if l.Units <= 0 || len(l.Bias) != l.Units {
			return nil, fmt.Errorf("layer %d: %d units with %d biases", i, l.Units, len(l.Bias))
		}
		act, err := activation(l.Activation)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}

		w := mat.NewDense(l.Units, in, nil)
		for k, row := range l.Kernel {
			if len(row) != l.Units {
				return nil, fmt.Errorf("layer %d: kernel row %d has %d columns, want %d", i, k, len(row), l.Units)
			}
			for j, v := range row {
				w.Set(j, k, v)
			}
		}
		m.layers = append(m.layers, denseLayer{
			weights: w,
			bias:    mat.NewVecDense(l.Units, append([]float64(nil), l.Bias...)),
			act:     act,
		})
		in = l.Units
	}
	if in != 1 {
		return nil, fmt.Errorf("output layer has %d units, want 1", in)
	}
	return m, nil
}

// denseArtifact 对应 model.json（type=dense）
type denseArtifact struct {
	Type   string       `json:"type"`
	Name   string       `json:"name"`
	Layers []DenseLayer `json:"layers"`
}

// ParseDenseModel 从 model.json 内容创建 DNN 模型
func ParseDenseModel(data []byte) (*DenseModel, error) {
	var a denseArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode dense model: %w", err)
	}
	if a.Type != "" && a.Type != "dense" {
		return nil, fmt.Errorf("model type %q is not dense", a.Type)
	}
	return NewDenseModel(a.Name, a.Layers)
}

func (m *DenseModel) Name() string  { return m.name }
func (m *DenseModel) InputDim() int { return m.input }

// Predict 前向传播
func (m *DenseModel) Predict(ctx context.Context, x []float64) (float64, error) {
	if err := checkInput(m, x); err != nil {
		return 0, err
	}

	cur := mat.NewVecDense(len(x), append([]float64(nil), x...))
	for _, l := range m.layers {
		units, _ := l.weights.Dims()
		next := mat.NewVecDense(units, nil)
		next.MulVec(l.weights, cur)
		next.AddVec(next, l.bias)
		for j := 0; j < units; j++ {
			next.SetVec(j, l.act(next.AtVec(j)))
		}
		cur = next
	}
	return checkOutput(m, cur.AtVec(0))
}

func activation(name string) (func(float64) float64, error) {
	switch name {
	case "relu":
		return relu, nil
	case "sigmoid":
		return sigmoid, nil
	case "tanh":
		return math.Tanh, nil
	case "", "linear":
		return linear, nil
	default:
		return nil, fmt.Errorf("unsupported activation %q", name)
	}
}

var _ Model = (*DenseModel)(nil)
