package model

import (
	"context"
	"fmt"
	"math"

	"github.com/rushteam/churnkit/core"
)

// Model 是推理引擎的最小抽象：输入已缩放的特征向量，输出一个原始标量。
// 具体实现可以是本地模型（Dense/LR/ONNX）或远程服务（TF Serving）。
//
// 模型在加载后只读，Predict 可被并发调用；每次调用都是 batch size 为 1 的单条推理。
type Model interface {
	Name() string
	// InputDim 返回模型期望的输入维度，0 表示未知（例如远程服务）
	InputDim() int
	Predict(ctx context.Context, x []float64) (float64, error)
}

func checkInput(m Model, x []float64) error {
	if dim := m.InputDim(); dim > 0 && len(x) != dim {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeSchemaMismatch,
			fmt.Sprintf("model %s expects %d features, got %d", m.Name(), dim, len(x)))
	}
	return nil
}

func checkOutput(m Model, y float64) (float64, error) {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, core.NewDomainError(core.ModuleModel, core.ErrorCodeTransformFailure,
			fmt.Sprintf("model %s produced non-finite output %v", m.Name(), y))
	}
	return y, nil
}

// relu ReLU 激活函数。
func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// sigmoid Sigmoid 激活函数。
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func linear(x float64) float64 { return x }
