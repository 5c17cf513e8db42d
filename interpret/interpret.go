// Package interpret 把模型输出的原始标量转换为面向用户的结果。
package interpret

import (
	"fmt"
	"math"

	"github.com/rushteam/churnkit/core"
)

const (
	// DefaultThreshold 是流失分类的默认阈值，严格大于阈值判为 churn。
	DefaultThreshold = 0.5

	// DefaultSalaryScale 是薪资回归的默认还原系数。
	// 训练时目标列按该值缩放到 [0, 1] 附近，部署时可通过 salary_scale 覆盖。
	DefaultSalaryScale = 200000.0
)

// Interpreter 解释模型原始输出。
type Interpreter interface {
	Task() core.Task
	Interpret(raw float64) (*core.Prediction, error)
}

// Classifier 流失分类解释器。
type Classifier struct {
	Threshold float64
}

// NewClassifier 创建分类解释器；threshold 必须在 (0, 1) 内，0 表示使用默认值。
func NewClassifier(threshold float64) (*Classifier, error) {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold <= 0 || threshold >= 1 || math.IsNaN(threshold) {
		return nil, fmt.Errorf("threshold %v is outside (0, 1)", threshold)
	}
	return &Classifier{Threshold: threshold}, nil
}

func (c *Classifier) Task() core.Task { return core.TaskClassification }

// Interpret 原始分数大于阈值判为 churn，概率为原始分数；
// 否则判为 not churn，概率为 1 - 原始分数。
func (c *Classifier) Interpret(raw float64) (*core.Prediction, error) {
	if math.IsNaN(raw) || raw < 0 || raw > 1 {
		return nil, core.NewDomainError(core.ModuleInterpret, core.ErrorCodeTransformFailure,
			fmt.Sprintf("classification score %v is not a probability", raw))
	}
	threshold := c.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	result := &core.ChurnResult{Label: core.LabelNotChurn, Probability: 1 - raw}
	if raw > threshold {
		result = &core.ChurnResult{Label: core.LabelChurn, Churn: true, Probability: raw}
	}
	return &core.Prediction{
		Task:     core.TaskClassification,
		Churn:    result,
		RawScore: raw,
	}, nil
}

// Regressor 薪资回归解释器。
type Regressor struct {
	Scale float64
}

// NewRegressor 创建回归解释器；scale 为 0 时使用 DefaultSalaryScale。
func NewRegressor(scale float64) (*Regressor, error) {
	if scale == 0 {
		scale = DefaultSalaryScale
	}
	if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("salary scale %v must be positive", scale)
	}
	return &Regressor{Scale: scale}, nil
}

func (r *Regressor) Task() core.Task { return core.TaskRegression }

func (r *Regressor) Interpret(raw float64) (*core.Prediction, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return nil, core.NewDomainError(core.ModuleInterpret, core.ErrorCodeTransformFailure,
			fmt.Sprintf("regression output %v is not finite", raw))
	}
	scale := r.Scale
	if scale == 0 {
		scale = DefaultSalaryScale
	}
	return &core.Prediction{
		Task:     core.TaskRegression,
		Salary:   &core.SalaryResult{Estimate: raw * scale},
		RawScore: raw,
	}, nil
}

// New 按任务类型创建解释器。
func New(task core.Task, threshold, scale float64) (Interpreter, error) {
	switch task {
	case core.TaskClassification:
		return NewClassifier(threshold)
	case core.TaskRegression:
		return NewRegressor(scale)
	default:
		return nil, fmt.Errorf("unsupported task: %q", task)
	}
}

var (
	_ Interpreter = (*Classifier)(nil)
	_ Interpreter = (*Regressor)(nil)
)
