package pipeline

import (
	"context"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
)

// Kind 用于标记 Node 所处阶段，方便观测与日志打点。
type Kind string

const (
	KindValidate  Kind = "validate"  // 校验阶段：必填字段与规则
	KindAssemble  Kind = "assemble"  // 组装阶段：类别编码并按 Schema 排列
	KindScale     Kind = "scale"     // 缩放阶段：套用训练时拟合的 scaler
	KindInfer     Kind = "infer"     // 推理阶段：单条前向计算
	KindInterpret Kind = "interpret" // 解释阶段：阈值或还原系数
)

// State 在一次推理调用内沿 Node 链传递，调用结束即丢弃。
type State struct {
	Record     core.RawRecord
	Assembly   *feature.Assembly
	Scaled     []float64
	Raw        float64
	Prediction *core.Prediction
}

// Node 是 Pipeline 的最小单元：读取 State 中上一步的产物，写入自己的产物。
type Node interface {
	Name() string
	Kind() Kind
	Process(ctx context.Context, st *State) error
}
