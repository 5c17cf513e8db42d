// Package churnkit 对银行客户做单条推理：流失概率（churn）与估计薪资（salary）。
//
// 设计要点：
//   - Pipeline 串联：原始记录 → 类别编码 → 按 Schema 组装 → Scaler → 模型 → 结果解释
//   - 训练产物（feature_meta / encoders / scaler / model）在启动时加载一次，之后只读
//   - 错误统一为 core.DomainError，调用要么得到完整结果，要么得到错误
package churnkit

import (
	"context"

	"go.uber.org/zap"

	_ "github.com/rushteam/churnkit/config/builders"
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
)

// 轻量 facade：便于直接 import "churnkit" 使用核心抽象。
type (
	Predictor  = pipeline.Predictor
	Pipeline   = pipeline.Pipeline
	Config     = pipeline.Config
	RawRecord  = core.RawRecord
	Prediction = core.Prediction
)

// Open 读取配置文件并加载全部 Pipeline。
func Open(ctx context.Context, configPath string, logger *zap.Logger) (*Predictor, error) {
	cfg, err := pipeline.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return pipeline.Build(ctx, cfg, logger)
}
