package core

import "context"

// MLService 是外部模型服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（service）实现
//   - 领域层不依赖基础设施层，model.RemoteModel 通过此接口调用远程推理
//
// 实现：
//   - service.TFServingClient 实现此接口
type MLService interface {
	// Predict 预测（本系统每次只提交一条实例）
	Predict(ctx context.Context, req *MLPredictRequest) (*MLPredictResponse, error)

	// Health 健康检查
	Health(ctx context.Context) error

	// Close 关闭连接
	Close(ctx context.Context) error
}

// MLPredictRequest 预测请求
type MLPredictRequest struct {
	// Instances 特征实例列表（每个实例是一个已缩放的特征向量）
	// 格式：[[f1, f2, f3, ...]]
	Instances [][]float64

	// ModelName 模型名称（可选，如果服务支持多模型）
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string

	// SignatureName 签名名称（可选，TF Serving 使用）
	SignatureName string
}

// MLPredictResponse 预测响应
type MLPredictResponse struct {
	// Predictions 预测结果列表（与请求实例一一对应）
	Predictions []float64

	// ModelVersion 模型版本（如果服务返回）
	ModelVersion string
}
