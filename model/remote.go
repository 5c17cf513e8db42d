package model

import (
	"context"
	"fmt"

	"github.com/rushteam/churnkit/core"
)

// RemoteModel 通过 core.MLService（如 TF Serving）进行推理。
// 每次请求只提交一条实例。
type RemoteModel struct {
	name    string
	service core.MLService
	dim     int
}

// NewRemoteModel 创建远程模型；dim 为 0 时不在本地校验输入维度。
func NewRemoteModel(name string, service core.MLService, dim int) *RemoteModel {
	if name == "" {
		name = "remote"
	}
	return &RemoteModel{name: name, service: service, dim: dim}
}

func (m *RemoteModel) Name() string  { return m.name }
func (m *RemoteModel) InputDim() int { return m.dim }

func (m *RemoteModel) Predict(ctx context.Context, x []float64) (float64, error) {
	if err := checkInput(m, x); err != nil {
		return 0, err
	}
	resp, err := m.service.Predict(ctx, &core.MLPredictRequest{
		Instances: [][]float64{append([]float64(nil), x...)},
	})
	if err != nil {
		return 0, fmt.Errorf("remote predict: %w", err)
	}
	if len(resp.Predictions) != 1 {
		return 0, fmt.Errorf("remote predict: expected 1 prediction, got %d", len(resp.Predictions))
	}
	return checkOutput(m, resp.Predictions[0])
}

// Health 检查远程模型服务是否可用
func (m *RemoteModel) Health(ctx context.Context) error {
	return m.service.Health(ctx)
}

// Close 释放与远程服务的连接
func (m *RemoteModel) Close() error {
	return m.service.Close(context.Background())
}

var _ Model = (*RemoteModel)(nil)
