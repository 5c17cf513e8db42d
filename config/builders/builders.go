package builders

import (
	"fmt"
	"os"

	"github.com/rushteam/churnkit/artifact"
	"github.com/rushteam/churnkit/config"
	"github.com/rushteam/churnkit/model"
	"github.com/rushteam/churnkit/pkg/conv"
	"github.com/rushteam/churnkit/service"
)

func init() {
	config.Register("dense", BuildDenseModel)
	config.Register("lr", BuildLRModel)
	config.Register("onnx", BuildONNXModel, config.WithDefaultFile("model.onnx"))
	config.Register("tfserving", BuildTFServingModel, config.WithDefaultFile(artifact.NoModelFile))
}

func BuildDenseModel(cfg map[string]any, data []byte, columns []string) (model.Model, error) {
	m, err := model.ParseDenseModel(data)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func BuildLRModel(cfg map[string]any, data []byte, columns []string) (model.Model, error) {
	m, err := model.ParseLRModel(data)
	if err != nil {
		return nil, err
	}
	return m.Bind(columns)
}

// BuildONNXModel 的 lib_path 为空时读取环境变量 ONNXRUNTIME_LIB
func BuildONNXModel(cfg map[string]any, data []byte, columns []string) (model.Model, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("onnx model file is empty")
	}
	lib := conv.ConfigGet(cfg, "lib_path", os.Getenv("ONNXRUNTIME_LIB"))
	m, err := model.NewONNXModel(conv.ConfigGet(cfg, "name", "onnx"), data, lib)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// BuildTFServingModel 构建 TF Serving 远程模型，输入维度取 Schema 列数。
func BuildTFServingModel(cfg map[string]any, data []byte, columns []string) (model.Model, error) {
	sc := &service.ServiceConfig{
		Type:          service.ServiceTypeTFServing,
		Endpoint:      conv.ConfigGet(cfg, "endpoint", ""),
		ModelName:     conv.ConfigGet(cfg, "model_name", ""),
		ModelVersion:  conv.ConfigGet(cfg, "model_version", ""),
		SignatureName: conv.ConfigGet(cfg, "signature_name", ""),
		Timeout:       conv.ConfigGetFloat64(cfg, "timeout", 0),
	}
	if token := conv.ConfigGet(cfg, "bearer_token", ""); token != "" {
		sc.Auth = &service.AuthConfig{Type: "bearer", Token: token}
	}
	svc, err := service.NewMLService(sc)
	if err != nil {
		return nil, err
	}
	return model.NewRemoteModel("tfserving/"+sc.ModelName, svc, len(columns)), nil
}
