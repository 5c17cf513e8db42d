package feature

import (
	"encoding/json"
	"fmt"
)

// FeatureMetadata 特征元数据，对应 feature_meta.json
type FeatureMetadata struct {
	// FeatureColumns 特征列名列表（按顺序），即 Schema
	FeatureColumns []string `json:"feature_columns"`
	// FeatureCount 特征数量（可选，非 0 时必须等于 len(FeatureColumns)）
	FeatureCount int `json:"feature_count"`
	// LabelColumn 标签列名
	LabelColumn string `json:"label_column"`
	// Task classification / regression
	Task string `json:"task"`
	// ModelVersion 模型版本
	ModelVersion string `json:"model_version"`
	// CreatedAt 创建时间
	CreatedAt string `json:"created_at"`
}

// ParseFeatureMetadata 解析 feature_meta.json
func ParseFeatureMetadata(data []byte) (*FeatureMetadata, error) {
	var meta FeatureMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("解析特征元数据失败: %w", err)
	}
	if meta.FeatureCount != 0 && meta.FeatureCount != len(meta.FeatureColumns) {
		return nil, fmt.Errorf("feature_count=%d 与 feature_columns 数量 %d 不一致",
			meta.FeatureCount, len(meta.FeatureColumns))
	}
	return &meta, nil
}

// Schema 按 feature_columns 构建 Schema
func (m *FeatureMetadata) Schema() (*Schema, error) {
	return NewSchema(m.FeatureColumns)
}

// EncoderArtifact 对应 encoders.json
//
//	{
//	  "onehot": [{"field": "Geography", "categories": ["France", "Germany", "Spain"]}],
//	  "label":  [{"field": "Gender", "classes": ["Female", "Male"]}]
//	}
type EncoderArtifact struct {
	OneHot []OneHotField `json:"onehot"`
	Label  []LabelField  `json:"label"`
}

// ParseEncoder 解析 encoders.json 并创建 CategoricalEncoder
func ParseEncoder(data []byte) (*CategoricalEncoder, error) {
	var a EncoderArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("解析编码器失败: %w", err)
	}
	return NewCategoricalEncoder(a.OneHot, a.Label)
}

// ScalerArtifact 对应 scaler.json
//
//	standard: {"type": "standard", "feature_names": [...], "mean": [...], "scale": [...]}
//	minmax:   {"type": "minmax", "feature_names": [...], "min": [...], "max": [...]}
type ScalerArtifact struct {
	Type         string    `json:"type"`
	FeatureNames []string  `json:"feature_names,omitempty"`
	Mean         []float64 `json:"mean,omitempty"`
	Scale        []float64 `json:"scale,omitempty"`
	Min          []float64 `json:"min,omitempty"`
	Max          []float64 `json:"max,omitempty"`
}

// ParseScaler 解析 scaler.json；type 为空时按 standard 处理
func ParseScaler(data []byte) (Scaler, error) {
	var a ScalerArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("解析标准化器失败: %w", err)
	}
	switch a.Type {
	case "", "standard":
		return NewStandardScaler(a.Mean, a.Scale, a.FeatureNames)
	case "minmax":
		return NewMinMaxScaler(a.Min, a.Max, a.FeatureNames)
	default:
		return nil, fmt.Errorf("unsupported scaler type: %s", a.Type)
	}
}
