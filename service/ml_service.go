package service

// ServiceType 服务类型
type ServiceType string

const (
	ServiceTypeTFServing ServiceType = "tf_serving" // TensorFlow Serving（REST）
)

// ServiceConfig 远程模型服务配置
type ServiceConfig struct {
	// Type 服务类型
	Type ServiceType `yaml:"type" json:"type"`

	// Endpoint 服务端点，如 "http://localhost:8501"
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// ModelName 模型名称
	ModelName string `yaml:"model_name" json:"model_name"`

	// ModelVersion 模型版本（为空则使用最新版本）
	ModelVersion string `yaml:"model_version" json:"model_version"`

	// SignatureName 签名名称（为空则使用 serving_default）
	SignatureName string `yaml:"signature_name" json:"signature_name"`

	// Timeout 超时时间（秒），可为小数
	Timeout float64 `yaml:"timeout" json:"timeout"`

	// Auth 认证信息（可选）
	Auth *AuthConfig `yaml:"auth" json:"auth"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	Type     string `yaml:"type" json:"type"` // "basic", "bearer", "api_key"
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	Token    string `yaml:"token" json:"token"`
	APIKey   string `yaml:"api_key" json:"api_key"`
}
