package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/churnkit/artifact"
	registry "github.com/rushteam/churnkit/config"
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feast"
	"github.com/rushteam/churnkit/interpret"
	"github.com/rushteam/churnkit/pkg/logging"
	"github.com/rushteam/churnkit/store"
)

// Pipeline 名称
const (
	NameChurn  = "churn"
	NameSalary = "salary"
)

// 产物来源类型
const (
	SourceDir   = "dir"
	SourceHTTP  = "http"
	SourceRedis = "redis"
)

// Config 是应用配置（支持 YAML/JSON）。
type Config struct {
	Log       logging.Config             `yaml:"log" json:"log"`
	Server    ServerConfig               `yaml:"server" json:"server"`
	Redis     *store.RedisConfig         `yaml:"redis" json:"redis"`
	Feast     *feast.Config              `yaml:"feast" json:"feast"`
	Pipelines map[string]*PipelineConfig `yaml:"pipelines" json:"pipelines"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
	// Mode gin 运行模式：debug / release / test
	Mode string `yaml:"mode" json:"mode"`
	// ReadTimeout / WriteTimeout 单位秒
	ReadTimeout  int `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout" json:"write_timeout"`
}

// PipelineConfig 单个 Pipeline 的配置。
type PipelineConfig struct {
	Task      core.Task       `yaml:"task" json:"task"`
	Artifacts ArtifactsConfig `yaml:"artifacts" json:"artifacts"`
	Model     ModelConfig     `yaml:"model" json:"model"`
	// Threshold 分类阈值，默认 0.5
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// SalaryScale 回归还原系数，默认 200000
	SalaryScale float64 `yaml:"salary_scale" json:"salary_scale"`
	// CacheSize 结果缓存条数，0 表示不缓存
	CacheSize int `yaml:"cache_size" json:"cache_size"`
	// MonitorSamples 输入监控每个字段保留的样本数，0 表示不监控
	MonitorSamples int          `yaml:"monitor_samples" json:"monitor_samples"`
	Validation     []RuleConfig `yaml:"validation" json:"validation"`
}

// ArtifactsConfig 产物来源配置
type ArtifactsConfig struct {
	// Source dir / http / redis
	Source string `yaml:"source" json:"source"`
	// Location 目录、URL 前缀或 Redis key 前缀
	Location string         `yaml:"location" json:"location"`
	Files    artifact.Files `yaml:"files" json:"files"`
	// Timeout HTTP 来源超时（秒）
	Timeout int `yaml:"timeout" json:"timeout"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	Type   string         `yaml:"type" json:"type"` // dense / lr / onnx / tfserving
	Config map[string]any `yaml:"config" json:"config"`
}

// LoadConfig 按扩展名加载配置文件（.json 使用 JSON，其余按 YAML），并补全默认值、校验。
// 文件内容中的 ${VAR} 会被替换为环境变量。
func LoadConfig(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		cfg, err = LoadFromJSON(path)
	} else {
		cfg, err = LoadFromYAML(path)
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromYAML 从 YAML 文件加载配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults 补全默认值
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	for name, pc := range c.Pipelines {
		if pc == nil {
			continue
		}
		if pc.Task == "" {
			switch name {
			case NameChurn:
				pc.Task = core.TaskClassification
			case NameSalary:
				pc.Task = core.TaskRegression
			}
		}
		if pc.Artifacts.Source == "" {
			pc.Artifacts.Source = SourceDir
		}
		if pc.Model.Type == "" {
			pc.Model.Type = "dense"
		}
		if pc.Task == core.TaskClassification && pc.Threshold == 0 {
			pc.Threshold = interpret.DefaultThreshold
		}
		if pc.Task == core.TaskRegression && pc.SalaryScale == 0 {
			pc.SalaryScale = interpret.DefaultSalaryScale
		}
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if len(c.Pipelines) == 0 {
		return fmt.Errorf("no pipelines configured")
	}
	for name, pc := range c.Pipelines {
		if pc == nil {
			return fmt.Errorf("pipeline %s: empty config", name)
		}
		if err := pc.validate(c); err != nil {
			return fmt.Errorf("pipeline %s: %w", name, err)
		}
	}
	if c.Feast != nil && c.Feast.Endpoint != "" {
		if c.Feast.EntityKey == "" || len(c.Feast.Features) == 0 {
			return fmt.Errorf("feast: entity_key and features are required")
		}
	}
	return nil
}

func (pc *PipelineConfig) validate(c *Config) error {
	switch pc.Task {
	case core.TaskClassification:
		if pc.Threshold <= 0 || pc.Threshold >= 1 {
			return fmt.Errorf("threshold %v is outside (0, 1)", pc.Threshold)
		}
	case core.TaskRegression:
		if pc.SalaryScale <= 0 {
			return fmt.Errorf("salary_scale must be positive, got %v", pc.SalaryScale)
		}
	default:
		return fmt.Errorf("unknown task %q", pc.Task)
	}

	switch pc.Artifacts.Source {
	case SourceDir, SourceHTTP:
	case SourceRedis:
		if c.Redis == nil || c.Redis.Addr == "" {
			return fmt.Errorf("artifact source redis requires redis.addr")
		}
	default:
		return fmt.Errorf("unknown artifact source %q", pc.Artifacts.Source)
	}
	if pc.Artifacts.Location == "" && pc.Artifacts.Source != SourceRedis {
		return fmt.Errorf("artifacts.location is required")
	}
	if pc.CacheSize < 0 || pc.MonitorSamples < 0 {
		return fmt.Errorf("cache_size and monitor_samples must not be negative")
	}
	if err := registry.ValidateModelType(pc.Model.Type); err != nil {
		return err
	}
	if _, err := CompileRules(pc.Validation); err != nil {
		return err
	}
	return nil
}
