package feast

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NewClient 根据端点创建 gRPC 客户端。
//
// 参数：
//   - endpoint: "localhost:6565" 或 "grpc://localhost:6565"
//   - project: 项目名称
//
// 示例：
//
//	client, err := feast.NewClient("localhost:6565", "bank")
func NewClient(endpoint, project string, opts ...ClientOption) (Client, error) {
	host, port := parseEndpoint(endpoint)
	if host == "" {
		return nil, fmt.Errorf("invalid feast endpoint %q", endpoint)
	}
	return NewGrpcClient(host, port, project, opts...)
}

// parseEndpoint 解析端点地址，返回 host 和 port
func parseEndpoint(endpoint string) (string, int) {
	endpoint = strings.TrimPrefix(endpoint, "grpc://")

	parts := strings.Split(endpoint, ":")
	if len(parts) == 2 {
		port, err := strconv.Atoi(parts[1])
		if err == nil {
			return parts[0], port
		}
	}
	// 没有端口时使用默认值
	return endpoint, 0
}

// Config 是 Feast 记录来源的配置
type Config struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Project  string `yaml:"project" json:"project"`
	// EntityKey 实体键名，如 customer_id
	EntityKey string `yaml:"entity_key" json:"entity_key"`
	// Features 记录字段名 -> Feast 特征引用
	Features map[string]string `yaml:"features" json:"features"`
	// Timeout 请求超时（秒）
	Timeout int    `yaml:"timeout" json:"timeout"`
	Token   string `yaml:"token" json:"token"`
	TLS     bool   `yaml:"tls" json:"tls"`
}

// NewSourceFromConfig 根据配置创建 gRPC 客户端与记录来源
func NewSourceFromConfig(cfg Config) (*Source, error) {
	var opts []ClientOption
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(time.Duration(cfg.Timeout)*time.Second))
	}
	if cfg.Token != "" {
		opts = append(opts, WithAuth(&AuthConfig{Type: "static", Token: cfg.Token, EnableTLS: cfg.TLS}))
	}
	client, err := NewClient(cfg.Endpoint, cfg.Project, opts...)
	if err != nil {
		return nil, err
	}
	src, err := NewSource(client, cfg.EntityKey, cfg.Features)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return src, nil
}
