package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rushteam/churnkit/core"
)

// Source 训练产物的读取来源（本地目录、HTTP 接口、KV 存储等）。
// name 是产物文件名，如 "feature_meta.json"。
type Source interface {
	Name() string
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// ErrNotFound 表示产物文件不存在
var ErrNotFound = errors.New("artifact not found")

// DirSource 本地目录来源
type DirSource struct {
	Dir string
}

// NewDirSource 创建本地目录来源
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

func (s *DirSource) Name() string { return "dir:" + s.Dir }

// Fetch 读取 Dir 下的文件；name 不能跳出 Dir。
func (s *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("artifact name %q escapes %s", name, s.Dir)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, clean))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("读取产物文件失败: %w", err)
	}
	return data, nil
}

// HTTPSource HTTP 接口来源，按 BaseURL/<name> 下载产物。
type HTTPSource struct {
	BaseURL string
	client  *http.Client
}

// NewHTTPSource 创建 HTTP 来源
//
// 用法：
//
//	src := artifact.NewHTTPSource("http://models.example.com/churn/v3", 5*time.Second)
//	data, err := src.Fetch(ctx, "feature_meta.json")
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return NewHTTPSourceWithClient(baseURL, &http.Client{Timeout: timeout})
}

// NewHTTPSourceWithClient 使用自定义 HTTP 客户端创建来源
func NewHTTPSourceWithClient(baseURL string, client *http.Client) *HTTPSource {
	return &HTTPSource{BaseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *HTTPSource) Name() string { return "http:" + s.BaseURL }

func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", s.BaseURL, err)
	}
	u.Path = path.Join(u.Path, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP 请求失败: status=%d, body=%s", resp.StatusCode, string(body))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	return data, nil
}

// StoreSource 从 core.Store（如 Redis）读取产物，key 为 "<Prefix>/<name>"。
type StoreSource struct {
	Store  core.Store
	Prefix string
}

// NewStoreSource 创建 KV 存储来源
func NewStoreSource(store core.Store, prefix string) *StoreSource {
	return &StoreSource{Store: store, Prefix: strings.TrimRight(prefix, "/")}
}

func (s *StoreSource) Name() string { return s.Store.Name() + ":" + s.Prefix }

func (s *StoreSource) key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return s.Prefix + "/" + name
}

func (s *StoreSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	data, err := s.Store.Get(ctx, s.key(name))
	if core.IsStoreNotFound(err) {
		return nil, fmt.Errorf("%s: %w", s.key(name), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", s.key(name), err)
	}
	return data, nil
}

// Publish 把 src 中的产物文件写入 store，供 StoreSource 读取。
// 训练流水线产出目录后，用它把同一份产物分发到 Redis。
func Publish(ctx context.Context, src Source, dst *StoreSource, files Files) error {
	kvs := make(map[string][]byte)
	for _, name := range files.Names() {
		data, err := src.Fetch(ctx, name)
		if err != nil {
			return fmt.Errorf("publish %s: %w", name, err)
		}
		kvs[dst.key(name)] = data
	}
	return dst.Store.BatchSet(ctx, kvs)
}

var (
	_ Source = (*DirSource)(nil)
	_ Source = (*HTTPSource)(nil)
	_ Source = (*StoreSource)(nil)
)
