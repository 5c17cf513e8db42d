package feature

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultMonitorSamples 每个字段默认保留的样本数
const DefaultMonitorSamples = 1024

// FieldStats 是单个输入字段的线上统计，用于观察输入分布是否偏离训练数据。
type FieldStats struct {
	Field        string `json:"field"`
	Count        int64  `json:"count"`
	MissingCount int64  `json:"missing_count"`
	// UnknownCount 类别字段走零向量降级的次数
	UnknownCount int64 `json:"unknown_count,omitempty"`

	// 以下仅对数值字段有效，基于最近的样本计算
	Samples int     `json:"samples,omitempty"`
	Mean    float64 `json:"mean,omitempty"`
	Std     float64 `json:"std,omitempty"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	P50     float64 `json:"p50,omitempty"`
	P95     float64 `json:"p95,omitempty"`

	LastSeen time.Time `json:"last_seen"`
}

// Monitor 是内存实现的输入监控，并发安全。
// 数值字段保留最近 maxSamples 个样本（环形缓冲），统计在 Snapshot 时计算。
type Monitor struct {
	mu         sync.Mutex
	maxSamples int
	fields     map[string]*fieldState
}

type fieldState struct {
	stats   FieldStats
	samples []float64
	next    int
}

// NewMonitor 创建监控；maxSamples <= 0 时使用默认值。
func NewMonitor(maxSamples int) *Monitor {
	if maxSamples <= 0 {
		maxSamples = DefaultMonitorSamples
	}
	return &Monitor{
		maxSamples: maxSamples,
		fields:     make(map[string]*fieldState),
	}
}

func (m *Monitor) state(field string) *fieldState {
	st, ok := m.fields[field]
	if !ok {
		st = &fieldState{stats: FieldStats{Field: field}}
		m.fields[field] = st
	}
	return st
}

// ObserveMissing 记录缺失字段
func (m *Monitor) ObserveMissing(fields []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, f := range fields {
		st := m.state(f)
		st.stats.MissingCount++
		st.stats.LastSeen = now
	}
}

// ObserveValue 记录数值字段的取值
func (m *Monitor) ObserveValue(field string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state(field)
	st.stats.Count++
	st.stats.LastSeen = time.Now()
	if len(st.samples) < m.maxSamples {
		st.samples = append(st.samples, v)
		return
	}
	st.samples[st.next] = v
	st.next = (st.next + 1) % m.maxSamples
}

// ObserveEncoding 记录类别字段的编码结果
func (m *Monitor) ObserveEncoding(enc Encoding) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state(enc.Field)
	st.stats.Count++
	st.stats.LastSeen = time.Now()
	if enc.Outcome == OutcomeUnknown {
		st.stats.UnknownCount++
	}
}

// ObserveAssembly 记录一次组装的全部字段
func (m *Monitor) ObserveAssembly(a *Assembler, asm *Assembly) {
	for _, enc := range asm.Encodings {
		m.ObserveEncoding(enc)
	}
	for i, field := range a.numeric {
		m.ObserveValue(field, asm.Vector[a.numIdx[i]])
	}
}

// Snapshot 返回按字段名排序的统计副本
func (m *Monitor) Snapshot() []FieldStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]FieldStats, 0, len(m.fields))
	for _, st := range m.fields {
		s := st.stats
		if n := len(st.samples); n > 0 {
			sorted := append([]float64(nil), st.samples...)
			sort.Float64s(sorted)
			s.Samples = n
			s.Mean, s.Std = stat.MeanStdDev(sorted, nil)
			if n == 1 {
				s.Std = 0
			}
			s.Min = floats.Min(sorted)
			s.Max = floats.Max(sorted)
			s.P50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
			s.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
