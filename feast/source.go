package feast

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/rushteam/churnkit/core"
)

// Source 实现 core.RecordSource：按客户 ID 从 Feast 在线存储读取原始记录。
type Source struct {
	client    Client
	entityKey string
	// fields[i] 对应 refs[i]
	fields []string
	refs   []string
}

// NewSource 创建记录来源。features 为记录字段名到 Feast 特征引用的映射，
// 例如 {"CreditScore": "customer:credit_score"}。
func NewSource(client Client, entityKey string, features map[string]string) (*Source, error) {
	if client == nil {
		return nil, fmt.Errorf("feast client is required")
	}
	if entityKey == "" {
		return nil, fmt.Errorf("entity key is required")
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("feature mapping is required")
	}
	s := &Source{client: client, entityKey: entityKey}
	for field := range features {
		s.fields = append(s.fields, field)
	}
	sort.Strings(s.fields)
	for _, field := range s.fields {
		s.refs = append(s.refs, features[field])
	}
	return s, nil
}

func (s *Source) Name() string { return "feast" }

// GetRecord 读取单个客户的记录。entityID 是纯数字时按 int64 实体发送。
// 在线存储中缺失的特征不会出现在记录里，由 Pipeline 报告缺失字段。
func (s *Source) GetRecord(ctx context.Context, entityID string) (core.RawRecord, error) {
	if entityID == "" {
		return nil, core.NewDomainError(core.ModuleFeast, core.ErrorCodeInvalidInput, "entity id is required")
	}
	var entity any = entityID
	if n, err := strconv.ParseInt(entityID, 10, 64); err == nil {
		entity = n
	}

	resp, err := s.client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   s.refs,
		EntityRows: []map[string]any{{s.entityKey: entity}},
	})
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleFeast, core.ErrorCodeUnavailable, "feast lookup failed", err)
	}
	if len(resp.FeatureVectors) != 1 {
		return nil, fmt.Errorf("feast returned %d rows for one entity", len(resp.FeatureVectors))
	}

	values := resp.FeatureVectors[0].Values
	record := make(core.RawRecord, len(s.fields))
	for i, field := range s.fields {
		if v, ok := values[s.refs[i]]; ok && v != nil {
			record[field] = v
		}
	}
	if len(record) == 0 {
		return nil, core.NewDomainError(core.ModuleFeast, core.ErrorCodeNotFound,
			fmt.Sprintf("no features for %s=%s", s.entityKey, entityID))
	}
	return record, nil
}

// Close 关闭底层客户端
func (s *Source) Close() error {
	return s.client.Close()
}

var _ core.RecordSource = (*Source)(nil)
