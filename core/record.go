package core

import "context"

// RawRecord 是调用方提交的单条原始记录：字段名 -> 值。
//
// 值可以是 string、int、float、bool、json.Number 或数字字符串，
// 具体转换在 feature 包中完成。字段集合由 Pipeline 的变体（churn / salary）决定，
// 多余字段会被忽略，缺失字段会返回 INVALID_INPUT。
type RawRecord map[string]any

// 原始记录字段名（与训练时的列名一致）
const (
	FieldCreditScore     = "CreditScore"
	FieldGeography       = "Geography"
	FieldGender          = "Gender"
	FieldAge             = "Age"
	FieldTenure          = "Tenure"
	FieldBalance         = "Balance"
	FieldNumOfProducts   = "NumOfProducts"
	FieldHasCrCard       = "HasCrCard"
	FieldIsActiveMember  = "IsActiveMember"
	FieldEstimatedSalary = "EstimatedSalary"
	FieldExited          = "Exited"
)

// ChurnFields 是 churn 变体的输入字段。
var ChurnFields = []string{
	FieldCreditScore, FieldGeography, FieldGender, FieldAge, FieldTenure,
	FieldBalance, FieldNumOfProducts, FieldHasCrCard, FieldIsActiveMember, FieldEstimatedSalary,
}

// SalaryFields 是 salary 变体的输入字段（包含 Exited，不包含 EstimatedSalary）。
var SalaryFields = []string{
	FieldCreditScore, FieldGeography, FieldGender, FieldAge, FieldTenure,
	FieldBalance, FieldNumOfProducts, FieldHasCrCard, FieldIsActiveMember, FieldExited,
}

// Get 读取字段值。
func (r RawRecord) Get(field string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[field]
	return v, ok && v != nil
}

// Missing 返回 fields 中记录缺失的字段（保持 fields 顺序）。
func (r RawRecord) Missing(fields []string) []string {
	var missing []string
	for _, f := range fields {
		if _, ok := r.Get(f); !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// RecordSource 按实体 ID 获取原始记录（例如从 Feast 在线存储）。
//
// 实现：
//   - feast.Source 实现此接口
type RecordSource interface {
	Name() string
	GetRecord(ctx context.Context, entityID string) (RawRecord, error)
}
