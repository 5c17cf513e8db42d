package core

import "fmt"

// Task 是 Pipeline 的任务类型。
type Task string

const (
	TaskClassification Task = "classification" // churn 概率
	TaskRegression     Task = "regression"     // salary 估计
)

// 流失预测标签
const (
	LabelChurn    = "churn"
	LabelNotChurn = "not churn"
)

// ChurnResult 是分类结果。
// Probability 是对 Label 这一类的置信度：Label 为 "not churn" 时为 1 - 原始分数。
type ChurnResult struct {
	Label       string  `json:"label"`
	Churn       bool    `json:"churn"`
	Probability float64 `json:"probability"`
}

// SalaryResult 是回归结果（货币单位）。
type SalaryResult struct {
	Estimate float64 `json:"estimated_value"`
}

// Prediction 是一次推理的完整结果，Churn 与 Salary 二者有且仅有一个非空。
type Prediction struct {
	Task     Task          `json:"task"`
	Churn    *ChurnResult  `json:"churn,omitempty"`
	Salary   *SalaryResult `json:"salary,omitempty"`
	RawScore float64       `json:"raw_score"`

	// ModelVersion 来自 feature_meta.json
	ModelVersion string `json:"model_version,omitempty"`

	// UnknownCategories 记录走了零向量降级的类别字段
	UnknownCategories []string `json:"unknown_categories,omitempty"`
}

// Summary 返回面向用户的一行结果描述。
func (p *Prediction) Summary() string {
	switch {
	case p == nil:
		return ""
	case p.Churn != nil && p.Churn.Churn:
		return fmt.Sprintf("This customer is likely to churn (Probability: %.2f%%)", p.Churn.Probability*100)
	case p.Churn != nil:
		return fmt.Sprintf("This customer is unlikely to churn (Probability: %.2f%%)", p.Churn.Probability*100)
	case p.Salary != nil:
		return fmt.Sprintf("Predicted Estimated Salary: $%.2f", p.Salary.Estimate)
	default:
		return ""
	}
}
