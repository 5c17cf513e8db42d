package pipeline

import (
	"fmt"

	"github.com/rushteam/churnkit/pkg/dsl"
)

// RuleConfig 是一条输入校验规则（CEL 表达式，变量 record 为原始记录）
type RuleConfig struct {
	Name    string `yaml:"name" json:"name"`
	Expr    string `yaml:"expr" json:"expr"`
	Message string `yaml:"message" json:"message"`
}

// Rule 是编译后的校验规则
type Rule struct {
	Name    string
	Expr    string
	Message string
	program *dsl.Program
}

func (r Rule) message() string {
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("validation rule %s failed: %s", r.Name, r.Expr)
}

// CompileRules 编译全部规则，任一规则无法编译即返回错误
func CompileRules(configs []RuleConfig) ([]Rule, error) {
	rules := make([]Rule, 0, len(configs))
	for i, c := range configs {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("rule_%d", i)
		}
		p, err := dsl.Compile(c.Expr)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", name, err)
		}
		rules = append(rules, Rule{Name: name, Expr: c.Expr, Message: c.Message, program: p})
	}
	return rules, nil
}
