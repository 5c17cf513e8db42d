package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是编译好的 CEL 规则，可并发执行。
//
// 表达式语法（CEL 标准语法），record 为原始记录：
//   - 数值：record.CreditScore >= 300.0 && record.CreditScore <= 850.0
//   - 枚举：record.Gender in ["Male", "Female"]
//   - 存在性：has(record.Exited)
//
// 可转换为数字的值（int、json.Number、数字字符串、bool）统一以 double 暴露，
// 因此数值比较应使用 300.0 这样的浮点字面量。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，表达式必须返回布尔值。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return boolean, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// Expr 返回原始表达式
func (p *Program) Expr() string { return p.expr }

// Eval 对记录执行规则
func (p *Program) Eval(record core.RawRecord) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{"record": RecordInput(record)})
	if err != nil {
		// 访问不存在的 key 会报错，规则里应使用 has(record.X) 检查
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// RecordInput 构建 CEL 表达式的输入：可转换为数字的值统一为 float64，其余保持原样。
func RecordInput(record core.RawRecord) map[string]any {
	input := make(map[string]any, len(record))
	for k, v := range record {
		if v == nil {
			continue
		}
		if f, ok := conv.ToFloat64(v); ok {
			input[k] = f
			continue
		}
		input[k] = v
	}
	return input
}
