package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/interpret"
	"github.com/rushteam/churnkit/model"
)

// validateNode 检查必填字段并执行校验规则
type validateNode struct {
	fields  []string
	rules   []Rule
	monitor *feature.Monitor
}

func (n *validateNode) Name() string { return "validate" }
func (n *validateNode) Kind() Kind   { return KindValidate }

func (n *validateNode) Process(ctx context.Context, st *State) error {
	if missing := st.Record.Missing(n.fields); len(missing) > 0 {
		if n.monitor != nil {
			n.monitor.ObserveMissing(missing)
		}
		return core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput,
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	for _, r := range n.rules {
		ok, err := r.program.Eval(st.Record)
		if err != nil {
			return core.WrapDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput,
				fmt.Sprintf("validation rule %s could not be evaluated", r.Name), err)
		}
		if !ok {
			return core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, r.message())
		}
	}
	return nil
}

// assembleNode 类别编码并组装特征向量
type assembleNode struct {
	assembler *feature.Assembler
	monitor   *feature.Monitor
}

func (n *assembleNode) Name() string { return "assembler" }
func (n *assembleNode) Kind() Kind   { return KindAssemble }

func (n *assembleNode) Process(ctx context.Context, st *State) error {
	a, err := n.assembler.Assemble(st.Record)
	if err != nil {
		return err
	}
	if n.monitor != nil {
		n.monitor.ObserveAssembly(n.assembler, a)
	}
	st.Assembly = a
	return nil
}

// scaleNode 缩放特征向量
type scaleNode struct {
	scaler feature.Scaler
}

func (n *scaleNode) Name() string { return n.scaler.Name() }
func (n *scaleNode) Kind() Kind   { return KindScale }

func (n *scaleNode) Process(ctx context.Context, st *State) error {
	scaled, err := n.scaler.Transform(st.Assembly.Vector)
	if err != nil {
		return err
	}
	st.Scaled = scaled
	return nil
}

// inferNode 单条推理
type inferNode struct {
	model model.Model
}

func (n *inferNode) Name() string { return n.model.Name() }
func (n *inferNode) Kind() Kind   { return KindInfer }

func (n *inferNode) Process(ctx context.Context, st *State) error {
	raw, err := n.model.Predict(ctx, st.Scaled)
	if err != nil {
		return err
	}
	st.Raw = raw
	return nil
}

// interpretNode 把原始分数解释为结果
type interpretNode struct {
	interp  interpret.Interpreter
	version string
}

func (n *interpretNode) Name() string { return string(n.interp.Task()) }
func (n *interpretNode) Kind() Kind   { return KindInterpret }

func (n *interpretNode) Process(ctx context.Context, st *State) error {
	p, err := n.interp.Interpret(st.Raw)
	if err != nil {
		return err
	}
	p.ModelVersion = n.version
	p.UnknownCategories = st.Assembly.UnknownFields()
	st.Prediction = p
	return nil
}
