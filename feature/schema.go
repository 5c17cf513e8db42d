package feature

import (
	"fmt"
	"math"
	"strings"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
)

// Schema 是训练时约定的有序特征列名列表。
// FeatureVector 在进入 scaler 之前必须与 Schema 的列数和顺序完全一致。
type Schema struct {
	columns []string
	index   map[string]int
}

// NewSchema 创建 Schema；空列名或重复列名返回错误。
func NewSchema(columns []string) (*Schema, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("schema has no columns")
	}
	s := &Schema{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if strings.TrimSpace(c) == "" {
			return nil, fmt.Errorf("schema column %d is blank", i)
		}
		if _, dup := s.index[c]; dup {
			return nil, fmt.Errorf("schema column %q is duplicated", c)
		}
		s.index[c] = i
	}
	return s, nil
}

// Len 返回列数。
func (s *Schema) Len() int { return len(s.columns) }

// Columns 返回列名（副本）。
func (s *Schema) Columns() []string { return append([]string(nil), s.columns...) }

// Index 返回列所在位置。
func (s *Schema) Index(column string) (int, bool) {
	i, ok := s.index[column]
	return i, ok
}

// PrefixIndexes 返回以 prefix 开头的列位置（schema 顺序）。
func (s *Schema) PrefixIndexes(prefix string) []int {
	var idx []int
	for i, c := range s.columns {
		if strings.HasPrefix(c, prefix) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Equal 判断列名与顺序是否完全一致。
func (s *Schema) Equal(columns []string) bool {
	if len(columns) != len(s.columns) {
		return false
	}
	for i, c := range columns {
		if s.columns[i] != c {
			return false
		}
	}
	return true
}

// Assembly 是组装结果：与 Schema 对齐的特征向量以及各类别字段的编码结果。
type Assembly struct {
	Vector    []float64
	Encodings []Encoding
}

// UnknownFields 返回走了零向量降级的类别字段。
func (a *Assembly) UnknownFields() []string {
	var fields []string
	for _, enc := range a.Encodings {
		if enc.Outcome == OutcomeUnknown {
			fields = append(fields, enc.Field)
		}
	}
	return fields
}

// Assembler 把数值字段与类别编码合并成按 Schema 排列的特征向量。
//
// 对齐规则：
//   - 编码列按列名显式放入 Schema 对应位置，不依赖拼接顺序
//   - 合成列名的 one-hot 块按位置对齐到 Schema 中以 "<Field>_" 开头的列
//   - 其余 Schema 列即数值字段，从原始记录中按同名字段读取
type Assembler struct {
	schema  *Schema
	encoder *CategoricalEncoder

	// slots[field] 是该类别字段在向量中的位置（与 Encoding.Values 一一对应）
	slots   map[string][]int
	numeric []string
	numIdx  []int
}

// NewAssembler 创建组装器，并在构造时校验编码器与 Schema 能否对齐。
// 不能对齐返回 SCHEMA_MISMATCH。
func NewAssembler(schema *Schema, encoder *CategoricalEncoder) (*Assembler, error) {
	if schema == nil || encoder == nil {
		return nil, fmt.Errorf("assembler requires schema and encoder")
	}
	a := &Assembler{
		schema:  schema,
		encoder: encoder,
		slots:   make(map[string][]int),
	}
	owner := make([]string, schema.Len())

	claim := func(field string, positions []int) error {
		for _, pos := range positions {
			if owner[pos] != "" {
				return schemaMismatch(fmt.Sprintf("column %s claimed by both %s and %s",
					schema.columns[pos], owner[pos], field))
			}
			owner[pos] = field
		}
		a.slots[field] = positions
		return nil
	}

	for _, field := range encoder.OneHotFields() {
		var positions []int
		if synthetic, _ := encoder.Synthetic(field); synthetic {
			positions = schema.PrefixIndexes(field + "_")
			if n := len(encoder.Vocabulary(field)); len(positions) != n {
				return nil, schemaMismatch(fmt.Sprintf("%s encodes %d columns but schema has %d %s_* columns",
					field, n, len(positions), field))
			}
		} else {
			for _, col := range encoder.Columns(field) {
				pos, ok := schema.Index(col)
				if !ok {
					return nil, schemaMismatch(fmt.Sprintf("encoded column %s is not in schema", col))
				}
				positions = append(positions, pos)
			}
		}
		if err := claim(field, positions); err != nil {
			return nil, err
		}
	}

	for _, field := range encoder.LabelFields() {
		pos, ok := schema.Index(field)
		if !ok {
			return nil, schemaMismatch(fmt.Sprintf("label column %s is not in schema", field))
		}
		if err := claim(field, []int{pos}); err != nil {
			return nil, err
		}
	}

	onehot := encoder.OneHotFields()
	for pos, col := range schema.columns {
		if owner[pos] != "" {
			continue
		}
		for _, field := range onehot {
			if strings.HasPrefix(col, field+"_") {
				return nil, schemaMismatch(fmt.Sprintf("schema column %s has no matching %s category", col, field))
			}
		}
		a.numeric = append(a.numeric, col)
		a.numIdx = append(a.numIdx, pos)
	}
	return a, nil
}

// Schema 返回组装器使用的 Schema。
func (a *Assembler) Schema() *Schema { return a.schema }

// NumericFields 返回需要从原始记录直接读取的数值字段（schema 顺序）。
func (a *Assembler) NumericFields() []string { return append([]string(nil), a.numeric...) }

// RequiredFields 返回原始记录必须包含的全部字段。
func (a *Assembler) RequiredFields() []string {
	return append(a.encoder.Fields(), a.numeric...)
}

// Assemble 把原始记录转换为与 Schema 对齐的特征向量。纯函数，无副作用。
func (a *Assembler) Assemble(record core.RawRecord) (*Assembly, error) {
	encodings, err := a.encoder.Encode(record)
	if err != nil {
		return nil, err
	}

	vec := make([]float64, a.schema.Len())
	for _, enc := range encodings {
		positions := a.slots[enc.Field]
		if len(positions) != len(enc.Values) {
			return nil, schemaMismatch(fmt.Sprintf("%s produced %d values for %d schema columns",
				enc.Field, len(enc.Values), len(positions)))
		}
		for i, pos := range positions {
			vec[pos] = enc.Values[i]
		}
	}

	for i, field := range a.numeric {
		raw, ok := record.Get(field)
		if !ok {
			return nil, core.NewDomainError(core.ModuleAssembler, core.ErrorCodeInvalidInput,
				fmt.Sprintf("missing field %s", field))
		}
		f, ok := conv.ToFloat64(raw)
		if !ok {
			return nil, core.NewDomainError(core.ModuleAssembler, core.ErrorCodeInvalidInput,
				fmt.Sprintf("%s: %v is not numeric", field, raw))
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, core.NewDomainError(core.ModuleAssembler, core.ErrorCodeInvalidInput,
				fmt.Sprintf("%s: %v is not a finite number", field, raw))
		}
		vec[a.numIdx[i]] = f
	}

	return &Assembly{Vector: vec, Encodings: encodings}, nil
}

func schemaMismatch(msg string) error {
	return core.NewDomainError(core.ModuleAssembler, core.ErrorCodeSchemaMismatch, msg)
}
