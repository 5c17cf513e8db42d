package feature

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
)

// Outcome 标记一次类别编码的结果。
type Outcome int

const (
	// OutcomeKnown 类别在训练词表中，输出标准 one-hot / label 编码
	OutcomeKnown Outcome = iota
	// OutcomeUnknown 类别不在训练词表中（例如 UI 提供的 "Other"），输出等长全零向量
	OutcomeUnknown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeKnown:
		return "known"
	case OutcomeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Encoding 是单个类别字段的编码结果。
//
// 对 one-hot 字段，Values 长度等于词表大小；对 label 字段，长度为 1。
// Synthetic 为 true 时 Columns 是 <prefix>_0..n-1 形式的合成列名，
// 此时只能按位置而不能按列名与 schema 对齐。
type Encoding struct {
	Field     string
	Outcome   Outcome
	Values    []float64
	Columns   []string
	Synthetic bool
}

// OneHotField 是一个 one-hot 字段的训练期配置，对应 encoders.json 中的 onehot 项。
type OneHotField struct {
	Name       string   `json:"field" yaml:"field"`
	Categories []string `json:"categories" yaml:"categories"`
	// FeatureNames 训练时 get_feature_names_out 的输出（可选）
	FeatureNames []string `json:"feature_names,omitempty" yaml:"feature_names,omitempty"`
	// SyntheticPrefix 列名回退时使用的前缀（可选，Geography 默认为 geo）
	SyntheticPrefix string `json:"synthetic_prefix,omitempty" yaml:"synthetic_prefix,omitempty"`
}

// LabelField 是一个 label 编码字段的训练期配置。
// Classes 的下标即编码值（与 sklearn LabelEncoder 一致，classes 已排序）。
type LabelField struct {
	Name    string   `json:"field" yaml:"field"`
	Classes []string `json:"classes" yaml:"classes"`
}

type oneHotEntry struct {
	field     OneHotField
	index     map[string]int
	columns   []string
	synthetic bool
	namesErr  error
}

type labelEntry struct {
	field LabelField
	codes map[string]int
}

// CategoricalEncoder 按训练期词表对类别字段编码。
// 构造后只读，可被任意多个 goroutine 并发使用。
type CategoricalEncoder struct {
	onehot      map[string]*oneHotEntry
	onehotOrder []string
	label       map[string]*labelEntry
	labelOrder  []string
}

// NewCategoricalEncoder 创建类别编码器。
// 词表为空、类别重复、字段重复都视为产物损坏并返回错误；
// 列名解析失败不会返回错误，而是回退到合成列名。
func NewCategoricalEncoder(onehot []OneHotField, label []LabelField) (*CategoricalEncoder, error) {
	e := &CategoricalEncoder{
		onehot: make(map[string]*oneHotEntry, len(onehot)),
		label:  make(map[string]*labelEntry, len(label)),
	}

	for _, f := range onehot {
		if f.Name == "" {
			return nil, fmt.Errorf("onehot field without name")
		}
		if e.has(f.Name) {
			return nil, fmt.Errorf("field %q declared twice", f.Name)
		}
		if len(f.Categories) == 0 {
			return nil, fmt.Errorf("onehot field %q has empty vocabulary", f.Name)
		}
		entry := &oneHotEntry{
			field: OneHotField{
				Name:            f.Name,
				Categories:      append([]string(nil), f.Categories...),
				FeatureNames:    append([]string(nil), f.FeatureNames...),
				SyntheticPrefix: f.SyntheticPrefix,
			},
			index: make(map[string]int, len(f.Categories)),
		}
		for i, cat := range f.Categories {
			key := normalizeCategory(cat)
			if _, dup := entry.index[key]; dup {
				return nil, fmt.Errorf("onehot field %q has duplicate category %q", f.Name, cat)
			}
			entry.index[key] = i
		}
		names, err := featureNamesOut(entry.field)
		if err != nil {
			entry.columns = syntheticNames(entry.field)
			entry.synthetic = true
			entry.namesErr = err
		} else {
			entry.columns = names
		}
		e.onehot[f.Name] = entry
		e.onehotOrder = append(e.onehotOrder, f.Name)
	}

	for _, f := range label {
		if f.Name == "" {
			return nil, fmt.Errorf("label field without name")
		}
		if e.has(f.Name) {
			return nil, fmt.Errorf("field %q declared twice", f.Name)
		}
		if len(f.Classes) == 0 {
			return nil, fmt.Errorf("label field %q has no classes", f.Name)
		}
		entry := &labelEntry{
			field: LabelField{Name: f.Name, Classes: append([]string(nil), f.Classes...)},
			codes: make(map[string]int, len(f.Classes)),
		}
		for i, c := range f.Classes {
			key := normalizeCategory(c)
			if _, dup := entry.codes[key]; dup {
				return nil, fmt.Errorf("label field %q has duplicate class %q", f.Name, c)
			}
			entry.codes[key] = i
		}
		e.label[f.Name] = entry
		e.labelOrder = append(e.labelOrder, f.Name)
	}

	return e, nil
}

func (e *CategoricalEncoder) has(field string) bool {
	_, a := e.onehot[field]
	_, b := e.label[field]
	return a || b
}

// OneHotFields 返回 one-hot 字段名（声明顺序）。
func (e *CategoricalEncoder) OneHotFields() []string {
	return append([]string(nil), e.onehotOrder...)
}

// LabelFields 返回 label 编码字段名（声明顺序）。
func (e *CategoricalEncoder) LabelFields() []string {
	return append([]string(nil), e.labelOrder...)
}

// Fields 返回全部类别字段名。
func (e *CategoricalEncoder) Fields() []string {
	return append(e.OneHotFields(), e.labelOrder...)
}

// Vocabulary 返回 one-hot 字段的训练词表（副本）。
func (e *CategoricalEncoder) Vocabulary(field string) []string {
	entry, ok := e.onehot[field]
	if !ok {
		return nil
	}
	return append([]string(nil), entry.field.Categories...)
}

// Columns 返回 one-hot 字段展开后的列名（副本）。
func (e *CategoricalEncoder) Columns(field string) []string {
	entry, ok := e.onehot[field]
	if !ok {
		return nil
	}
	return append([]string(nil), entry.columns...)
}

// Synthetic 报告字段是否回退到了合成列名，以及回退原因。
func (e *CategoricalEncoder) Synthetic(field string) (bool, error) {
	entry, ok := e.onehot[field]
	if !ok {
		return false, nil
	}
	return entry.synthetic, entry.namesErr
}

// EncodeOneHot 对 one-hot 字段编码。
// 未知类别不是错误：返回 OutcomeUnknown 与等长全零向量。
func (e *CategoricalEncoder) EncodeOneHot(field string, value any) (Encoding, error) {
	entry, ok := e.onehot[field]
	if !ok {
		return Encoding{}, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidInput,
			fmt.Sprintf("%s is not a one-hot field", field))
	}
	s, ok := conv.ToString(value)
	if !ok {
		return Encoding{}, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidInput,
			fmt.Sprintf("%s: unsupported value type %T", field, value))
	}

	enc := Encoding{
		Field:     field,
		Outcome:   OutcomeUnknown,
		Values:    make([]float64, len(entry.field.Categories)),
		Columns:   append([]string(nil), entry.columns...),
		Synthetic: entry.synthetic,
	}
	if i, known := entry.index[normalizeCategory(s)]; known {
		enc.Values[i] = 1
		enc.Outcome = OutcomeKnown
	}
	return enc, nil
}

// EncodeLabel 对 label 字段编码。字段是封闭的选择项，未知类别返回 INVALID_INPUT。
func (e *CategoricalEncoder) EncodeLabel(field string, value any) (Encoding, error) {
	entry, ok := e.label[field]
	if !ok {
		return Encoding{}, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidInput,
			fmt.Sprintf("%s is not a label field", field))
	}
	s, ok := conv.ToString(value)
	if !ok {
		return Encoding{}, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidInput,
			fmt.Sprintf("%s: unsupported value type %T", field, value))
	}
	code, ok := entry.codes[normalizeCategory(s)]
	if !ok {
		return Encoding{}, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidInput,
			fmt.Sprintf("%s: %q is not one of %v", field, s, entry.field.Classes))
	}
	return Encoding{
		Field:   field,
		Outcome: OutcomeKnown,
		Values:  []float64{float64(code)},
		Columns: []string{field},
	}, nil
}

// Encode 依次编码记录中的全部类别字段（先 one-hot，后 label）。
func (e *CategoricalEncoder) Encode(record core.RawRecord) ([]Encoding, error) {
	out := make([]Encoding, 0, len(e.onehotOrder)+len(e.labelOrder))
	for _, field := range e.onehotOrder {
		v, ok := record.Get(field)
		if !ok {
			return nil, missingField(field)
		}
		enc, err := e.EncodeOneHot(field, v)
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
	}
	for _, field := range e.labelOrder {
		v, ok := record.Get(field)
		if !ok {
			return nil, missingField(field)
		}
		enc, err := e.EncodeLabel(field, v)
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
	}
	return out, nil
}

// Decode 由 one-hot 向量还原类别；全零或非法向量返回 false。
func (e *CategoricalEncoder) Decode(field string, values []float64) (string, bool) {
	entry, ok := e.onehot[field]
	if !ok || len(values) != len(entry.field.Categories) {
		return "", false
	}
	hot := -1
	for i, v := range values {
		switch v {
		case 0:
		case 1:
			if hot >= 0 {
				return "", false
			}
			hot = i
		default:
			return "", false
		}
	}
	if hot < 0 {
		return "", false
	}
	return entry.field.Categories[hot], true
}

// featureNamesOut 与 sklearn get_feature_names_out 一致：<Field>_<category>。
// 产物自带的 feature_names 优先；数量不符、空名或重名都视为列名解析失败。
func featureNamesOut(f OneHotField) ([]string, error) {
	names := f.FeatureNames
	if len(names) == 0 {
		names = make([]string, len(f.Categories))
		for i, cat := range f.Categories {
			if strings.TrimSpace(cat) == "" {
				return nil, fmt.Errorf("category %d of %s is blank", i, f.Name)
			}
			names[i] = f.Name + "_" + cat
		}
	}
	if len(names) != len(f.Categories) {
		return nil, fmt.Errorf("%s: %d feature names for %d categories", f.Name, len(names), len(f.Categories))
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, fmt.Errorf("%s: blank feature name", f.Name)
		}
		if seen[n] {
			return nil, fmt.Errorf("%s: duplicate feature name %q", f.Name, n)
		}
		seen[n] = true
	}
	return append([]string(nil), names...), nil
}

func syntheticNames(f OneHotField) []string {
	prefix := f.SyntheticPrefix
	if prefix == "" {
		prefix = defaultSyntheticPrefix(f.Name)
	}
	names := make([]string, len(f.Categories))
	for i := range names {
		names[i] = fmt.Sprintf("%s_%d", prefix, i)
	}
	return names
}

func defaultSyntheticPrefix(field string) string {
	p := strings.ToLower(field)
	if r := []rune(p); len(r) > 3 {
		p = string(r[:3])
	}
	return p
}

func normalizeCategory(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func missingField(field string) error {
	return core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidInput,
		fmt.Sprintf("missing field %s", field))
}
