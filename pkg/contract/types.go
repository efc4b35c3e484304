package contract

import "fmt"

// DocumentID: 文档标识（标注记录中的 name 字段，跨同一文档的所有实例稳定）。
type DocumentID string

// Split: 数据切分。仅允许 train/dev/test 三个取值。
type Split string

const (
	Train Split = "train"
	Dev   Split = "dev"
	Test  Split = "test"
)

// Splits 返回固定顺序的全部切分。
func Splits() []Split { return []Split{Train, Dev, Test} }

// ParseSplit 解析切分名；未知名称返回 ErrConfiguration。
func ParseSplit(s string) (Split, error) {
	switch Split(s) {
	case Train, Dev, Test:
		return Split(s), nil
	default:
		return "", fmt.Errorf("unknown split %q: %w", s, ErrConfiguration)
	}
}

// Property: 规范化中间形态（不对外持久化）。
// 约束：
// - Values 保持源标注顺序，允许重复；
// - 由 Normalizer 逐文档构造，Builder 立即消费，不被保留。
type Property struct {
	DocumentID DocumentID
	// Name: 问题文本或字段名（表格族为模板渲染后的问题）。
	Name   string
	Values []string
}

// DataInstance: 输出单元。构造后不可修改。
// 约束：启用前缀时 InputPrefix == OutputPrefix + " " + 前缀分隔符 + " "；
// 未启用时两者相等（均为空）。
type DataInstance struct {
	Identifier   DocumentID
	InputPrefix  string
	Document     *Document2D // 同一文档的所有实例共享，只读
	OutputPrefix string
	Output       string
}

// Normalized: 单文档规范化结果（OCR 文档 + 有序属性列表）。
type Normalized struct {
	Document   *Document2D
	Properties []Property
}

// MergeProperties 将同名属性合并到首次出现的位置，候选值按源顺序拼接。
// 不修改入参。
func MergeProperties(props []Property) []Property {
	if len(props) < 2 {
		return props
	}
	out := make([]Property, 0, len(props))
	pos := make(map[string]int, len(props))
	for _, p := range props {
		if i, ok := pos[p.Name]; ok {
			merged := make([]string, 0, len(out[i].Values)+len(p.Values))
			merged = append(merged, out[i].Values...)
			merged = append(merged, p.Values...)
			out[i].Values = merged
			continue
		}
		pos[p.Name] = len(out)
		out = append(out, p)
	}
	return out
}
