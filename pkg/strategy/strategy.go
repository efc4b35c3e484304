package strategy

import (
	"fmt"
	"strings"

	"docseq/pkg/contract"
)

// Strategy: 候选答案合并规则（闭集）。
type Strategy int

const (
	// FirstItem: 取第一个候选值，训练集常用。
	FirstItem Strategy = iota + 1
	// Concat: 去空白、保序去重后以值分隔符拼接，评测集常用。
	Concat
)

// DefaultValuesSeparator: 值分隔符默认字符（拼接时两侧各补一个空格）。
const DefaultValuesSeparator = "|"

var names = map[Strategy]string{
	FirstItem: "first_item",
	Concat:    "concat",
}

func (s Strategy) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Parse 解析策略名；未知名称返回 ErrConfiguration。
func Parse(name string) (Strategy, error) {
	switch strings.TrimSpace(name) {
	case "first_item":
		return FirstItem, nil
	case "concat":
		return Concat, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q: %w", name, contract.ErrConfiguration)
	}
}

// MarshalText 实现 encoding.TextMarshaler（配置序列化使用策略名）。
func (s Strategy) MarshalText() ([]byte, error) {
	n, ok := names[s]
	if !ok {
		return nil, fmt.Errorf("marshal %s: %w", s, contract.ErrConfiguration)
	}
	return []byte(n), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (s *Strategy) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Combine 按策略把候选值合并为单个输出串。空输入返回空串，从不报错。
// sep 为值分隔符字符（例如 "|"），拼接时实际使用 " " + sep + " "。
func (s Strategy) Combine(values []string, sep string) string {
	switch s {
	case FirstItem:
		return FirstItemOf(values)
	case Concat:
		return ConcatOf(values, sep)
	default:
		return ""
	}
}

// FirstItemOf 返回 values[0]；空输入返回空串。
func FirstItemOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Distinct 对每个值去首尾空白后保序去重，丢弃空值。
func Distinct(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ConcatOf 保序去重后以 " sep " 拼接。
func ConcatOf(values []string, sep string) string {
	return strings.Join(Distinct(values), Joiner(sep))
}

// Split 将 Concat 的结果拆回候选列表（评测侧解析使用）。
func Split(joined, sep string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, Joiner(sep))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// Joiner 返回实际使用的拼接串：分隔符去空白后两侧各补一个空格。
func Joiner(sep string) string {
	sep = strings.TrimSpace(sep)
	if sep == "" {
		sep = DefaultValuesSeparator
	}
	return " " + sep + " "
}
