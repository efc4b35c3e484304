package contract

import (
	"fmt"
	"sort"
)

// ChannelTokens: token 自身的包围盒通道名。
const ChannelTokens = "tokens"

// BBox: 包围盒 [x1, y1, x2, y2]（坐标单位由 OCR 提供方决定，核心不解释）。
type BBox [4]float64

// Document2D: 文档 OCR token 序列与逐 token 的布局通道。
// 约束：
// - 每个通道长度 == len(tokens)；
// - 构造后不可变：访问器返回拷贝，内部切片不外泄。
type Document2D struct {
	tokens []string
	layout map[string][]BBox
}

// NewDocument2D 以 token 列表与布局通道构造 Document2D。
// 任一通道长度与 token 数不一致时返回 ErrShapeMismatch。
func NewDocument2D(tokens []string, layout map[string][]BBox) (*Document2D, error) {
	d := &Document2D{
		tokens: append([]string(nil), tokens...),
		layout: make(map[string][]BBox, len(layout)),
	}
	for name, ch := range layout {
		if len(ch) != len(tokens) {
			return nil, fmt.Errorf("channel %q has %d entries, want %d: %w", name, len(ch), len(tokens), ErrShapeMismatch)
		}
		d.layout[name] = append([]BBox(nil), ch...)
	}
	return d, nil
}

// Len 返回 token 数。
func (d *Document2D) Len() int {
	if d == nil {
		return 0
	}
	return len(d.tokens)
}

// Tokens 返回 token 序列拷贝。
func (d *Document2D) Tokens() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.tokens...)
}

// Token 返回第 i 个 token（越界 panic，与切片语义一致）。
func (d *Document2D) Token(i int) string { return d.tokens[i] }

// Channel 返回指定布局通道的拷贝；不存在时 ok=false。
func (d *Document2D) Channel(name string) ([]BBox, bool) {
	if d == nil {
		return nil, false
	}
	ch, ok := d.layout[name]
	if !ok {
		return nil, false
	}
	return append([]BBox(nil), ch...), true
}

// Channels 返回按字典序排列的通道名。
func (d *Document2D) Channels() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.layout))
	for n := range d.layout {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MapTokens 基于 fn 派生新的 Document2D（布局通道共享只读数据）。
// 原对象不变。
func (d *Document2D) MapTokens(fn func(string) string) *Document2D {
	if d == nil {
		return nil
	}
	out := &Document2D{tokens: make([]string, len(d.tokens)), layout: d.layout}
	for i, t := range d.tokens {
		out.tokens[i] = fn(t)
	}
	return out
}
