package contract

import (
	"context"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// OCRSource: OCR 提供方选择器解析后的只读数据源。
// 约束：
// 1) 以文档标识按需加载，不预读；
// 2) 文档不存在返回 ErrMissingDocument（%w 包裹）；
// 3) 数据形状不一致返回 ErrShapeMismatch；
// 4) 同步实现，无内部并发；多次加载结果一致；允许多个切分流并发调用。
type OCRSource interface {
	Load(ctx context.Context, id DocumentID) (*Document2D, error)
}

// CommonFormat: OCR 通用格式（tokens + positions + 可选结构层）。
type CommonFormat struct {
	Tokens     []string             `json:"tokens"`
	Positions  []BBox               `json:"positions"`
	Structures map[string]Structure `json:"structures,omitempty"`
}

// Structure: 结构层（行/页等）。StructureValue 为左闭右开的 token 区间。
type Structure struct {
	StructureValue [][2]int `json:"structure_value"`
	Positions      []BBox   `json:"positions"`
}

// Document2D 将通用格式转换为 Document2D：
// - token 统一为 NFC；
// - "tokens" 通道为 token 包围盒；
// - 每个结构层展开为逐 token 通道（token 取所属结构元素的包围盒，未覆盖者为零值）。
func (cf CommonFormat) Document2D() (*Document2D, error) {
	tokens := make([]string, len(cf.Tokens))
	for i, t := range cf.Tokens {
		tokens[i] = norm.NFC.String(t)
	}
	layout := map[string][]BBox{ChannelTokens: cf.Positions}
	for name, st := range cf.Structures {
		if name == ChannelTokens {
			return nil, fmt.Errorf("structure %q shadows token channel: %w", name, ErrShapeMismatch)
		}
		if len(st.StructureValue) != len(st.Positions) {
			return nil, fmt.Errorf("structure %q: %d ranges, %d positions: %w", name, len(st.StructureValue), len(st.Positions), ErrShapeMismatch)
		}
		ch := make([]BBox, len(tokens))
		for k, rg := range st.StructureValue {
			from, to := rg[0], rg[1]
			if from < 0 || to > len(tokens) || from > to {
				return nil, fmt.Errorf("structure %q range [%d,%d) outside %d tokens: %w", name, from, to, len(tokens), ErrShapeMismatch)
			}
			for i := from; i < to; i++ {
				ch[i] = st.Positions[k]
			}
		}
		layout[name] = ch
	}
	return NewDocument2D(tokens, layout)
}
