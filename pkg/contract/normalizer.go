package contract

import "context"

// Family: 数据集族标签（闭集，在绑定期一次性选定）。
type Family string

const (
	FamilyQA    Family = "qa"
	FamilyKV    Family = "kv"
	FamilyTable Family = "table"
	FamilyNLI   Family = "nli"
)

// Normalizer: 将某一数据集族的原生标注转换为有序 Property 序列。
// 约束：
//  1. 仅处理单个文档，不跨文档保留状态；
//  2. 属性顺序等于源标注的声明顺序；
//  3. 通过 ocr 读取该文档的 OCR 数据：缺失返回 ErrMissingDocument，形状错误返回 ErrShapeMismatch，
//     出错时不得返回任何 Property；
//  4. 纯计算 + 只读 I/O，无内部并发。
type Normalizer interface {
	Normalize(ctx context.Context, doc Document, ocr OCRSource) (Normalized, error)
}
