package contract

import "errors"

// 最小错误分类（用于上层策略判定）。
// 调用方一律通过 errors.Is 判定，实现方以 %w 包裹并附带文档/切分上下文。
var (
	// ErrConfiguration: 选项非法或互相矛盾（未知策略名、空分隔符等）。
	// 仅在构造/绑定期返回，不会在流式阶段出现。
	ErrConfiguration = errors.New("configuration error")
	// ErrShapeMismatch: Document2D 布局通道长度与 token 数不一致。
	// 视为结构性损坏：该文档失败，编排层默认中止。
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrMissingDocument: 标注引用的文档在 OCR 输出中不存在。可恢复：跳过并计数。
	ErrMissingDocument = errors.New("missing document")
	// ErrMalformedRecord: 单条标注记录无法解析或不符合 schema。可恢复：跳过并计数。
	ErrMalformedRecord = errors.New("malformed record")
	// ErrSplitNotFound: 绑定目录下不存在该切分的标注文件。
	ErrSplitNotFound = errors.New("split not found")
	// ErrNotBound: 在 ReadBenchmarkChallenge 之前迭代切分。
	ErrNotBound = errors.New("corpus not bound")
	// ErrPathInvalid: 标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvalidInput: 入参不满足前置条件。
	ErrInvalidInput = errors.New("invalid input")
)
