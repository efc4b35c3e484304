package contract

import "context"

// AnnotationReader: 标注文件的流式读取。
// 约束：
// 1) 逐行回调，不整体载入；
// 2) 单行解析/校验失败以 ErrMalformedRecord 回调（doc 为零值），由调用方决定跳过或中止；
// 3) 文件不存在返回 ErrSplitNotFound；
// 4) 不在内部起并发。
type AnnotationReader interface {
	Iterate(ctx context.Context, path string, yield func(doc Document, err error) error) error
}
