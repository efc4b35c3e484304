package qa

import (
	"context"
	"fmt"

	"docseq/pkg/contract"
)

// Options 目前为空；保留以便注册表统一按 JSON 严格解码。
type Options struct{}

// Normalizer: 问答族（DocVQA / InfographicsVQA / WikiTableQuestions）。
// 每个标注为一个问题；候选值依次为 value 及其 value_variants。
type Normalizer struct{}

// New 创建问答族 Normalizer。
func New(_ *Options) *Normalizer { return &Normalizer{} }

var _ contract.Normalizer = (*Normalizer)(nil)

// Normalize 先加载 OCR，失败时不返回任何属性。
func (n *Normalizer) Normalize(ctx context.Context, doc contract.Document, ocr contract.OCRSource) (contract.Normalized, error) {
	if ocr == nil {
		return contract.Normalized{}, fmt.Errorf("qa: nil ocr source: %w", contract.ErrInvalidInput)
	}
	d, err := ocr.Load(ctx, doc.Name)
	if err != nil {
		return contract.Normalized{}, err
	}
	props := make([]contract.Property, 0, len(doc.Annotations))
	for _, a := range doc.Annotations {
		var vals []string
		for _, v := range a.Values {
			vals = append(vals, v.Value)
			vals = append(vals, v.ValueVariants...)
		}
		props = append(props, contract.Property{DocumentID: doc.Name, Name: a.Key, Values: vals})
	}
	return contract.Normalized{Document: d, Properties: props}, nil
}
