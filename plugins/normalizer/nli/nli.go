package nli

import (
	"context"
	"fmt"
	"strings"

	"docseq/pkg/contract"
)

// Options: 蕴含判断族选项。
type Options struct {
	// Labels: 可选标签映射（例如 {"1":"entailed","0":"refuted"}）；未命中时再按小写查找，仍未命中保持原值。
	Labels map[string]string `json:"labels,omitempty"`
}

// Normalizer: 蕴含/事实核查族（TabFact）。每条陈述一个属性，候选值为单个标签。
type Normalizer struct {
	labels map[string]string
}

// New 创建蕴含族 Normalizer。
func New(opts *Options) *Normalizer {
	n := &Normalizer{}
	if opts != nil && len(opts.Labels) > 0 {
		n.labels = make(map[string]string, len(opts.Labels))
		for k, v := range opts.Labels {
			n.labels[k] = v
		}
	}
	return n
}

var _ contract.Normalizer = (*Normalizer)(nil)

// Normalize 只取第一个 value 作为标签；无 value 的陈述产出空候选。
func (n *Normalizer) Normalize(ctx context.Context, doc contract.Document, ocr contract.OCRSource) (contract.Normalized, error) {
	if ocr == nil {
		return contract.Normalized{}, fmt.Errorf("nli: nil ocr source: %w", contract.ErrInvalidInput)
	}
	d, err := ocr.Load(ctx, doc.Name)
	if err != nil {
		return contract.Normalized{}, err
	}
	props := make([]contract.Property, 0, len(doc.Annotations))
	for _, a := range doc.Annotations {
		p := contract.Property{DocumentID: doc.Name, Name: a.Key}
		if len(a.Values) > 0 {
			label := a.Values[0].Value
			if m, ok := n.labels[label]; ok {
				label = m
			} else if m, ok := n.labels[strings.ToLower(label)]; ok {
				label = m
			}
			p.Values = []string{label}
		}
		props = append(props, p)
	}
	return contract.Normalized{Document: d, Properties: props}, nil
}
