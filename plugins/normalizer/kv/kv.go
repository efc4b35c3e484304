package kv

import (
	"context"
	"fmt"

	"docseq/pkg/contract"
)

// Options: 键值抽取族选项。
type Options struct {
	// Keys: 可选白名单；为空表示保留全部字段。
	Keys []string `json:"keys,omitempty"`
}

// Normalizer: 键值抽取族（DeepForm / Kleister）。
type Normalizer struct {
	keys map[string]struct{}
}

// New 创建键值族 Normalizer。
func New(opts *Options) *Normalizer {
	n := &Normalizer{}
	if opts != nil && len(opts.Keys) > 0 {
		n.keys = make(map[string]struct{}, len(opts.Keys))
		for _, k := range opts.Keys {
			n.keys[k] = struct{}{}
		}
	}
	return n
}

var _ contract.Normalizer = (*Normalizer)(nil)

// Normalize: 每个字段名一个属性；同名条目合并，候选值为全部 value（源顺序）。
func (n *Normalizer) Normalize(ctx context.Context, doc contract.Document, ocr contract.OCRSource) (contract.Normalized, error) {
	if ocr == nil {
		return contract.Normalized{}, fmt.Errorf("kv: nil ocr source: %w", contract.ErrInvalidInput)
	}
	d, err := ocr.Load(ctx, doc.Name)
	if err != nil {
		return contract.Normalized{}, err
	}
	props := make([]contract.Property, 0, len(doc.Annotations))
	for _, a := range doc.Annotations {
		if !n.allowed(a.Key) {
			continue
		}
		props = append(props, Field(doc.Name, a))
	}
	return contract.Normalized{Document: d, Properties: contract.MergeProperties(props)}, nil
}

func (n *Normalizer) allowed(key string) bool {
	if n.keys == nil {
		return true
	}
	_, ok := n.keys[key]
	return ok
}

// Field 将单个字段标注转换为属性；表格族对无子标注的条目复用此逻辑。
func Field(id contract.DocumentID, a contract.Annotation) contract.Property {
	vals := make([]string, 0, len(a.Values))
	for _, v := range a.Values {
		vals = append(vals, v.Value)
	}
	return contract.Property{DocumentID: id, Name: a.Key, Values: vals}
}
