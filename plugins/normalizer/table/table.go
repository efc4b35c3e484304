// Package table 处理排行榜/表格族（PWC / AxCell）。
//
// 带 children 的标注视为一张表：每个 value 是一行，每个子标注是一列。
// 每一列产出一个属性，名称由列模板渲染，候选值为该列单元格（按行序）。
package table

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"docseq/pkg/contract"
	"docseq/plugins/normalizer/kv"
)

// DefaultColumnTemplate: 列属性名模板。
const DefaultColumnTemplate = "What are the {{.Key}} values for the {{.Column}} column?"

// Options: 表格族选项。
type Options struct {
	ColumnTemplate string `json:"column_template,omitempty"`
}

// Normalizer 为表格族实现；模板解析在构造期完成。
type Normalizer struct {
	tpl *template.Template
}

// New 解析列模板；模板非法返回 ErrConfiguration。
func New(opts *Options) (*Normalizer, error) {
	src := DefaultColumnTemplate
	if opts != nil && opts.ColumnTemplate != "" {
		src = opts.ColumnTemplate
	}
	tpl, err := template.New("column").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("table: column_template: %v: %w", err, contract.ErrConfiguration)
	}
	// 试渲染一次，尽早暴露引用未知字段的模板
	if err := tpl.Execute(new(bytes.Buffer), column{Key: "k", Column: "c"}); err != nil {
		return nil, fmt.Errorf("table: column_template: %v: %w", err, contract.ErrConfiguration)
	}
	return &Normalizer{tpl: tpl}, nil
}

type column struct {
	Key    string
	Column string
}

var _ contract.Normalizer = (*Normalizer)(nil)

// Normalize 按列聚合表格标注；无子标注的条目按键值处理。
func (n *Normalizer) Normalize(ctx context.Context, doc contract.Document, ocr contract.OCRSource) (contract.Normalized, error) {
	if ocr == nil {
		return contract.Normalized{}, fmt.Errorf("table: nil ocr source: %w", contract.ErrInvalidInput)
	}
	d, err := ocr.Load(ctx, doc.Name)
	if err != nil {
		return contract.Normalized{}, err
	}
	var props []contract.Property
	for _, a := range doc.Annotations {
		if !hasChildren(a) {
			props = append(props, kv.Field(doc.Name, a))
			continue
		}
		for _, row := range a.Values {
			for _, cell := range row.Children {
				name, err := n.name(a.Key, cell.Key)
				if err != nil {
					return contract.Normalized{}, err
				}
				p := kv.Field(doc.Name, cell)
				p.Name = name
				props = append(props, p)
			}
		}
	}
	return contract.Normalized{Document: d, Properties: contract.MergeProperties(props)}, nil
}

func (n *Normalizer) name(key, col string) (string, error) {
	var b bytes.Buffer
	if err := n.tpl.Execute(&b, column{Key: key, Column: col}); err != nil {
		return "", fmt.Errorf("table: render %q/%q: %w", key, col, err)
	}
	return b.String(), nil
}

func hasChildren(a contract.Annotation) bool {
	for _, v := range a.Values {
		if len(v.Children) > 0 {
			return true
		}
	}
	return false
}
