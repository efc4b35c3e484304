package contract

// Document: 单条标注记录（document.jsonl 一行）。
// 字段名与基准数据发布格式保持一致（snake_case）。
type Document struct {
	Name        DocumentID     `json:"name"`
	Language    string         `json:"language,omitempty"`
	Split       string         `json:"split,omitempty"`
	Annotations []Annotation   `json:"annotations"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Annotation: 一个逻辑属性（问题/字段/陈述/表格）。
type Annotation struct {
	Key      string         `json:"key"`
	Values   []Value        `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Value: 候选答案；Children 仅表格族使用（每行一个 Value，子标注为列）。
type Value struct {
	Value         string       `json:"value"`
	ValueVariants []string     `json:"value_variants,omitempty"`
	Children      []Annotation `json:"children,omitempty"`
}
