package pipeline

import "docseq/pkg/contract"

// Record: DataInstance 的 JSONL 行形态。
type Record struct {
	Identifier   string         `json:"identifier"`
	InputPrefix  string         `json:"input_prefix"`
	Document     RecordDocument `json:"document"`
	OutputPrefix string         `json:"output_prefix"`
	Output       string         `json:"output"`
}

// RecordDocument: Document2D 的序列化形态；layout 按通道名给出逐 token 包围盒。
type RecordDocument struct {
	Tokens []string                   `json:"tokens"`
	Layout map[string][]contract.BBox `json:"layout"`
}

// NewRecord 拷贝实例字段；Document 为空时输出空 tokens/layout。
func NewRecord(inst contract.DataInstance) Record {
	r := Record{
		Identifier:   string(inst.Identifier),
		InputPrefix:  inst.InputPrefix,
		OutputPrefix: inst.OutputPrefix,
		Output:       inst.Output,
		Document:     RecordDocument{Tokens: []string{}, Layout: map[string][]contract.BBox{}},
	}
	if d := inst.Document; d != nil {
		r.Document.Tokens = d.Tokens()
		for _, name := range d.Channels() {
			ch, _ := d.Channel(name)
			r.Document.Layout[name] = ch
		}
	}
	return r
}
