// Package convert 将模型预测还原为与 document.jsonl 同构的标注文件，便于直接与参考答案比对。
//
// 预测为 JSONL，每行 {"doc_id", "label_name", "preds"}：
//   - doc_id 在首个 "__" 处截断（切片后缀，如 "doc__3"）；
//   - label_name 去掉末尾的 "="；
//   - preds 按值分隔符（默认 " | "）拆分并去空白；
//   - 同一文档内重复的 (label_name, preds) 只保留首次出现。
//
// 输出按参考文件的文档顺序逐行写出；参考中没有预测的文档输出空 annotations。
package convert

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"docseq/pkg/contract"
	"docseq/pkg/strategy"
)

// Prediction: 预测文件的一行。
type Prediction struct {
	DocID     string `json:"doc_id"`
	LabelName string `json:"label_name"`
	Preds     string `json:"preds"`
}

// Options: 转换选项。
type Options struct {
	// ValuesSeparator: 例如 "|"，实际拆分串为 " | "。
	ValuesSeparator string
	// MaxLineBytes: 预测单行上限；<=0 使用 16MiB。
	MaxLineBytes int
}

// Stats: 转换计数。
type Stats struct {
	Predictions int
	Duplicates  int
	Documents   int
	Annotations int
}

// Pair: 一条去重后的预测（属性名 + 原始预测串）。
type Pair struct{ Label, Preds string }

// ReadPredictions 按文档聚合预测；坏行返回 ErrMalformedRecord（含行号）。
func ReadPredictions(ctx context.Context, r io.Reader, opts Options) (map[contract.DocumentID][]Pair, Stats, error) {
	limit := opts.MaxLineBytes
	if limit <= 0 {
		limit = 16 * 1024 * 1024
	}
	var st Stats
	out := map[contract.DocumentID][]Pair{}
	seen := map[contract.DocumentID]map[Pair]bool{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), limit)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, st, err
		}
		b := sc.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		var p Prediction
		if err := json.Unmarshal(b, &p); err != nil {
			return nil, st, fmt.Errorf("predictions line %d: %v: %w", line, err, contract.ErrMalformedRecord)
		}
		st.Predictions++
		id := DocumentOf(p.DocID)
		k := Pair{p.LabelName, p.Preds}
		if seen[id] == nil {
			seen[id] = map[Pair]bool{}
		}
		if seen[id][k] {
			st.Duplicates++
			continue
		}
		seen[id][k] = true
		out[id] = append(out[id], k)
	}
	if err := sc.Err(); err != nil {
		return nil, st, fmt.Errorf("predictions: %w", err)
	}
	return out, st, nil
}

// DocumentOf 返回预测 doc_id 对应的文档标识（截断 "__" 之后的部分）。
func DocumentOf(docID string) contract.DocumentID {
	if i := strings.Index(docID, "__"); i >= 0 {
		docID = docID[:i]
	}
	return contract.DocumentID(docID)
}

// Annotation 构造单个属性的标注；空预测保留一个空值。
func Annotation(label, preds, sep string) contract.Annotation {
	vals := strategy.Split(preds, sep)
	if len(vals) == 0 {
		vals = []string{""}
	}
	a := contract.Annotation{Key: strings.TrimRight(label, "="), Values: make([]contract.Value, len(vals))}
	for i, v := range vals {
		a.Values[i] = contract.Value{Value: v}
	}
	return a
}

// Convert 读取预测与参考标注，向 w 写出转换后的 JSONL。
// reference 通过 AnnotationReader 迭代，参考文件中的坏行视为错误。
func Convert(ctx context.Context, predictions string, ref contract.AnnotationReader, reference string, w io.Writer, opts Options) (Stats, error) {
	f, err := os.Open(predictions)
	if err != nil {
		return Stats{}, fmt.Errorf("predictions: %w", err)
	}
	defer f.Close()
	data, st, err := ReadPredictions(ctx, f, opts)
	if err != nil {
		return st, err
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	err = ref.Iterate(ctx, reference, func(doc contract.Document, rerr error) error {
		if rerr != nil {
			return rerr
		}
		out := contract.Document{Name: doc.Name, Annotations: []contract.Annotation{}}
		for _, p := range data[doc.Name] {
			out.Annotations = append(out.Annotations, Annotation(p.Label, p.Preds, opts.ValuesSeparator))
		}
		st.Documents++
		st.Annotations += len(out.Annotations)
		return enc.Encode(out)
	})
	if err != nil {
		return st, fmt.Errorf("reference: %w", err)
	}
	return st, bw.Flush()
}
