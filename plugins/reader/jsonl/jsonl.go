package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"docseq/pkg/contract"
)

// Options 为 JSONL 标注 Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
	// MaxLineBytes: 单行上限。默认 64MiB（表格类文档单行可能很大）。
	MaxLineBytes int `json:"max_line_bytes"`
	// Validate: 是否按内置 schema 校验每行。默认 true；显式 false 关闭。
	Validate *bool `json:"validate,omitempty"`
}

// Reader 逐行读取 document.jsonl。
type Reader struct {
	bufSize  int
	maxLine  int
	validate bool
}

// New 创建 JSONL Reader。
func New(opts *Options) *Reader {
	r := &Reader{bufSize: 64 * 1024, maxLine: 64 * 1024 * 1024, validate: true}
	if opts != nil {
		if opts.BufSize > 0 {
			r.bufSize = opts.BufSize
		}
		if opts.MaxLineBytes > 0 {
			r.maxLine = opts.MaxLineBytes
		}
		if opts.Validate != nil {
			r.validate = *opts.Validate
		}
	}
	if r.maxLine < r.bufSize {
		r.maxLine = r.bufSize
	}
	return r
}

var _ contract.AnnotationReader = (*Reader)(nil)

// Iterate 按文件行序回调；空行跳过。
// 单行错误以 ErrMalformedRecord 交给 yield，yield 返回非 nil 即中止。
func (r *Reader) Iterate(ctx context.Context, path string, yield func(contract.Document, error) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, contract.ErrSplitNotFound)
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, r.bufSize), r.maxLine)
	line := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		doc, derr := r.decode(raw)
		if derr != nil {
			derr = fmt.Errorf("%s:%d: %v: %w", path, line, derr, contract.ErrMalformedRecord)
		}
		if err := yield(doc, derr); err != nil {
			return err
		}
	}
	return sc.Err()
}

func (r *Reader) decode(raw []byte) (contract.Document, error) {
	var doc contract.Document
	if r.validate {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return doc, err
		}
		if err := documentSchema.Validate(v); err != nil {
			return doc, err
		}
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return contract.Document{}, err
	}
	if doc.Name == "" {
		return contract.Document{}, errors.New("empty document name")
	}
	return doc, nil
}

var documentSchema = jsonschema.MustCompileString("document.schema.json", documentSchemaJSON)

// documentSchemaJSON: 标注记录的最小结构约束；未知字段放行。
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "annotations"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "language": {"type": "string"},
    "split": {"type": "string"},
    "annotations": {"type": "array", "items": {"$ref": "#/$defs/annotation"}},
    "metadata": {"type": "object"}
  },
  "$defs": {
    "annotation": {
      "type": "object",
      "required": ["key", "values"],
      "properties": {
        "key": {"type": "string"},
        "values": {"type": ["array", "null"], "items": {"$ref": "#/$defs/value"}},
        "metadata": {"type": "object"}
      }
    },
    "value": {
      "type": "object",
      "properties": {
        "value": {"type": "string"},
        "value_variants": {"type": ["array", "null"], "items": {"type": "string"}},
        "children": {"type": ["array", "null"], "items": {"$ref": "#/$defs/annotation"}}
      }
    }
  }
}`
