// Package dir 从 <dataset>/ocr/<provider>/<doc_id>.json 按需加载 OCR 通用格式。
package dir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"docseq/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// Ext: 文件扩展名，默认 ".json"。
	Ext string `json:"ext,omitempty"`
}

// Source 为无状态实现，可并发调用。
type Source struct {
	root string
	ext  string
}

// New 绑定提供方目录；目录不存在返回 ErrConfiguration。
func New(dataset, provider string, opts *Options) (*Source, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" || strings.ContainsAny(provider, `/\`) || provider == ".." {
		return nil, fmt.Errorf("ocr provider %q: %w", provider, contract.ErrConfiguration)
	}
	root := filepath.Join(dataset, "ocr", provider)
	st, err := os.Stat(root)
	if err != nil || !st.IsDir() {
		return nil, fmt.Errorf("ocr provider %q not found under %s: %w", provider, dataset, contract.ErrConfiguration)
	}
	ext := ".json"
	if opts != nil && opts.Ext != "" {
		ext = opts.Ext
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
	}
	return &Source{root: root, ext: ext}, nil
}

var _ contract.OCRSource = (*Source)(nil)

// Load 读取单个文档的 OCR 文件。
func (s *Source) Load(ctx context.Context, id contract.DocumentID) (*contract.Document2D, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := contract.DocumentFile(id, s.ext)
	if err != nil {
		return nil, fmt.Errorf("ocr %q: %w", id, err)
	}
	b, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ocr %s: %w", id, contract.ErrMissingDocument)
		}
		return nil, err
	}
	var cf contract.CommonFormat
	if err := json.Unmarshal(b, &cf); err != nil {
		return nil, fmt.Errorf("ocr %s: %v: %w", id, err, contract.ErrMalformedRecord)
	}
	d, err := cf.Document2D()
	if err != nil {
		return nil, fmt.Errorf("ocr %s: %w", id, err)
	}
	return d, nil
}
