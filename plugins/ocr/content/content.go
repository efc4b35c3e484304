// Package content 从各切分目录下的 documents_content.jsonl 加载 OCR。
// 首次 Load 时建立 name → (文件, 偏移) 索引，之后按偏移读取单行。
package content

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"docseq/pkg/contract"
)

// FileName: 每个切分目录下的内容文件名。
const FileName = "documents_content.jsonl"

// Options: 最小必要选项。
type Options struct {
	// MaxLineBytes: 单行上限，默认 256MiB。
	MaxLineBytes int `json:"max_line_bytes,omitempty"`
}

type location struct {
	file   string
	offset int64
	size   int64
}

// Source 并发安全：索引只构建一次，读取各自打开文件。
type Source struct {
	files    []string
	provider string
	maxLine  int64

	once  sync.Once
	index map[contract.DocumentID]location
	ierr  error
}

type record struct {
	Name     contract.DocumentID `json:"name"`
	Contents []struct {
		ToolName     string                `json:"tool_name"`
		CommonFormat contract.CommonFormat `json:"common_format"`
	} `json:"contents"`
}

// New 收集存在的内容文件；一个都没有时返回 ErrConfiguration。
func New(dataset, provider string, opts *Options) (*Source, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return nil, fmt.Errorf("empty ocr provider: %w", contract.ErrConfiguration)
	}
	var files []string
	for _, sp := range contract.Splits() {
		fp := filepath.Join(dataset, string(sp), FileName)
		if st, err := os.Stat(fp); err == nil && st.Mode().IsRegular() {
			files = append(files, fp)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s under %s: %w", FileName, dataset, contract.ErrConfiguration)
	}
	s := &Source{files: files, provider: provider, maxLine: 256 << 20}
	if opts != nil && opts.MaxLineBytes > 0 {
		s.maxLine = int64(opts.MaxLineBytes)
	}
	return s, nil
}

var _ contract.OCRSource = (*Source)(nil)

// Load 查找文档并取出与提供方同名的内容。
func (s *Source) Load(ctx context.Context, id contract.DocumentID) (*contract.Document2D, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.once.Do(func() { s.ierr = s.buildIndex() })
	if s.ierr != nil {
		return nil, s.ierr
	}
	loc, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("ocr %s: %w", id, contract.ErrMissingDocument)
	}
	f, err := os.Open(loc.file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var rec record
	if err := json.NewDecoder(io.NewSectionReader(f, loc.offset, loc.size)).Decode(&rec); err != nil {
		return nil, fmt.Errorf("ocr %s: %v: %w", id, err, contract.ErrMalformedRecord)
	}
	for _, c := range rec.Contents {
		if c.ToolName != s.provider {
			continue
		}
		d, err := c.CommonFormat.Document2D()
		if err != nil {
			return nil, fmt.Errorf("ocr %s: %w", id, err)
		}
		return d, nil
	}
	return nil, fmt.Errorf("ocr %s has no %q content: %w", id, s.provider, contract.ErrMissingDocument)
}

// buildIndex 仅解析每行的 name 字段；同名以首次出现为准。
func (s *Source) buildIndex() error {
	s.index = make(map[contract.DocumentID]location)
	for _, fp := range s.files {
		if err := s.indexFile(fp); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) indexFile(fp string) error {
	f, err := os.Open(fp)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()
	br := bufio.NewReaderSize(f, 1<<20)
	var off int64
	for {
		line, rerr := br.ReadBytes('\n')
		n := int64(len(line))
		if n > s.maxLine {
			return fmt.Errorf("%s: line at offset %d exceeds %d bytes: %w", fp, off, s.maxLine, contract.ErrInvalidInput)
		}
		if len(strings.TrimSpace(string(line))) > 0 {
			var head struct {
				Name contract.DocumentID `json:"name"`
			}
			// 坏行不入索引，对应文档按缺失处理
			if json.Unmarshal(line, &head) == nil && head.Name != "" {
				if _, dup := s.index[head.Name]; !dup {
					s.index[head.Name] = location{file: fp, offset: off, size: n}
				}
			}
		}
		off += n
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}
