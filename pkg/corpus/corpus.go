// Package corpus 将基准数据集目录转换为按切分惰性产出的 DataInstance 序列。
//
// 状态：New 之后为未绑定；ReadBenchmarkChallenge 绑定目录与 OCR 提供方
// （只做结构检查，不解析标注）；每次迭代 Train/Dev/Test 都从文件重新推导，
// 因此可重复迭代且结果一致。
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docseq/pkg/contract"
	"docseq/pkg/registry"
)

// Corpus 构造后配置只读；重新绑定与迭代不得并发进行。
type Corpus struct {
	opts    Options
	builder *Builder
	augment []string
	bound   *binding
}

type binding struct {
	dir        string
	provider   string
	family     contract.Family
	normalizer contract.Normalizer
	ocr        contract.OCRSource
	reader     contract.AnnotationReader
	observer   Observer
}

// New 校验选项并加载补充词表；任何问题返回 ErrConfiguration。
func New(opts Options) (*Corpus, error) {
	if opts.PrefixMode == "" {
		opts.PrefixMode = PrefixProperty
	}
	b, err := NewBuilder(opts)
	if err != nil {
		return nil, err
	}
	c := &Corpus{opts: opts, builder: b}
	if p := strings.TrimSpace(opts.AugmentTokensFromFile); p != "" {
		toks, err := loadTokens(p)
		if err != nil {
			return nil, err
		}
		c.augment = toks
	}
	return c, nil
}

// Options 返回构造时的选项拷贝。
func (c *Corpus) Options() Options { return c.opts }

// AugmentTokens 返回补充词表拷贝（未配置时为 nil）。
func (c *Corpus) AugmentTokens() []string {
	if c.augment == nil {
		return nil
	}
	return append([]string(nil), c.augment...)
}

func loadTokens(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("augment_tokens_from_file: %v: %w", err, contract.ErrConfiguration)
	}
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if t := strings.TrimSpace(sc.Text()); t != "" {
			out = append(out, t)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("augment_tokens_from_file: %v: %w", err, contract.ErrConfiguration)
	}
	return out, nil
}

// BindOption 调整 ReadBenchmarkChallenge 的行为。
type BindOption func(*bindConfig)

type bindConfig struct {
	family     contract.Family
	layout     string
	ocrOpts    json.RawMessage
	normOpts   json.RawMessage
	readerOpts json.RawMessage
	ocr        contract.OCRSource
	reader     contract.AnnotationReader
	observer   Observer
}

// WithFamily 显式指定数据集族，跳过自动推断。
func WithFamily(f contract.Family) BindOption { return func(b *bindConfig) { b.family = f } }

// WithOCRLayout 指定 OCR 布局（"dir" / "content"）；默认按目录结构自动选择。
func WithOCRLayout(layout string, raw json.RawMessage) BindOption {
	return func(b *bindConfig) { b.layout, b.ocrOpts = layout, raw }
}

// WithOCRSource 注入现成的 OCR 源（测试或内存数据）。
func WithOCRSource(src contract.OCRSource) BindOption { return func(b *bindConfig) { b.ocr = src } }

// WithNormalizerOptions 传给族 Normalizer 的原样 JSON 选项。
func WithNormalizerOptions(raw json.RawMessage) BindOption {
	return func(b *bindConfig) { b.normOpts = raw }
}

// WithReaderOptions 传给 JSONL 标注 Reader 的原样 JSON 选项。
func WithReaderOptions(raw json.RawMessage) BindOption {
	return func(b *bindConfig) { b.readerOpts = raw }
}

// WithAnnotationReader 注入标注 Reader。
func WithAnnotationReader(r contract.AnnotationReader) BindOption {
	return func(b *bindConfig) { b.reader = r }
}

// WithObserver 接收跳过事件。
func WithObserver(o Observer) BindOption { return func(b *bindConfig) { b.observer = o } }

// ReadBenchmarkChallenge 绑定基准目录与 OCR 提供方。只检查目录结构与族，不读取标注。
func (c *Corpus) ReadBenchmarkChallenge(dir, ocr string, opts ...BindOption) error {
	var cfg bindConfig
	for _, o := range opts {
		o(&cfg)
	}
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return fmt.Errorf("benchmark directory %q: %w", dir, contract.ErrConfiguration)
	}
	ocr = strings.TrimSpace(ocr)
	if ocr == "" && cfg.ocr == nil {
		return fmt.Errorf("empty ocr provider: %w", contract.ErrConfiguration)
	}
	m, err := ReadManifest(dir)
	if err != nil {
		return err
	}
	if err := checkProvider(m, ocr); err != nil && cfg.ocr == nil {
		return err
	}

	fam := cfg.family
	if fam != "" {
		if fam, err = ParseFamily(string(fam)); err != nil {
			return err
		}
	} else if fam, err = DetectFamily(dir, m); err != nil {
		return err
	}
	newNorm, ok := registry.Normalizer[string(fam)]
	if !ok {
		return fmt.Errorf("no normalizer for family %q: %w", fam, contract.ErrConfiguration)
	}
	norm, err := newNorm(cfg.normOpts)
	if err != nil {
		return err
	}

	src := cfg.ocr
	if src == nil {
		layout := cfg.layout
		if layout == "" || layout == "auto" {
			layout = detectLayout(dir, ocr)
		}
		newSrc, ok := registry.OCRSource[layout]
		if !ok {
			return fmt.Errorf("unknown ocr layout %q (want one of %v): %w", layout, registry.Names(registry.OCRSource), contract.ErrConfiguration)
		}
		if src, err = newSrc(dir, ocr, cfg.ocrOpts); err != nil {
			return err
		}
	}

	rd := cfg.reader
	if rd == nil {
		if rd, err = registry.AnnotationReader["jsonl"](cfg.readerOpts); err != nil {
			return err
		}
	}

	c.bound = &binding{
		dir:        dir,
		provider:   ocr,
		family:     fam,
		normalizer: norm,
		ocr:        src,
		reader:     rd,
		observer:   cfg.observer,
	}
	return nil
}

// detectLayout: 存在 ocr/<provider> 目录时用 "dir"，否则 "content"。
func detectLayout(dir, provider string) string {
	if st, err := os.Stat(filepath.Join(dir, "ocr", provider)); err == nil && st.IsDir() {
		return "dir"
	}
	return "content"
}

// Family 返回绑定的数据集族；未绑定时为空。
func (c *Corpus) Family() contract.Family {
	if c.bound == nil {
		return ""
	}
	return c.bound.family
}

// Dir 返回绑定的基准目录；未绑定时为空。
func (c *Corpus) Dir() string {
	if c.bound == nil {
		return ""
	}
	return c.bound.dir
}

// Train 返回训练切分的新流。
func (c *Corpus) Train() *Stream { return c.Split(contract.Train) }

// Dev 返回开发切分的新流。
func (c *Corpus) Dev() *Stream { return c.Split(contract.Dev) }

// Test 返回测试切分的新流。
func (c *Corpus) Test() *Stream { return c.Split(contract.Test) }

// Split 每次调用返回独立的流对象。
func (c *Corpus) Split(s contract.Split) *Stream {
	return &Stream{c: c, b: c.bound, split: s}
}

// AnnotationPath 返回切分标注文件路径。
func AnnotationPath(dir string, s contract.Split) string {
	return filepath.Join(dir, string(s), "document.jsonl")
}
