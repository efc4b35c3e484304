package testdata

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	cfgpkg "docseq/internal/config"
	"docseq/internal/pipeline"
	"docseq/pkg/contract"
)

// loadConfig 经 YAML 文件走完整配置路径（Load → Validate → Assemble）。
func loadConfig(t *testing.T, body string) cfgpkg.Config {
	t.Helper()
	p := filepath.Join(t.TempDir(), "docseq.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := cfgpkg.Load(p, nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func runPipeline(t *testing.T, cfg cfgpkg.Config) (pipeline.Report, error) {
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return pipeline.Report{}, err
	}
	return pipeline.Run(context.Background(), comp, set, nil)
}

func readRecords(t *testing.T, path string) []pipeline.Record {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		zr, err := gzip.NewReader(f)
		if err != nil {
			t.Fatalf("gzip: %v", err)
		}
		defer zr.Close()
		r = zr
	}
	var out []pipeline.Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var rec pipeline.Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("decode: %v", err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestE2EDocVQA(t *testing.T) {
	out := t.TempDir()
	cfg := loadConfig(t, fmt.Sprintf(`
dataset: benchmarks/docvqa
ocr: microsoft_cv
output: %q
concurrency: 2
corpus:
  unescape_values: true
`, out))
	rep, err := runPipeline(t, cfg)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if rep.Instances() != 4 {
		t.Fatalf("实例总数错误: %+v", rep.Splits)
	}
	dev := readRecords(t, filepath.Join(out, "dev.jsonl"))
	want := []struct{ prefix, output string }{
		{"what is the date mentioned in this letter? : ", "1/8/93"},
		{"what is the contact person name mentioned in letter? : ", "P. Carter | p. carter"},
	}
	if len(dev) != len(want) {
		t.Fatalf("dev 行数错误: %d", len(dev))
	}
	for i, w := range want {
		if dev[i].InputPrefix != w.prefix || dev[i].Output != w.output || dev[i].Identifier != "xnbl0037_1" {
			t.Fatalf("dev[%d] = %+v", i, dev[i])
		}
	}
	if _, err := os.Stat(filepath.Join(out, "test.jsonl")); err == nil {
		t.Fatalf("缺失切分不应产出文件")
	}
}

// content 布局 + dataset.yaml 声明的 table 族。
func TestE2EAxCellContentLayout(t *testing.T) {
	out := t.TempDir()
	cfg := loadConfig(t, fmt.Sprintf(`
dataset: benchmarks/AxCell
ocr: tesseract
ocr_layout: content
splits: [train]
output: %q
`, out))
	if _, err := runPipeline(t, cfg); err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	recs := readRecords(t, filepath.Join(out, "train.jsonl"))
	if len(recs) != 5 {
		t.Fatalf("每列一条实例，实得 %d", len(recs))
	}
	if recs[0].OutputPrefix != "What are the leaderboard_entry values for the task column?" || recs[0].Output != "Object Detection" {
		t.Fatalf("首条实例错误: %+v", recs[0])
	}
	if len(recs[0].Document.Tokens) == 0 {
		t.Fatalf("文档 tokens 为空")
	}

	// 未声明的提供方在绑定期失败
	cfg.OCR = "microsoft_azure"
	if _, err := runPipeline(t, cfg); err == nil {
		t.Fatalf("未声明的 OCR 提供方应失败")
	}
}

// gzip 输出 + 小写输入 + 大小写增广。
func TestE2EDeepFormAugmented(t *testing.T) {
	out := t.TempDir()
	cfg := loadConfig(t, fmt.Sprintf(`
dataset: benchmarks/DeepForm
ocr: microsoft_cv
splits: [train]
output: %q
corpus:
  lowercase_input: true
  case_augmentation: true
options:
  writer:
    gzip: true
`, out))
	if _, err := runPipeline(t, cfg); err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	recs := readRecords(t, filepath.Join(out, "train.jsonl.gz"))
	if len(recs) != 6 {
		t.Fatalf("仅 advertiser 产生增广实例，期望 6 实得 %d", len(recs))
	}
	if recs[1].Output != "MIKEBLOOMBERG2020INC-D" || recs[2].Output != "mikebloomberg2020inc-d" {
		t.Fatalf("增广实例错误: %+v / %+v", recs[1], recs[2])
	}
	for _, r := range recs {
		for _, tok := range r.Document.Tokens {
			if tok != toLower(tok) {
				t.Fatalf("lowercase_input 未作用于 token: %q", tok)
			}
		}
		if len(r.Document.Layout[contract.ChannelTokens]) != len(r.Document.Tokens) {
			t.Fatalf("layout 与 tokens 长度不一致")
		}
	}
}

func toLower(s string) string {
	b := []rune(s)
	for i, r := range b {
		if r >= 'A' && r <= 'Z' {
			b[i] = r + ('a' - 'A')
		}
	}
	return string(b)
}
