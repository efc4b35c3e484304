package stress

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	cfgpkg "docseq/internal/config"
	"docseq/internal/pipeline"
	"docseq/pkg/contract"
)

const (
	docsPerSplit = 400
	propsPerDoc  = 6
	tokensPerDoc = 300
)

// makeBenchmark 生成 qa 族合成基准：三个切分 + ocr/<provider>/<doc>.json。
// 每个切分有 1/20 的文档缺少 OCR。
func makeBenchmark(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "synthetic-docvqa")
	ocrDir := filepath.Join(dir, "ocr", "microsoft_cv")
	if err := os.MkdirAll(ocrDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cf := contract.CommonFormat{Tokens: make([]string, tokensPerDoc), Positions: make([]contract.BBox, tokensPerDoc)}
	for i := range cf.Tokens {
		cf.Tokens[i] = fmt.Sprintf("Token%d", i)
		cf.Positions[i] = contract.BBox{float64(i), 0, float64(i + 1), 1}
	}
	ocr, err := json.Marshal(cf)
	if err != nil {
		t.Fatal(err)
	}
	for _, sp := range contract.Splits() {
		if err := os.MkdirAll(filepath.Join(dir, string(sp)), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		f, err := os.Create(filepath.Join(dir, string(sp), "document.jsonl"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		enc := json.NewEncoder(f)
		for d := 0; d < docsPerSplit; d++ {
			name := fmt.Sprintf("%s_%04d", sp, d)
			doc := contract.Document{Name: contract.DocumentID(name), Language: "en", Split: string(sp)}
			for p := 0; p < propsPerDoc; p++ {
				doc.Annotations = append(doc.Annotations, contract.Annotation{
					Key:    fmt.Sprintf("what is field %d?", p),
					Values: []contract.Value{{Value: fmt.Sprintf("V%d", p), ValueVariants: []string{fmt.Sprintf("v%d", p)}}},
				})
			}
			if err := enc.Encode(doc); err != nil {
				t.Fatalf("encode: %v", err)
			}
			if d%20 == 0 {
				continue
			}
			if err := os.WriteFile(filepath.Join(ocrDir, name+".json"), ocr, 0o644); err != nil {
				t.Fatalf("write ocr: %v", err)
			}
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// TestStress 在不同并发度下运行流水线并记录延迟统计。
func TestStress(t *testing.T) {
	if testing.Short() {
		t.Skip("stress: skipped in -short mode")
	}
	bench := makeBenchmark(t)
	present := docsPerSplit - docsPerSplit/20
	// train: first_item → 每属性 1 条；dev/test: concat → 每属性 1 条
	wantPerSplit := present * propsPerDoc

	for _, conc := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("concurrency_%d", conc), func(t *testing.T) {
			const runs = 5
			successes := 0
			latencies := make([]time.Duration, 0, runs)
			for i := 0; i < runs; i++ {
				cfg := cfgpkg.Defaults()
				cfg.Dataset = bench
				cfg.OCR = "microsoft_cv"
				cfg.Family = "qa"
				cfg.Output = t.TempDir()
				cfg.Concurrency = conc
				comp, set, err := cfgpkg.Assemble(cfg)
				if err != nil {
					t.Fatalf("assemble: %v", err)
				}
				start := time.Now()
				rep, err := pipeline.Run(context.Background(), comp, set, nil)
				dur := time.Since(start)
				if err != nil {
					t.Errorf("run %d: %v", i, err)
					continue
				}
				for _, s := range rep.Splits {
					if s.Instances != wantPerSplit || s.Missing != docsPerSplit/20 {
						t.Fatalf("run %d %s: instances=%d missing=%d", i, s.Split, s.Instances, s.Missing)
					}
				}
				successes++
				latencies = append(latencies, dur)
			}
			if successes == 0 {
				t.Fatalf("全部运行失败")
			}
			sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
			var total time.Duration
			for _, d := range latencies {
				total += d
			}
			avg := total / time.Duration(len(latencies))
			idx := int(math.Ceil(float64(len(latencies))*0.95)) - 1
			if idx < 0 {
				idx = 0
			}
			p95 := latencies[idx]
			t.Logf("并发%d 成功率%.2f 平均%v 95%%延迟%v", conc, float64(successes)/float64(runs), avg, p95)
		})
	}
}
