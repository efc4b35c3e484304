package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"docseq/pkg/contract"
)

// BenchmarkWrite 不同输入尺寸与压缩配置下的写入性能。
func BenchmarkWrite(b *testing.B) {
	for _, sz := range []int{1024, 1024 * 1024} {
		for _, gz := range []bool{false, true} {
			b.Run(fmt.Sprintf("size=%d/gzip=%v", sz, gz), func(b *testing.B) {
				data := bytes.Repeat([]byte(`{"identifier":"x","output":"y"}`+"\n"), sz/32)
				w, err := New(&Options{OutputDir: b.TempDir(), Gzip: gz})
				if err != nil {
					b.Fatalf("创建 Writer 失败: %v", err)
				}
				id := contract.ArtifactID("train.jsonl")
				ctx := context.Background()
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := w.Write(ctx, id, bytes.NewReader(data)); err != nil {
						b.Fatalf("写入失败: %v", err)
					}
				}
			})
		}
	}
}
