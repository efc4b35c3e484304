// Package memory 提供以预构建 Document2D 为数据的 OCR 源，用于注入与测试。
package memory

import (
	"context"
	"fmt"
	"sync"

	"docseq/pkg/contract"
)

// Source 并发安全。
type Source struct {
	mu    sync.RWMutex
	docs  map[contract.DocumentID]*contract.Document2D
	loads map[contract.DocumentID]int
}

// New 以给定文档集合创建；map 会被拷贝。
func New(docs map[contract.DocumentID]*contract.Document2D) *Source {
	s := &Source{docs: make(map[contract.DocumentID]*contract.Document2D, len(docs)), loads: map[contract.DocumentID]int{}}
	for id, d := range docs {
		s.docs[id] = d
	}
	return s
}

// Put 添加或替换一个文档。
func (s *Source) Put(id contract.DocumentID, d *contract.Document2D) {
	s.mu.Lock()
	s.docs[id] = d
	s.mu.Unlock()
}

var _ contract.OCRSource = (*Source)(nil)

// Load 未收录的文档返回 ErrMissingDocument。
func (s *Source) Load(ctx context.Context, id contract.DocumentID) (*contract.Document2D, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("ocr %s: %w", id, contract.ErrMissingDocument)
	}
	s.loads[id]++
	return d, nil
}

// Loads 返回某文档被加载的次数。
func (s *Source) Loads(id contract.DocumentID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads[id]
}
