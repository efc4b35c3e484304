package corpus

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"docseq/pkg/contract"
)

// SkipReason: 被跳过文档的原因。
type SkipReason string

const (
	SkipMissing   SkipReason = "missing"
	SkipMalformed SkipReason = "malformed"
)

// Observer 接收可恢复的逐文档跳过事件；实现需并发安全（多个切分可并行迭代）。
type Observer interface {
	OnSkip(split contract.Split, id contract.DocumentID, reason SkipReason, err error)
}

// Stats: 最近一次迭代的计数。
type Stats struct {
	Documents int
	Instances int
	Missing   int
	Malformed int
	// Failed: 以错误形式交给调用方的文档数（形状不一致等）。
	Failed int
}

// Skipped 返回被跳过的文档总数。
func (s Stats) Skipped() int { return s.Missing + s.Malformed }

// Stream: 单个切分的惰性序列。每次 All 都从文件重新推导。
type Stream struct {
	c     *Corpus
	b     *binding
	split contract.Split

	mu    sync.Mutex
	stats Stats
}

// Split 返回流对应的切分。
func (s *Stream) Split() contract.Split { return s.split }

// Stats 返回最近一次（或进行中）迭代的计数快照。
func (s *Stream) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Stream) update(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

// All 等价于 AllContext(context.Background())。
func (s *Stream) All() iter.Seq2[contract.DataInstance, error] {
	return s.AllContext(context.Background())
}

var errStop = errors.New("corpus: consumer stopped")

// AllContext 产出切分的全部实例。
//
// 错误语义：
//   - 缺失 OCR 与坏行：跳过并计数，通知 Observer；
//   - 单文档形状不一致等：产出 (零值实例(仅 Identifier), err)，调用方可继续迭代；
//   - 切分文件缺失、读取失败、未绑定：产出一次错误后结束。
//
// 提前 break 不留下任何状态。
func (s *Stream) AllContext(ctx context.Context) iter.Seq2[contract.DataInstance, error] {
	return func(yield func(contract.DataInstance, error) bool) {
		s.update(func(st *Stats) { *st = Stats{} })
		if s.b == nil {
			yield(contract.DataInstance{}, fmt.Errorf("split %s: %w", s.split, contract.ErrNotBound))
			return
		}
		b := s.b
		strat := s.c.opts.Strategy(s.split)
		path := AnnotationPath(b.dir, s.split)

		err := b.reader.Iterate(ctx, path, func(doc contract.Document, rerr error) error {
			if rerr != nil {
				s.skip(doc.Name, SkipMalformed, rerr)
				return nil
			}
			s.update(func(st *Stats) { st.Documents++ })
			norm, err := b.normalizer.Normalize(ctx, doc, b.ocr)
			if err != nil {
				switch {
				case errors.Is(err, contract.ErrMissingDocument):
					s.skip(doc.Name, SkipMissing, err)
					return nil
				case errors.Is(err, contract.ErrMalformedRecord), errors.Is(err, contract.ErrPathInvalid):
					s.skip(doc.Name, SkipMalformed, err)
					return nil
				case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
					return err
				}
				s.update(func(st *Stats) { st.Failed++ })
				if !yield(contract.DataInstance{Identifier: doc.Name}, fmt.Errorf("document %s: %w", doc.Name, err)) {
					return errStop
				}
				return nil
			}
			d := norm.Document
			if s.c.opts.LowercaseInput {
				d = d.MapTokens(lower)
			}
			props := norm.Properties
			// 表格/键值族已在 Normalizer 内聚合；此处只合并问答族的重复问题
			if s.c.opts.SingleProperty {
				props = contract.MergeProperties(props)
			}
			for _, p := range props {
				for _, inst := range s.c.builder.Build(p, d, strat) {
					s.update(func(st *Stats) { st.Instances++ })
					if !yield(inst, nil) {
						return errStop
					}
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStop) {
			yield(contract.DataInstance{}, fmt.Errorf("split %s: %w", s.split, err))
		}
	}
}

func (s *Stream) skip(id contract.DocumentID, reason SkipReason, err error) {
	s.update(func(st *Stats) {
		if reason == SkipMissing {
			st.Missing++
		} else {
			st.Malformed++
		}
	})
	if s.b.observer != nil {
		s.b.observer.OnSkip(s.split, id, reason, err)
	}
}
