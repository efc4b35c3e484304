package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"docseq/internal/diag"
	"docseq/pkg/contract"
	"docseq/pkg/corpus"
)

// - 单点并发：仅此层管理并发；Corpus 及其组件均为同步实现。
// - 切分为并发单位：每个切分一个生产者（Stream）+ 一个写出者（Writer），经 io.Pipe 流式衔接。
// - 切分内顺序与 Stream 产出顺序一致。
// - 首错取消：任一切分出错则取消其余切分，返回该错误。

// AddedTokensFile: 补充词表输出工件名。
const AddedTokensFile contract.ArtifactID = "added_tokens.txt"

// Components 聚合运行所需的组件。
type Components struct {
	Corpus *corpus.Corpus
	Writer contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Dataset string
	OCR     string
	// Bind: 传给 ReadBenchmarkChallenge 的绑定选项；跳过观察者由本层追加。
	Bind        []corpus.BindOption
	Splits      []contract.Split
	Concurrency int
	// Terminal: 可选终端提示；nil 为 no-op。
	Terminal *diag.Terminal
}

// SplitReport: 单个切分的运行结果。
type SplitReport struct {
	Split     contract.Split
	Artifact  contract.ArtifactID
	Found     bool
	Documents int
	Instances int
	Missing   int
	Malformed int
	Duration  time.Duration
}

// Report: 按 Settings.Splits 顺序排列的切分结果。
type Report struct {
	Splits        []SplitReport
	AddedTokens   int
	AddedTokensID contract.ArtifactID
}

// Instances 返回全部切分的实例总数。
func (r Report) Instances() int {
	n := 0
	for _, s := range r.Splits {
		n += s.Instances
	}
	return n
}

// Run 绑定基准目录并把每个切分序列化为 <split>.jsonl：
// - 缺失 OCR / 坏行：跳过并计数（日志 + 指标）；
// - 切分文件缺失：告警后跳过该切分；
// - 形状不一致等其余错误：中止运行，已开始的原子写出被丢弃。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Report, error) {
	if err := sanity(comp, set); err != nil {
		return Report{}, fmt.Errorf("sanity: %w", err)
	}
	conc := set.Concurrency
	if conc < 1 {
		conc = 1
	}

	btimer := logger.StartWith("corpus", "bind", "", map[string]string{"dataset": set.Dataset, "ocr": set.OCR})
	bind := append(slices.Clone(set.Bind), corpus.WithObserver(&skipObserver{logger: logger}))
	if err := comp.Corpus.ReadBenchmarkChallenge(set.Dataset, set.OCR, bind...); err != nil {
		fail(logger, "corpus", err, btimer.Since(), "", "")
		return Report{}, fmt.Errorf("bind: %w", err)
	}
	btimer.Finish("bind "+string(comp.Corpus.Family()), 0)
	diag.IncOp("corpus", "bind", "success")
	set.Terminal.RunStart(set.Dataset, conc)

	rep := Report{Splits: make([]SplitReport, len(set.Splits))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)
	for i, sp := range set.Splits {
		g.Go(func() error {
			r, err := runSplit(gctx, comp, sp, set.Terminal, logger)
			rep.Splits[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}

	if toks := comp.Corpus.AugmentTokens(); len(toks) > 0 {
		var sb strings.Builder
		for _, t := range toks {
			sb.WriteString(t)
			sb.WriteByte('\n')
		}
		if err := comp.Writer.Write(ctx, AddedTokensFile, strings.NewReader(sb.String())); err != nil {
			fail(logger, "writer", err, nil, "", "")
			return rep, fmt.Errorf("writer write(%s): %w", AddedTokensFile, err)
		}
		rep.AddedTokens, rep.AddedTokensID = len(toks), AddedTokensFile
		diag.IncOp("writer", "finish", "success")
	}
	return rep, nil
}

// runSplit: 生产者在当前 goroutine 编码 JSONL，写出者在独立 goroutine 消费管道。
func runSplit(ctx context.Context, comp Components, sp contract.Split, term *diag.Terminal, logger *diag.Logger) (SplitReport, error) {
	rep := SplitReport{Split: sp, Artifact: contract.ArtifactID(string(sp) + ".jsonl")}
	if _, err := os.Stat(corpus.AnnotationPath(comp.Corpus.Dir(), sp)); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("corpus", string(diag.CodeMissing), "split not found, skipped", map[string]string{"split": string(sp)})
		diag.IncOp("split", "skip", "success")
		return rep, nil
	}
	rep.Found = true
	timer := logger.StartWith("split", "encode", string(sp), nil)
	term.SplitStart(string(sp))

	st := comp.Corpus.Split(sp)
	pr, pw := io.Pipe()
	werr := make(chan error, 1)
	go func() {
		err := comp.Writer.Write(ctx, rep.Artifact, pr)
		if err != nil {
			_ = pr.CloseWithError(err)
		} else {
			_ = pr.Close()
		}
		werr <- err
	}()

	n, perr := encode(ctx, st, pw, func(n int) {
		term.SplitProgress(string(sp), n, st.Stats().Skipped())
	})
	_ = pw.CloseWithError(perr)
	wErr := <-werr

	stats := st.Stats()
	rep.Documents, rep.Instances = stats.Documents, n
	rep.Missing, rep.Malformed = stats.Missing, stats.Malformed
	rep.Duration = time.Since(*timer.Since())

	switch {
	case errors.Is(perr, contract.ErrSplitNotFound):
		term.SplitFinish(string(sp), true, 0, 0, rep.Duration)
		logger.Warn("corpus", string(diag.CodeMissing), perr.Error(), map[string]string{"split": string(sp)})
		rep.Found = false
		return rep, nil
	case perr != nil:
		var de *docError
		docID := ""
		if errors.As(perr, &de) {
			docID = string(de.id)
		}
		fail(logger, "split", perr, timer.Since(), string(sp), docID)
		term.SplitFinish(string(sp), false, n, stats.Skipped(), rep.Duration)
		return rep, fmt.Errorf("split %s: %w", sp, perr)
	case wErr != nil:
		fail(logger, "writer", wErr, timer.Since(), string(sp), "")
		term.SplitFinish(string(sp), false, n, stats.Skipped(), rep.Duration)
		return rep, fmt.Errorf("writer write(%s): %w", rep.Artifact, wErr)
	}

	timer.Finish("encode", int64(n))
	diag.IncOp("split", "finish", "success")
	diag.ObserveDuration("split", "finish", rep.Duration.Milliseconds())
	diag.AddInstances(string(sp), n)
	term.SplitFinish(string(sp), true, n, stats.Skipped(), rep.Duration)
	return rep, nil
}

// docError 标注出错的文档，便于日志定位。
type docError struct {
	id  contract.DocumentID
	err error
}

func (e *docError) Error() string { return e.err.Error() }
func (e *docError) Unwrap() error { return e.err }

// encode 逐条写出 JSONL；任一实例错误即中止。
func encode(ctx context.Context, st *corpus.Stream, w io.Writer, progress func(n int)) (int, error) {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	n := 0
	for inst, err := range st.AllContext(ctx) {
		if err != nil {
			if inst.Identifier != "" {
				return n, &docError{id: inst.Identifier, err: err}
			}
			return n, err
		}
		if err := enc.Encode(NewRecord(inst)); err != nil {
			return n, err
		}
		n++
		if progress != nil {
			progress(n)
		}
	}
	return n, bw.Flush()
}

// skipObserver 记录跳过事件并计数；多个切分并发回调，logger 与指标均并发安全。
type skipObserver struct {
	logger *diag.Logger
}

func (o *skipObserver) OnSkip(split contract.Split, id contract.DocumentID, reason corpus.SkipReason, err error) {
	diag.IncSkipped(string(split), string(reason))
	msg := string(reason)
	if err != nil {
		msg = err.Error()
	}
	o.logger.Skip("corpus", string(diag.Classify(err)), msg, string(split), string(id))
}

// fail: 错误日志 + 指标。
func fail(logger *diag.Logger, comp string, err error, since *time.Time, split, docID string) {
	code := diag.Classify(err)
	logger.ErrorWith(comp, string(code), err.Error(), since, split, docID, nil)
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func sanity(c Components, s Settings) error {
	if c.Corpus == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if len(s.Splits) == 0 {
		return errors.New("pipeline: no splits")
	}
	if strings.TrimSpace(s.Dataset) == "" {
		return errors.New("pipeline: empty dataset")
	}
	return nil
}
