package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Terminal: 终端状态提示（非日志）。
// - TTY: 单行 \r 覆盖；非 TTY: 关键节点分行打印。
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	concurrency int
	dataset     string
	splitsDone  int
	runStart    time.Time

	// 每个切分的进度（多个切分可并行）
	progress map[string]splitState
	order    []string

	lastLen   int
	lastFlush time.Time

	mu sync.Mutex
}

type splitState struct {
	instances int
	skipped   int
}

// NewTerminal 构造终端提示器。enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled, progress: map[string]splitState{}}
	// CI 环境视为非 TTY
	if os.Getenv("CI") != "" {
		t.isTTY = false
	} else if f, ok := w.(*os.File); ok {
		if fi, err := f.Stat(); err == nil {
			t.isTTY = fi.Mode()&os.ModeCharDevice != 0
		}
	}
	return t
}

// RunStart: 记录运行上下文（数据集、并发）。
func (t *Terminal) RunStart(dataset string, concurrency int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.dataset = shortenBase(dataset, 48)
	t.concurrency = concurrency
	t.splitsDone = 0
	t.runStart = time.Now()
	t.println(fmt.Sprintf("[run] 数据集=%s | 并发=%d", safe(t.dataset), concurrency))
}

// SplitStart: 标记一个切分开始。
func (t *Terminal) SplitStart(split string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	if _, ok := t.progress[split]; !ok {
		t.order = append(t.order, split)
	}
	t.progress[split] = splitState{}
	if !t.isTTY {
		t.println(fmt.Sprintf("[split] %s | 开始", split))
	}
}

// SplitProgress: 周期性进度（TTY 下 ≥100ms 节流）。
func (t *Terminal) SplitProgress(split string, instances, skipped int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.isTTY {
		return
	}
	t.progress[split] = splitState{instances: instances, skipped: skipped}
	now := time.Now()
	if now.Sub(t.lastFlush) < 100*time.Millisecond {
		return
	}
	t.lastFlush = now
	parts := make([]string, 0, len(t.order))
	for _, s := range t.order {
		st := t.progress[s]
		parts = append(parts, fmt.Sprintf("%s %d/跳过 %d", s, st.instances, st.skipped))
	}
	t.printInline(fmt.Sprintf("[split] %s | 用时 %s", strings.Join(parts, " | "), formatSince(t.runStart)))
}

// SplitFinish: 完成一个切分（立即换行输出）。
func (t *Terminal) SplitFinish(split string, ok bool, instances, skipped int, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.splitsDone++
	t.progress[split] = splitState{instances: instances, skipped: skipped}
	status := "done"
	if !ok {
		status = "fail"
	}
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	t.println(fmt.Sprintf("[%s] %s | 实例 %d | 跳过 %d | 用时 %s", status, split, instances, skipped, formatDur(dur)))
}

// RunFinish: 结束总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	t.println(fmt.Sprintf("[%s] 全部完成 | 切分 %d | 总用时 %s", tag, t.splitsDone, formatDur(dur)))
}

func (t *Terminal) println(s string) {
	if !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
	t.lastLen = 0
}

// printInline: \r + 内容；新行比旧行短时以空格覆盖残留。
func (t *Terminal) printInline(s string) {
	if !t.enabled {
		return
	}
	pad := 0
	if l := visLen(s); t.lastLen > l {
		pad = t.lastLen - l
	}
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	b.WriteString(strings.Repeat(" ", pad))
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = visLen(s)
}

// shortenBase: 取基名并按可见宽度截断（尾部省略号）。
func shortenBase(s string, max int) string {
	if max <= 0 {
		return ""
	}
	base := filepath.Base(strings.TrimSpace(s))
	if visLen(base) <= max {
		return base
	}
	rs := []rune(base)
	return string(rs[:max-1]) + "…"
}

func visLen(s string) int { return len([]rune(s)) }

func safe(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

func formatSince(t0 time.Time) string { return formatDur(time.Since(t0)) }

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms < 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(d.Milliseconds())/1000.0)
}
