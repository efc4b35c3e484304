package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level 日志级别。
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel 未知级别按 info 处理。
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// LineSink 接收单行日志。
type LineSink interface {
	WriteLine(b []byte) error
}

// Logger: 单行 JSON 结构化日志；默认写入 logs/ 下的轮转文件，写失败回退 stderr。
type Logger struct {
	corrID string
	level  Level
	sink   LineSink
	mu     sync.Mutex
}

// NewLogger 写入 logs/docseq-current.txt，10MiB 轮转，保留 5 个历史文件。
func NewLogger(corrID, level string) *Logger {
	return NewLoggerTo(corrID, level, NewRotatingFile("logs", 10*1024*1024).WithRetention(5))
}

// NewLoggerTo 使用给定 sink；sink 为 nil 时写 stderr。
func NewLoggerTo(corrID, level string, sink LineSink) *Logger {
	if corrID == "" {
		corrID = NewCorrID()
	}
	return &Logger{corrID: corrID, level: ParseLevel(level), sink: sink}
}

// WriterSink 将任意 io.Writer 适配为 LineSink（测试与 --log-file=- 使用）。
type WriterSink struct{ W io.Writer }

// WriteLine 写出一行。
func (s WriterSink) WriteLine(b []byte) error {
	_, err := s.W.Write(append(append([]byte(nil), b...), '\n'))
	return err
}

// CorrID 返回关联 ID。
func (l *Logger) CorrID() string { return l.corrID }

// Event 为标准事件结构。
type Event struct {
	Level  string            `json:"level"`
	TS     string            `json:"ts"`
	CorrID string            `json:"corr_id"`
	Comp   string            `json:"comp"`
	Stage  string            `json:"stage"` // start|finish|skip|error
	Code   string            `json:"code,omitempty"`
	DurMS  int64             `json:"dur_ms,omitempty"`
	Count  int64             `json:"count,omitempty"`
	Split  string            `json:"split,omitempty"`
	DocID  string            `json:"doc_id,omitempty"`
	Msg    string            `json:"msg"`
	KV     map[string]string `json:"kv,omitempty"`
}

func (l *Logger) log(lv Level, ev Event) {
	if l == nil || lv < l.level {
		return
	}
	ev.Level = lv.String()
	ev.TS = NowUTC()
	ev.CorrID = l.corrID
	b, _ := json.Marshal(ev)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink == nil {
		_, _ = os.Stderr.Write(append(b, '\n'))
		return
	}
	if err := l.sink.WriteLine(b); err != nil {
		fmt.Fprintf(os.Stderr, "logger sink error: %v\n", err)
		_, _ = os.Stderr.Write(append(b, '\n'))
	}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWith(comp, msg, "", nil)
}

// StartWith 记录带 split 与键值的 start。
func (l *Logger) StartWith(comp, msg, split string, kv map[string]string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Split: split, Msg: msg, KV: kv})
	return &Timer{l: l, comp: comp, split: split, t0: time.Now()}
}

// Skip 记录可恢复的逐文档跳过（warn）。
func (l *Logger) Skip(comp, code, msg, split, docID string) {
	l.log(Warn, Event{Comp: comp, Stage: "skip", Code: code, Split: split, DocID: docID, Msg: msg})
}

// Warn 记录非致命告警。
func (l *Logger) Warn(comp, code, msg string, kv map[string]string) {
	l.log(Warn, Event{Comp: comp, Stage: "warn", Code: code, Msg: msg, KV: kv})
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWith(comp, code, msg, durSince, "", "", nil)
}

// ErrorWith 附带 split/doc_id 与键值。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, split, docID string, kv map[string]string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Split: split, DocID: docID, Msg: msg, KV: kv})
}

// Debugf 调试事件（仅 level=debug 生效）。
func (l *Logger) Debugf(comp, split, docID, format string, args ...any) {
	if l == nil || l.level > Debug {
		return
	}
	l.log(Debug, Event{Comp: comp, Stage: "debug", Split: split, DocID: docID, Msg: fmt.Sprintf(format, args...)})
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l     *Logger
	comp  string
	split string
	t0    time.Time
}

// Since 返回起点，便于 Error 计算耗时。
func (t *Timer) Since() *time.Time {
	if t == nil {
		return nil
	}
	return &t.t0
}

// Finish 记录 finish；可选 count。返回耗时。
func (t *Timer) Finish(msg string, count int64) time.Duration {
	if t == nil || t.l == nil {
		return 0
	}
	d := time.Since(t.t0)
	t.l.log(Info, Event{Comp: t.comp, Stage: "finish", DurMS: d.Milliseconds(), Count: count, Split: t.split, Msg: msg})
	return d
}
