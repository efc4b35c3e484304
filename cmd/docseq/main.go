package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// 退出码：0 成功；1 运行期失败；2 用法错误；3 配置/装配错误。
const (
	exitOK     = 0
	exitRun    = 1
	exitUsage  = 2
	exitConfig = 3
)

// exitError 携带退出码；msg 为面向终端的中文前缀。
type exitError struct {
	code int
	msg  string
	err  error
}

func (e *exitError) Error() string { return fmt.Sprintf("%s: %v", e.msg, e.err) }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, msg string, err error) error { return &exitError{code: code, msg: msg, err: err} }

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// execute 运行命令树并映射退出码。
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if !errors.Is(ee.err, context.Canceled) {
			fmt.Fprintf(stderr, "%s: %v\n", ee.msg, ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return exitUsage
}
