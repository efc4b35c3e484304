package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "docseq/internal/config"
	"docseq/internal/diag"
	"docseq/internal/pipeline"
)

// pipelineRun 可在测试中替换。
var pipelineRun = pipeline.Run

func newRunCmd(cfgFile *string) *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Convert a benchmark directory into <split>.jsonl instance files",
		Long: `Bind a benchmark directory to an OCR provider and write every requested split
as JSON lines (one data instance per line) into the output directory.

Documents without OCR and malformed annotation lines are skipped and counted;
a document whose OCR shape is inconsistent aborts the run.

Examples:
  docseq run --dataset bench/docvqa --ocr microsoft_cv
  docseq run --config docseq.yaml --split dev --split test --output out/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, resolveConfigPath(*cfgFile), status)
		},
	}
	f := cmd.Flags()
	f.String("dataset", "", "benchmark directory (contains train/dev/test)")
	f.String("ocr", "", "OCR provider name (e.g. microsoft_cv, tesseract)")
	f.String("family", "", "dataset family: qa|kv|table|nli (default: dataset.yaml or directory name)")
	f.String("ocr-layout", "", "OCR layout: auto|dir|content")
	f.StringSlice("split", nil, "splits to export, in order (default: train,dev,test)")
	f.String("output", "", "output directory")
	f.Int("concurrency", 0, "splits processed concurrently")
	f.String("metrics-file", "", "write Prometheus text metrics to this file on exit")
	f.String("log-level", "", "log level: debug|info|warn|error")
	f.String("log-dir", "", `log directory ("-" for stderr)`)
	f.BoolVar(&status, "status", true, "terminal status on stderr (TTY refresh, milestones otherwise)")
	return cmd
}

func runPipeline(cmd *cobra.Command, cfgPath string, status bool) error {
	start := time.Now()
	stderr := cmd.ErrOrStderr()

	cfg, err := cfgpkg.Load(cfgPath, cmd.Flags())
	if err != nil {
		return fail(exitConfig, "配置解析失败", err)
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		return fail(exitConfig, "配置校验失败", err)
	}

	corrID := diag.NewCorrID()
	var sink diag.LineSink
	if dir := strings.TrimSpace(cfg.Logging.Dir); dir != "" && dir != "-" {
		rf := diag.NewRotatingFile(dir, 10*1024*1024).WithRetention(5)
		defer rf.Close()
		sink = rf
	}
	logger := diag.NewLoggerTo(corrID, cfg.Logging.Level, sink)

	// 预检：若使用文件系统 Writer，检查输出目录的可写性
	if err := preflightCheckOutputDir(cfg); err != nil {
		logger.Error("pipeline", string(diag.Classify(err)), "preflight failed", &start)
		return fail(exitConfig, "输出目录不可写或无法创建", err)
	}
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		logger.Error("pipeline", string(diag.Classify(err)), "assemble failed", &start)
		return fail(exitConfig, "装配失败", err)
	}
	term := diag.NewTerminal(stderr, status)
	set.Terminal = term

	logger.Debugf("config", "", "", "dataset=%s ocr=%s family=%s layout=%s splits=%v concurrency=%d output=%s",
		cfg.Dataset, cfg.OCR, cfg.Family, cfg.OCRLayout, cfg.Splits, cfg.Concurrency, cfg.Output)

	t := logger.Start("pipeline", "run")
	rep, err := pipelineRun(cmd.Context(), comp, set, logger)
	defer writeMetrics(logger, cfg.MetricsFile)
	if err != nil {
		code := diag.Classify(err)
		logger.Error("pipeline", string(code), "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != diag.CodeUnknown {
			diag.IncError("pipeline", string(code))
		}
		term.RunFinish(false, time.Since(start))
		return fail(exitRun, "运行失败", err)
	}
	t.Finish("run", int64(rep.Instances()))
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	term.RunFinish(true, time.Since(start))

	out := cmd.OutOrStdout()
	for _, s := range rep.Splits {
		if !s.Found {
			fmt.Fprintf(out, "%-5s  (not found)\n", s.Split)
			continue
		}
		fmt.Fprintf(out, "%-5s  documents=%d instances=%d skipped=%d (missing=%d malformed=%d) -> %s\n",
			s.Split, s.Documents, s.Instances, s.Missing+s.Malformed, s.Missing, s.Malformed, s.Artifact)
	}
	if rep.AddedTokens > 0 {
		fmt.Fprintf(out, "added tokens: %d -> %s\n", rep.AddedTokens, rep.AddedTokensID)
	}
	return nil
}

func writeMetrics(logger *diag.Logger, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if err := diag.WriteTextfile(path); err != nil {
		logger.Warn("metrics", string(diag.Classify(err)), "write metrics failed: "+err.Error(), map[string]string{"path": path})
	}
}

// preflightCheckOutputDir: 当 Writer 使用文件系统实现(fs)时，启动前检查输出目录可写性。
// 规则：
// - 若目录已存在：尝试创建并删除临时文件；失败则判为不可写。
// - 若目录不存在：检查最近的已存在祖先目录可写（尝试创建并删除临时目录）。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	writerName := strings.TrimSpace(cfg.Components.Writer)
	if writerName == "" {
		writerName = cfgpkg.Defaults().Components.Writer
	}
	if writerName != "fs" {
		return nil
	}
	dir := strings.TrimSpace(cfg.Output)
	if dir == "" {
		if s, ok := cfg.Options.Writer["output_dir"].(string); ok {
			dir = strings.TrimSpace(s)
		}
	}
	if dir == "" {
		// 未指定时无法可靠检查，让装配阶段按实现自行报错
		return nil
	}
	st, err := os.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		return os.Remove(name)
	case err == nil:
		return fmt.Errorf("路径存在但不是目录: %s", dir)
	case !os.IsNotExist(err):
		return err
	}
	parent := filepath.Dir(filepath.Clean(dir))
	for {
		pst, err := os.Stat(parent)
		if err == nil {
			if !pst.IsDir() {
				return fmt.Errorf("父路径不是目录: %s", parent)
			}
			break
		}
		if !os.IsNotExist(err) {
			return err
		}
		next := filepath.Dir(parent)
		if next == parent {
			return fmt.Errorf("无法确定父目录: %s", dir)
		}
		parent = next
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	return os.RemoveAll(tmpd)
}
