package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	cfgpkg "docseq/internal/config"
)

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "Write a default docseq.yaml and .env template (existing files are kept)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fail(exitConfig, "生成默认配置失败", err)
			}
			b, err := cfgpkg.RenderYAML(cfgpkg.DefaultTemplateConfig())
			if err != nil {
				return fail(exitConfig, "生成默认配置失败", err)
			}
			out := cmd.OutOrStdout()
			cfgPath := filepath.Join(dir, defaultConfigFile)
			wrote, err := writeNew(cfgPath, b)
			if err != nil {
				return fail(exitConfig, "生成默认配置失败", err)
			}
			report(out, cfgPath, wrote)
			// .env 生成失败不影响配置文件
			envPath := filepath.Join(dir, ".env")
			if wrote, err := writeNew(envPath, []byte(cfgpkg.DotEnvTemplate())); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "提示：.env 生成失败（已跳过）：%v\n", err)
			} else {
				report(out, envPath, wrote)
			}
			return nil
		},
	}
}

func report(w io.Writer, path string, wrote bool) {
	if wrote {
		fmt.Fprintf(w, "created %s\n", path)
	} else {
		fmt.Fprintf(w, "kept existing %s\n", path)
	}
}

// writeNew 仅在文件不存在时写入；已存在返回 (false, nil)。
func writeNew(path string, b []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return false, err
	}
	return true, f.Close()
}
