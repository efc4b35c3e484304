// Package filesystem 将切分产物（train.jsonl 等）流式写入输出目录。
package filesystem

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"docseq/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// OutputDir: 输出根目录（必需）。
	OutputDir string `json:"output_dir"`
	// Atomic: 同目录临时文件 + rename。默认 true；显式 false 为覆盖写。
	Atomic *bool `json:"atomic,omitempty"`
	// Gzip: 以 gzip 压缩写出，文件名追加 ".gz"。
	Gzip bool `json:"gzip,omitempty"`
	// PermFile/PermDir: 为 0 时使用 0644 / 0755。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用 64KiB。
	BufSize int `json:"buf_size,omitempty"`
}

// FS 为文件系统 Writer；不同 ArtifactID 可并发写入。
type FS struct {
	root    string
	atomic  bool
	gzip    bool
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
}

// New 创建文件系统 Writer。OutputDir 为空返回 ErrConfiguration。
func New(opts *Options) (*FS, error) {
	if opts == nil || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("writer: empty output_dir: %w", contract.ErrConfiguration)
	}
	w := &FS{root: opts.OutputDir, atomic: true, gzip: opts.Gzip, permF: 0o644, permD: 0o755, bufSize: 64 * 1024}
	if opts.Atomic != nil {
		w.atomic = *opts.Atomic
	}
	if opts.PermFile != 0 {
		w.permF = opts.PermFile
	}
	if opts.PermDir != 0 {
		w.permD = opts.PermDir
	}
	if opts.BufSize > 0 {
		w.bufSize = opts.BufSize
	}
	return w, nil
}

var _ contract.Writer = (*FS)(nil)

// Write 将 r 的全部字节写入 id 对应的路径。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := w.Path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return err
	}
	if w.atomic {
		return w.writeAtomic(ctx, dest, r)
	}
	return w.writeOverwrite(ctx, dest, r)
}

// Path 返回 id 映射到的目标文件；越出输出目录的 id 返回 ErrPathInvalid。
func (w *FS) Path(id contract.ArtifactID) (string, error) {
	raw := strings.TrimSpace(string(id))
	rel := contract.NormalizeRelPath(raw)
	switch {
	case raw == "", rel == ".", rel == "..":
		return "", fmt.Errorf("artifact %q: %w", id, contract.ErrPathInvalid)
	case strings.HasPrefix(rel, "../"), path.IsAbs(rel), filepath.VolumeName(rel) != "":
		return "", fmt.Errorf("artifact %q: %w", id, contract.ErrPathInvalid)
	}
	if len(rel) >= 2 && rel[1] == ':' {
		return "", fmt.Errorf("artifact %q: %w", id, contract.ErrPathInvalid)
	}
	if w.gzip {
		rel += ".gz"
	}
	return filepath.Join(w.root, filepath.FromSlash(rel)), nil
}

// copyTo 依配置套上 gzip 后拷贝并刷新。
func (w *FS) copyTo(ctx context.Context, f io.Writer, r io.Reader) error {
	bw := bufio.NewWriterSize(f, w.bufSize)
	var dst io.Writer = bw
	var zw *gzip.Writer
	if w.gzip {
		zw = gzip.NewWriter(bw)
		dst = zw
	}
	if _, err := io.Copy(dst, readerWithCtx(ctx, r)); err != nil {
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (w *FS) writeOverwrite(ctx context.Context, dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	if err != nil {
		return err
	}
	if err := w.copyTo(ctx, f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, w.permF)

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := w.copyTo(ctx, tmp, r); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// Windows 上 os.Rename 同样以 MOVEFILE_REPLACE_EXISTING 替换
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = syncDir(dir)
	return nil
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
