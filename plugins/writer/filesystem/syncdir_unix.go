//go:build !windows

package filesystem

import "os"

// syncDir 最佳努力 fsync 父目录，持久化 rename。
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
