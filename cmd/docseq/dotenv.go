package main

import (
	"errors"
	"io/fs"

	"github.com/subosito/gotenv"
)

// loadDotEnv 读取 .env 并注入进程环境。
// 不存在的文件忽略；已存在的环境变量不被覆盖（保持系统/调用者优先）。
func loadDotEnv(path string) error {
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
