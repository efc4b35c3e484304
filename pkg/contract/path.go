package contract

import (
	"path"
	"strings"
)

// NormalizeRelPath 规范化相对路径，统一为跨平台稳定的正斜杠形式。
// 规则：
// - 反斜杠转为正斜杠
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizeRelPath(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

// DocumentFile 将文档标识映射为 OCR 子树内的相对文件名（id + ext）。
// 绝对路径、父级逃逸与空标识返回 ErrPathInvalid。
func DocumentFile(id DocumentID, ext string) (string, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", ErrPathInvalid
	}
	rel := NormalizeRelPath(s)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "/") {
		return "", ErrPathInvalid
	}
	// Windows 卷名（C:）同样视为越界
	if len(rel) >= 2 && rel[1] == ':' {
		return "", ErrPathInvalid
	}
	return rel + ext, nil
}
