package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"docseq/pkg/contract"
)

// ManifestFile: 数据集目录下可选的描述文件。
const ManifestFile = "dataset.yaml"

// Manifest: dataset.yaml 的结构。所有字段可选。
type Manifest struct {
	Name   string   `yaml:"name"`
	Family string   `yaml:"family"`
	OCR    []string `yaml:"ocr"`
}

// ReadManifest 读取 dataset.yaml；文件不存在时返回 (nil, nil)。
func ReadManifest(dir string) (*Manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", ManifestFile, err, contract.ErrConfiguration)
	}
	return &m, nil
}

// 目录名关键词 → 族（按顺序匹配）。
var familyHints = []struct {
	needle string
	family contract.Family
}{
	{"docvqa", contract.FamilyQA},
	{"infographic", contract.FamilyQA},
	{"wikitable", contract.FamilyQA},
	{"deepform", contract.FamilyKV},
	{"kleister", contract.FamilyKV},
	{"pwc", contract.FamilyTable},
	{"axcell", contract.FamilyTable},
	{"tabfact", contract.FamilyNLI},
}

// DetectFamily: dataset.yaml 的 family 优先，其次按目录名推断；都无法确定时返回 ErrConfiguration。
func DetectFamily(dir string, m *Manifest) (contract.Family, error) {
	if m != nil && strings.TrimSpace(m.Family) != "" {
		return ParseFamily(m.Family)
	}
	base := strings.ToLower(filepath.Base(filepath.Clean(dir)))
	for _, h := range familyHints {
		if strings.Contains(base, h.needle) {
			return h.family, nil
		}
	}
	return "", fmt.Errorf("cannot detect dataset family of %q (set family in %s): %w", dir, ManifestFile, contract.ErrConfiguration)
}

// ParseFamily 校验族标签。
func ParseFamily(s string) (contract.Family, error) {
	f := contract.Family(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case contract.FamilyQA, contract.FamilyKV, contract.FamilyTable, contract.FamilyNLI:
		return f, nil
	}
	return "", fmt.Errorf("unknown dataset family %q: %w", s, contract.ErrConfiguration)
}

// checkProvider: dataset.yaml 声明了 ocr 列表时，提供方必须在列表内。
func checkProvider(m *Manifest, provider string) error {
	if m == nil || len(m.OCR) == 0 || slices.Contains(m.OCR, provider) {
		return nil
	}
	return fmt.Errorf("ocr %q not declared in %s %v: %w", provider, ManifestFile, m.OCR, contract.ErrConfiguration)
}
