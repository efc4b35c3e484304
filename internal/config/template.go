package config

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTemplateConfig 返回一个"可运行"的默认配置模板：
// - 指向仓库内置的 DocVQA 样例与 microsoft_cv OCR；
// - Writer 输出到 ./out 目录，原子替换；
// - 选项包含全部键，值为安全中性默认值。
func DefaultTemplateConfig() Config {
	cfg := Defaults()
	cfg.Dataset = "testdata/benchmarks/docvqa"
	cfg.OCR = "microsoft_cv"
	cfg.Concurrency = 3
	cfg.MetricsFile = ""
	cfg.Options = Options{
		Normalizer: map[string]any{},
		OCR:        map[string]any{},
		Reader: map[string]any{
			"buf_size":       65536,
			"max_line_bytes": 0,
			"validate":       true,
		},
		Writer: map[string]any{
			"atomic":   true,
			"gzip":     false,
			"buf_size": 65536,
		},
	}
	return cfg
}

// RenderYAML 以两空格缩进渲染配置（init-config 使用）。
func RenderYAML(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# docseq 配置（由 init-config 生成）\n")
	buf.WriteString("# 优先级：CLI > ENV(DOCSEQ_*) > 本文件 > 内置默认\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return buf.Bytes(), nil
}

// envKeys: .env 模板中列出的可覆盖键（嵌套键以下划线连接）。
var envKeys = []string{
	"CONFIG_FILE",
	"DATASET",
	"OCR",
	"FAMILY",
	"OCR_LAYOUT",
	"SPLITS",
	"OUTPUT",
	"CONCURRENCY",
	"METRICS_FILE",
	"LOGGING_LEVEL",
	"LOGGING_DIR",
	"CORPUS_USE_PREFIX",
	"CORPUS_PREFIX_SEPARATOR",
	"CORPUS_VALUES_SEPARATOR",
	"CORPUS_SINGLE_PROPERTY",
	"CORPUS_USE_NONE_ANSWERS",
	"CORPUS_CASE_AUGMENTATION",
	"CORPUS_LOWERCASE_EXPECTED",
	"CORPUS_LOWERCASE_INPUT",
	"CORPUS_UNESCAPE_PREFIX",
	"CORPUS_UNESCAPE_VALUES",
	"CORPUS_TRAIN_STRATEGY",
	"CORPUS_DEV_STRATEGY",
	"CORPUS_TEST_STRATEGY",
	"CORPUS_AUGMENT_TOKENS_FROM_FILE",
	"CORPUS_PREFIX_MODE",
	"CORPUS_QUESTION_TEMPLATE",
	"CORPUS_NONE_ANSWER",
}

// DotEnvTemplate 返回 .env 模板内容；空值表示未设置。
func DotEnvTemplate() string {
	var b strings.Builder
	b.WriteString("# docseq .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件\n")
	b.WriteString("# 空值表示未设置；按需填写。\n\n")
	for _, k := range envKeys {
		b.WriteString(EnvPrefix)
		b.WriteByte('_')
		b.WriteString(k)
		b.WriteString("=\n")
	}
	return b.String()
}
