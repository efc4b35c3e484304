package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"docseq/pkg/contract"
	"docseq/pkg/corpus"
)

// EnvPrefix: 环境变量前缀；嵌套键以下划线连接，例如 DOCSEQ_CORPUS_USE_PREFIX。
const EnvPrefix = "DOCSEQ"

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：dataset 与 ocr 不设默认（必须由文件/ENV/CLI 提供）。
func Defaults() Config {
	o := corpus.DefaultOptions()
	return Config{
		OCRLayout:   "auto",
		Splits:      []string{string(contract.Train), string(contract.Dev), string(contract.Test)},
		Output:      "out",
		Concurrency: 1,
		Logging:     Logging{Level: "info", Dir: "logs"},
		Corpus: CorpusOptions{
			UsePrefix:        o.UsePrefix,
			PrefixSeparator:  o.PrefixSeparator,
			ValuesSeparator:  o.ValuesSeparator,
			SingleProperty:   o.SingleProperty,
			TrainStrategy:    o.TrainStrategy.String(),
			DevStrategy:      o.DevStrategy.String(),
			TestStrategy:     o.TestStrategy.String(),
			PrefixMode:       string(o.PrefixMode),
			QuestionTemplate: o.QuestionTemplate,
		},
		Components: Components{Reader: "jsonl", Writer: "fs"},
	}
}

// flagKeys: CLI 旗标名 → 配置键。
var flagKeys = map[string]string{
	"dataset":      "dataset",
	"ocr":          "ocr",
	"family":       "family",
	"ocr-layout":   "ocr_layout",
	"split":        "splits",
	"output":       "output",
	"concurrency":  "concurrency",
	"metrics-file": "metrics_file",
	"log-level":    "logging.level",
	"log-dir":      "logging.dir",
}

// Load 按优先级合并：CLI 旗标 > ENV(DOCSEQ_*) > 配置文件 > Defaults。
// path 为空时只使用默认值、ENV 与旗标；文件中的未知键返回 ErrConfiguration。
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	base, err := yaml.Marshal(Defaults())
	if err != nil {
		return Config{}, fmt.Errorf("defaults: %v: %w", err, contract.ErrConfiguration)
	}
	// 默认值作为底层配置读入，使所有键对 AutomaticEnv 可见。
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return Config{}, fmt.Errorf("defaults: %v: %w", err, contract.ErrConfiguration)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if p := strings.TrimSpace(path); p != "" {
		v.SetConfigFile(p)
		v.SetConfigType(configType(p))
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("config %s: %v: %w", p, err, contract.ErrConfiguration)
		}
	}
	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("flag --%s: %v: %w", name, err, contract.ErrConfiguration)
			}
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %v: %w", err, contract.ErrConfiguration)
	}
	cfg.Dataset = strings.TrimSpace(cfg.Dataset)
	cfg.OCR = strings.TrimSpace(cfg.OCR)
	cfg.Family = strings.TrimSpace(cfg.Family)
	cfg.Splits = cleanList(cfg.Splits)
	return cfg, nil
}

// configType 由扩展名推断；无扩展名按 YAML 处理。
func configType(path string) string {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "":
		return "yaml"
	default:
		return ext
	}
}

// cleanList 去除空白项；同时接受逗号分隔的单项（来自 ENV）。
func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if t := strings.TrimSpace(p); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
