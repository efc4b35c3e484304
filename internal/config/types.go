package config

// Config: 运行期只读配置（一次解析，运行期不变）。
// 键使用 snake_case；文件中出现未知键在解析期失败。
type Config struct {
	// Dataset: 基准目录（含 train/dev/test 子目录）。
	Dataset string `mapstructure:"dataset" yaml:"dataset"`
	// OCR: OCR 提供方名（例如 microsoft_cv）。
	OCR string `mapstructure:"ocr" yaml:"ocr"`
	// Family: 可选，显式指定数据集族；空则按 dataset.yaml / 目录名推断。
	Family string `mapstructure:"family" yaml:"family"`
	// OCRLayout: dir | content | auto。
	OCRLayout string `mapstructure:"ocr_layout" yaml:"ocr_layout"`
	// Splits: 需要导出的切分，按给定顺序。
	Splits []string `mapstructure:"splits" yaml:"splits"`
	// Output: 输出目录；非空时覆盖 options.writer.output_dir。
	Output      string `mapstructure:"output" yaml:"output"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	// MetricsFile: 非空时运行结束写出 Prometheus 文本格式指标。
	MetricsFile string  `mapstructure:"metrics_file" yaml:"metrics_file"`
	Logging     Logging `mapstructure:"logging" yaml:"logging"`

	Corpus     CorpusOptions `mapstructure:"corpus" yaml:"corpus"`
	Components Components    `mapstructure:"components" yaml:"components"`

	// 各组件 Options 子树，装配时序列化为 JSON 交给工厂严格解析。
	Options Options `mapstructure:"options" yaml:"options"`
}

// Logging: 日志等级与目录；轮转策略为固定默认。
type Logging struct {
	Level string `mapstructure:"level" yaml:"level"`
	// Dir: 日志目录；"-" 表示写 stderr。
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// CorpusOptions: corpus.Options 的配置形态（策略以名称给出）。
type CorpusOptions struct {
	UnescapePrefix        bool   `mapstructure:"unescape_prefix" yaml:"unescape_prefix"`
	UnescapeValues        bool   `mapstructure:"unescape_values" yaml:"unescape_values"`
	UsePrefix             bool   `mapstructure:"use_prefix" yaml:"use_prefix"`
	PrefixSeparator       string `mapstructure:"prefix_separator" yaml:"prefix_separator"`
	ValuesSeparator       string `mapstructure:"values_separator" yaml:"values_separator"`
	SingleProperty        bool   `mapstructure:"single_property" yaml:"single_property"`
	UseNoneAnswers        bool   `mapstructure:"use_none_answers" yaml:"use_none_answers"`
	CaseAugmentation      bool   `mapstructure:"case_augmentation" yaml:"case_augmentation"`
	LowercaseExpected     bool   `mapstructure:"lowercase_expected" yaml:"lowercase_expected"`
	LowercaseInput        bool   `mapstructure:"lowercase_input" yaml:"lowercase_input"`
	TrainStrategy         string `mapstructure:"train_strategy" yaml:"train_strategy"`
	DevStrategy           string `mapstructure:"dev_strategy" yaml:"dev_strategy"`
	TestStrategy          string `mapstructure:"test_strategy" yaml:"test_strategy"`
	AugmentTokensFromFile string `mapstructure:"augment_tokens_from_file" yaml:"augment_tokens_from_file"`
	PrefixMode            string `mapstructure:"prefix_mode" yaml:"prefix_mode"`
	QuestionTemplate      string `mapstructure:"question_template" yaml:"question_template"`
	NoneAnswer            string `mapstructure:"none_answer" yaml:"none_answer"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader string `mapstructure:"reader" yaml:"reader"`
	Writer string `mapstructure:"writer" yaml:"writer"`
}

// Options: 各组件的原样 Options 子树。
type Options struct {
	Normalizer map[string]any `mapstructure:"normalizer" yaml:"normalizer"`
	OCR        map[string]any `mapstructure:"ocr" yaml:"ocr"`
	Reader     map[string]any `mapstructure:"reader" yaml:"reader"`
	Writer     map[string]any `mapstructure:"writer" yaml:"writer"`
}
