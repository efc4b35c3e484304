package corpus

import (
	"fmt"
	"strings"
	"text/template"

	"docseq/pkg/contract"
	"docseq/pkg/strategy"
)

// PrefixMode: 前缀文本的生成方式。
type PrefixMode string

const (
	// PrefixProperty: 直接使用属性名（问题原文/字段名）。
	PrefixProperty PrefixMode = "property"
	// PrefixQuestion: 非问句的属性名经人性化后套入问题模板。
	PrefixQuestion PrefixMode = "question"
)

// DefaultQuestionTemplate: PrefixQuestion 模式下的问题模板。
const DefaultQuestionTemplate = "What is the {{.}}?"

// DefaultPrefixSeparator: 前缀分隔符默认字符（两侧各补一个空格）。
const DefaultPrefixSeparator = ":"

// Options: Corpus 的全部格式化选项。构造后只读。
type Options struct {
	UnescapePrefix bool
	UnescapeValues bool
	UsePrefix      bool
	// PrefixSeparator: 例如 ":"，实际输出为 " : "。
	PrefixSeparator string
	// ValuesSeparator: 例如 "|"，concat 实际使用 " | "。
	ValuesSeparator   string
	SingleProperty    bool
	UseNoneAnswers    bool
	CaseAugmentation  bool
	LowercaseExpected bool
	LowercaseInput    bool

	TrainStrategy strategy.Strategy
	DevStrategy   strategy.Strategy
	TestStrategy  strategy.Strategy

	// AugmentTokensFromFile: 可选补充词表（每行一个 token）；只加载不解析。
	AugmentTokensFromFile string

	PrefixMode       PrefixMode
	QuestionTemplate string
	// NoneAnswer: UseNoneAnswers 打开时空答案的输出文本。
	NoneAnswer string
}

// DefaultOptions 返回与常见基准配置一致的默认值。
func DefaultOptions() Options {
	return Options{
		UsePrefix:        true,
		PrefixSeparator:  DefaultPrefixSeparator,
		ValuesSeparator:  strategy.DefaultValuesSeparator,
		SingleProperty:   true,
		TrainStrategy:    strategy.FirstItem,
		DevStrategy:      strategy.Concat,
		TestStrategy:     strategy.Concat,
		PrefixMode:       PrefixProperty,
		QuestionTemplate: DefaultQuestionTemplate,
	}
}

// Strategy 返回切分对应的策略。
func (o Options) Strategy(s contract.Split) strategy.Strategy {
	switch s {
	case contract.Train:
		return o.TrainStrategy
	case contract.Dev:
		return o.DevStrategy
	default:
		return o.TestStrategy
	}
}

// Validate 校验选项；任何问题均返回 ErrConfiguration。
func (o Options) Validate() error {
	for _, sp := range contract.Splits() {
		switch o.Strategy(sp) {
		case strategy.FirstItem, strategy.Concat:
		default:
			return fmt.Errorf("%s_strategy: unknown %s: %w", sp, o.Strategy(sp), contract.ErrConfiguration)
		}
	}
	if strings.TrimSpace(o.ValuesSeparator) == "" {
		return fmt.Errorf("values_separator must not be blank: %w", contract.ErrConfiguration)
	}
	if o.UsePrefix && strings.TrimSpace(o.PrefixSeparator) == "" {
		return fmt.Errorf("prefix_separator must not be blank: %w", contract.ErrConfiguration)
	}
	switch o.PrefixMode {
	case "", PrefixProperty:
	case PrefixQuestion:
		if _, err := parseQuestion(o.QuestionTemplate); err != nil {
			return err
		}
	default:
		return fmt.Errorf("prefix_mode %q: %w", o.PrefixMode, contract.ErrConfiguration)
	}
	return nil
}

func parseQuestion(src string) (*template.Template, error) {
	if src == "" {
		src = DefaultQuestionTemplate
	}
	tpl, err := template.New("question").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("question_template: %v: %w", err, contract.ErrConfiguration)
	}
	return tpl, nil
}
