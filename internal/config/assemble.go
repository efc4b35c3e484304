package config

import (
	"encoding/json"
	"fmt"
	"maps"

	"docseq/internal/pipeline"
	"docseq/pkg/contract"
	"docseq/pkg/corpus"
	"docseq/pkg/registry"
	"docseq/pkg/strategy"
)

// CorpusOptions 转换为 corpus.Options；策略名未知返回 ErrConfiguration。
func (c CorpusOptions) CorpusOptions() (corpus.Options, error) {
	o := corpus.Options{
		UnescapePrefix:        c.UnescapePrefix,
		UnescapeValues:        c.UnescapeValues,
		UsePrefix:             c.UsePrefix,
		PrefixSeparator:       c.PrefixSeparator,
		ValuesSeparator:       c.ValuesSeparator,
		SingleProperty:        c.SingleProperty,
		UseNoneAnswers:        c.UseNoneAnswers,
		CaseAugmentation:      c.CaseAugmentation,
		LowercaseExpected:     c.LowercaseExpected,
		LowercaseInput:        c.LowercaseInput,
		AugmentTokensFromFile: c.AugmentTokensFromFile,
		PrefixMode:            corpus.PrefixMode(c.PrefixMode),
		QuestionTemplate:      c.QuestionTemplate,
		NoneAnswer:            c.NoneAnswer,
	}
	var err error
	if o.TrainStrategy, err = strategy.Parse(c.TrainStrategy); err != nil {
		return o, fmt.Errorf("train_strategy: %w", err)
	}
	if o.DevStrategy, err = strategy.Parse(c.DevStrategy); err != nil {
		return o, fmt.Errorf("dev_strategy: %w", err)
	}
	if o.TestStrategy, err = strategy.Parse(c.TestStrategy); err != nil {
		return o, fmt.Errorf("test_strategy: %w", err)
	}
	return o, o.Validate()
}

// Validate 对最小必要边界做静态校验；全部错误包裹 ErrConfiguration。
func Validate(cfg Config) error {
	if cfg.Dataset == "" {
		return fmt.Errorf("config: dataset not set: %w", contract.ErrConfiguration)
	}
	if cfg.OCR == "" {
		return fmt.Errorf("config: ocr provider not set: %w", contract.ErrConfiguration)
	}
	if cfg.Concurrency < 1 {
		return fmt.Errorf("config: concurrency must be >= 1: %w", contract.ErrConfiguration)
	}
	if _, err := parseSplits(cfg.Splits); err != nil {
		return err
	}
	if cfg.Family != "" {
		if _, err := corpus.ParseFamily(cfg.Family); err != nil {
			return err
		}
	}
	switch cfg.OCRLayout {
	case "", "auto":
	default:
		if registry.OCRSource[cfg.OCRLayout] == nil {
			return fmt.Errorf("config: ocr_layout %q not registered (want auto or one of %v): %w",
				cfg.OCRLayout, registry.Names(registry.OCRSource), contract.ErrConfiguration)
		}
	}
	if name := effName(cfg.Components.Reader, Defaults().Components.Reader); registry.AnnotationReader[name] == nil {
		return fmt.Errorf("config: reader %q not registered: %w", name, contract.ErrConfiguration)
	}
	if name := effName(cfg.Components.Writer, Defaults().Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered: %w", name, contract.ErrConfiguration)
	}
	if _, err := cfg.Corpus.CorpusOptions(); err != nil {
		return err
	}
	return nil
}

// Assemble 构造 Corpus、Writer 与运行设置。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	d := Defaults()

	opts, err := cfg.Corpus.CorpusOptions()
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	c, err := corpus.New(opts)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	wopts := maps.Clone(cfg.Options.Writer)
	if cfg.Output != "" {
		if wopts == nil {
			wopts = map[string]any{}
		}
		wopts["output_dir"] = cfg.Output
	}
	wraw, err := toRaw("writer", wopts)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	w, err := registry.Writer[effName(cfg.Components.Writer, d.Components.Writer)](wraw)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	rraw, err := toRaw("reader", cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	rd, err := registry.AnnotationReader[effName(cfg.Components.Reader, d.Components.Reader)](rraw)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	nraw, err := toRaw("normalizer", cfg.Options.Normalizer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	oraw, err := toRaw("ocr", cfg.Options.OCR)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	bind := []corpus.BindOption{
		corpus.WithAnnotationReader(rd),
		corpus.WithNormalizerOptions(nraw),
		corpus.WithOCRLayout(cfg.OCRLayout, oraw),
	}
	if cfg.Family != "" {
		bind = append(bind, corpus.WithFamily(contract.Family(cfg.Family)))
	}
	splits, _ := parseSplits(cfg.Splits)

	comp := pipeline.Components{Corpus: c, Writer: w}
	set := pipeline.Settings{
		Dataset:     cfg.Dataset,
		OCR:         cfg.OCR,
		Bind:        bind,
		Splits:      splits,
		Concurrency: cfg.Concurrency,
	}
	return comp, set, nil
}

func parseSplits(names []string) ([]contract.Split, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("config: splits empty: %w", contract.ErrConfiguration)
	}
	seen := make(map[contract.Split]bool, len(names))
	out := make([]contract.Split, 0, len(names))
	for _, n := range names {
		s, err := contract.ParseSplit(n)
		if err != nil {
			return nil, err
		}
		if seen[s] {
			return nil, fmt.Errorf("config: split %q listed twice: %w", s, contract.ErrConfiguration)
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

func toRaw(name string, m map[string]any) (json.RawMessage, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("options.%s: %v: %w", name, err, contract.ErrConfiguration)
	}
	return b, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
