package corpus

import (
	"bytes"
	"strings"
	"text/template"

	"docseq/pkg/contract"
	"docseq/pkg/strategy"
)

// Builder 将单个属性转换为零到两个 DataInstance。
// 纯函数式：不持有跨调用状态，可并发使用。
type Builder struct {
	opts     Options
	question *template.Template
	joiner   string
}

// NewBuilder 校验选项并预解析问题模板。
func NewBuilder(opts Options) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	b := &Builder{opts: opts, joiner: " " + strings.TrimSpace(opts.PrefixSeparator) + " "}
	if opts.PrefixMode == PrefixQuestion {
		tpl, err := parseQuestion(opts.QuestionTemplate)
		if err != nil {
			return nil, err
		}
		b.question = tpl
	}
	return b, nil
}

// Build 按以下顺序处理：
//  1. unescape_values 时逐值还原转义；
//  2. 策略合并，lowercase_expected 时小写；
//  3. 结果为空且未启用 use_none_answers 时丢弃该属性；
//  4. 生成前缀；
//  5. case_augmentation 时追加一条以小写候选值合并的实例，前缀与第一条相同
//     （大小写只随 lowercase_input）；与第一条逐字节相同则不追加。
//
// doc 原样挂到实例上，调用方负责 lowercase_input 的 token 变换。
func (b *Builder) Build(p contract.Property, doc *contract.Document2D, s strategy.Strategy) []contract.DataInstance {
	values := p.Values
	if b.opts.UnescapeValues {
		values = make([]string, len(p.Values))
		for i, v := range p.Values {
			values[i] = Unescape(v)
		}
	}
	out, ok := b.output(values, s)
	if !ok {
		return nil
	}
	outPrefix, inPrefix := b.prefix(p.Name)
	first := contract.DataInstance{
		Identifier:   p.DocumentID,
		InputPrefix:  inPrefix,
		Document:     doc,
		OutputPrefix: outPrefix,
		Output:       out,
	}
	if !b.opts.CaseAugmentation {
		return []contract.DataInstance{first}
	}
	aug := first
	aug.Output, _ = b.output(lowerAll(values), s)
	if aug == first {
		return []contract.DataInstance{first}
	}
	return []contract.DataInstance{first, aug}
}

// output 返回合并结果；ok=false 表示该属性应被丢弃。
func (b *Builder) output(values []string, s strategy.Strategy) (string, bool) {
	out := s.Combine(values, b.opts.ValuesSeparator)
	if b.opts.LowercaseExpected {
		out = lower(out)
	}
	if out == "" {
		if !b.opts.UseNoneAnswers {
			return "", false
		}
		return b.opts.NoneAnswer, true
	}
	return out, true
}

// prefix 返回 (output_prefix, input_prefix)；未启用前缀时均为空。
func (b *Builder) prefix(name string) (string, string) {
	if !b.opts.UsePrefix {
		return "", ""
	}
	if b.opts.UnescapePrefix {
		name = Unescape(name)
	}
	name = b.render(name)
	if b.opts.LowercaseInput {
		name = lower(name)
	}
	return b.withSeparator(name)
}

func (b *Builder) withSeparator(outPrefix string) (string, string) {
	if !b.opts.UsePrefix {
		return "", ""
	}
	return outPrefix, outPrefix + b.joiner
}

// render: question 模式下把字段名改写为问句；已是问句的名称保持不变。
func (b *Builder) render(name string) string {
	if b.question == nil {
		return name
	}
	trimmed := strings.TrimSpace(name)
	if strings.HasSuffix(trimmed, "?") {
		return name
	}
	human := strings.Join(strings.FieldsFunc(trimmed, func(r rune) bool { return r == '_' || r == ' ' }), " ")
	var buf bytes.Buffer
	if err := b.question.Execute(&buf, human); err != nil {
		return name
	}
	return buf.String()
}
