package corpus

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Unescape 还原标注文件中的反斜杠转义：\n \t \r 为控制字符，
// 其余 \c 还原为 c（包括 \| 与 \\）。末尾孤立的反斜杠保留。
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// lower: Caser 非并发安全，每次调用新建。
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = lower(v)
	}
	return out
}
