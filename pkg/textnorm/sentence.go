package textnorm

import (
	"strings"
	"unicode"
)

// 句末标点：半角 .!? 与全角 。！？
func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// 紧跟在句末标点后、应归入同一句的闭合符号
func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '」', '』', '）', '】', '》':
		return true
	}
	return false
}

// SplitSentences 按句末标点分句，标点保留在所在句子末尾。
// 连续的句末标点和闭合引号归入同一句；数字中的小数点不断句；
// 只有标点没有内容的碎片并入前一句。
func SplitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	var buf strings.Builder

	flush := func() {
		s := strings.TrimSpace(buf.String())
		buf.Reset()
		if s == "" {
			return
		}
		if StripPunctuation(s) == "" && len(sentences) > 0 {
			sentences[len(sentences)-1] += s
			return
		}
		sentences = append(sentences, s)
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		buf.WriteRune(r)
		if !isTerminator(r) {
			continue
		}
		if r == '.' && i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			continue
		}
		for i+1 < len(runes) && (isTerminator(runes[i+1]) || isCloser(runes[i+1])) {
			i++
			buf.WriteRune(runes[i])
		}
		flush()
	}
	flush()

	return sentences
}
