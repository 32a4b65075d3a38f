// Package textnorm 提供识别文本与改写文本共用的归一化、分句和简繁转换。
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// IsStripped 判断字符在归一化时是否被去掉：标点、符号、空白和控制字符，
// 包括中文全角标点。
func IsStripped(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) || unicode.IsControl(r)
}

// StripPunctuation 去掉标点和空白，保留字母、数字和汉字，不改变大小写
func StripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !IsStripped(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize 生成用于比较的文本：全角转半角、去标点空白、大小写折叠
func Normalize(s string) string {
	return cases.Fold().String(StripPunctuation(width.Fold.String(s)))
}

// Folder 逐字符归一化，供时间轴位置映射使用。非并发安全。
type Folder struct {
	caser cases.Caser
}

// NewFolder 创建逐字符归一化器
func NewFolder() *Folder {
	return &Folder{caser: cases.Fold()}
}

// Rune 返回单个字符归一化后的结果，可能为空串，也可能多于一个字符
func (f *Folder) Rune(r rune) string {
	s := width.Fold.String(string(r))
	s = StripPunctuation(s)
	if s == "" {
		return ""
	}
	return f.caser.String(s)
}

// CollapseWhitespace 把连续空白压缩为单个空格并去掉首尾空白
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
