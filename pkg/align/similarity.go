package align

import (
	"github.com/pmezard/go-difflib/difflib"
)

// scorer 对固定目标串计算候选串的综合相似度：
// 0.5*整体相似度 + 0.25*前k字符相似度 + 0.25*后k字符相似度。
// 识别漂移多出现在句中，首尾匹配单独加权。
type scorer struct {
	whole  *difflib.SequenceMatcher
	prefix *difflib.SequenceMatcher
	suffix *difflib.SequenceMatcher
	k      int
}

func newScorer(target []string, k int) *scorer {
	kk := k
	if kk > len(target) {
		kk = len(target)
	}
	return &scorer{
		whole:  difflib.NewMatcherWithJunk(nil, target, false, nil),
		prefix: difflib.NewMatcherWithJunk(nil, target[:kk], false, nil),
		suffix: difflib.NewMatcherWithJunk(nil, target[len(target)-kk:], false, nil),
		k:      k,
	}
}

func (s *scorer) score(candidate []string) float64 {
	kk := s.k
	if kk > len(candidate) {
		kk = len(candidate)
	}
	overall := ratio(s.whole, candidate)
	prefix := ratio(s.prefix, candidate[:kk])
	suffix := ratio(s.suffix, candidate[len(candidate)-kk:])
	return 0.5*overall + 0.25*prefix + 0.25*suffix
}

func ratio(m *difflib.SequenceMatcher, a []string) float64 {
	m.SetSeq1(a)
	return m.Ratio()
}

// Similarity 返回两个字符串按字符计算的 difflib 相似度（0-1）
func Similarity(a, b string) float64 {
	m := difflib.NewMatcherWithJunk(runeStrings(a), runeStrings(b), false, nil)
	return m.Ratio()
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
