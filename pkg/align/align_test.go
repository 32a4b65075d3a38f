package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
)

func TestFixBoundaries(t *testing.T) {
	in := []models.RawSegment{
		{Start: 0.2, End: 2.0, Text: "a"},
		{Start: 2.5, End: 4.0, Text: "b"}, // 空隙
		{Start: 3.5, End: 5.0, Text: "c"}, // 重叠
		{Start: 5.0, End: 4.8, Text: "d"}, // 结束早于开始
	}
	out := FixBoundaries(in)

	require.Len(t, out, 4)
	assert.Equal(t, 0.2, out[0].Start)
	assert.Equal(t, 2.0, out[1].Start)
	assert.Equal(t, 4.0, out[2].Start)
	assert.Equal(t, 5.0, out[3].Start)
	assert.Equal(t, 5.0, out[3].End)
	// 输入不被修改
	assert.Equal(t, 2.5, in[1].Start)
}

func TestBuildTimeline(t *testing.T) {
	segs := []models.RawSegment{
		{Start: 0, End: 4, Text: "hello, world"},
		{Start: 4, End: 10, Text: "how are you today?"},
	}
	tl, raw := BuildTimeline(segs)

	assert.Equal(t, "hello, world how are you today?", raw)
	require.Equal(t, 24, tl.Len())
	assert.Equal(t, 10.0, tl.End)

	assert.Equal(t, 'h', tl.Points[0].Char)
	assert.InDelta(t, 0.0, tl.Points[0].Timestamp, 1e-9)
	assert.InDelta(t, 0.4, tl.Points[1].Timestamp, 1e-9)
	assert.InDelta(t, 3.6, tl.Points[9].Timestamp, 1e-9)
	assert.Equal(t, 'h', tl.Points[10].Char)
	assert.InDelta(t, 4.0, tl.Points[10].Timestamp, 1e-9)
	assert.InDelta(t, 4.0+13*6.0/14, tl.Points[23].Timestamp, 1e-9)

	for i := 1; i < tl.Len(); i++ {
		assert.GreaterOrEqual(t, tl.Points[i].Timestamp, tl.Points[i-1].Timestamp)
	}

	assert.Equal(t, 10.0, tl.TimestampAt(100))
	assert.Equal(t, 0.0, tl.TimestampAt(-1))
}

func TestBuildTimelineCJKAndEmpty(t *testing.T) {
	segs := []models.RawSegment{
		{Start: 0, End: 2, Text: "你好，世界"},
		{Start: 2, End: 3, Text: "。。"},
		{Start: 3, End: 4, Text: "再见"},
	}
	tl, raw := BuildTimeline(segs)
	assert.Equal(t, "你好，世界。。再见", raw)
	require.Equal(t, 6, tl.Len())
	assert.InDelta(t, 0.5, tl.Points[1].Timestamp, 1e-9)
	assert.InDelta(t, 3.0, tl.Points[4].Timestamp, 1e-9)

	empty, raw := BuildTimeline(nil)
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, "", raw)
}

func TestScorer(t *testing.T) {
	target := runeStrings("helloworld")
	sc := newScorer(target, 5)
	assert.InDelta(t, 1.0, sc.score(runeStrings("helloworld")), 1e-9)
	assert.Less(t, sc.score(runeStrings("helloworlx")), 1.0)
	assert.Less(t, sc.score(runeStrings("zzzzzzzzzz")), 0.1)

	// 目标比 k 短
	short := newScorer(runeStrings("ab"), 5)
	assert.InDelta(t, 1.0, short.score(runeStrings("ab")), 1e-9)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("abc", "abc"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
	assert.InDelta(t, 0.8, Similarity("abcde", "abcdf"), 1e-9)
}

func TestAlignerHelloWorld(t *testing.T) {
	segs := FixBoundaries([]models.RawSegment{
		{Start: 0, End: 4, Text: "helloworld"},
		{Start: 4, End: 10, Text: "howareyoutoday"},
	})
	tl, _ := BuildTimeline(segs)

	a := NewAligner(tl, DefaultOptions())
	got := a.AlignAll([]string{"Hello world.", "How are you today?"})

	require.Len(t, got, 2)
	assert.InDelta(t, 0.0, got[0].Start, 1e-9)
	assert.InDelta(t, 4.0, got[0].End, 1e-9)
	assert.Equal(t, "Hello world.", got[0].Content)
	assert.InDelta(t, 4.0, got[1].Start, 1e-9)
	assert.InDelta(t, 10.0, got[1].End, 1e-9)
	assert.Equal(t, "How are you today?", got[1].Content)
	assert.Equal(t, 24, a.Cursor())
	assert.Equal(t, 0, a.LowConfidenceCount())
}

func TestAlignerRecoversFromASRErrors(t *testing.T) {
	// 每个字符 0.1 秒
	const perChar = 0.1
	sentences := []string{"The quick brown fox jump", "s over the lazy dog again"}

	cases := map[string]string{
		"substitution": "soverthekazydogagain",  // l -> k
		"insertion":    "sovertheXlazydogagain", // 多识别一个字符
		"deletion":     "soverthelazydgagain",   // 少识别一个字符
	}

	for name, second := range cases {
		t.Run(name, func(t *testing.T) {
			secondEnd := 2.0 + float64(len(second))*perChar
			segs := FixBoundaries([]models.RawSegment{
				{Start: 0, End: 2.0, Text: "thequickbrownfoxjump"},
				{Start: 2.0, End: secondEnd, Text: second},
			})
			tl, _ := BuildTimeline(segs)
			got := NewAligner(tl, DefaultOptions()).AlignAll(sentences)

			require.Len(t, got, 2)
			assert.InDelta(t, 0.0, got[0].Start, perChar)
			assert.InDelta(t, 2.0, got[0].End, perChar)
			assert.InDelta(t, 2.0, got[1].Start, perChar)
			assert.InDelta(t, secondEnd, got[1].End, perChar)
		})
	}
}

func TestAlignerCJK(t *testing.T) {
	segs := FixBoundaries([]models.RawSegment{
		{Start: 0, End: 3, Text: "今天天气很好我们"},
		{Start: 3, End: 6, Text: "去公园散步吧"},
	})
	tl, _ := BuildTimeline(segs)
	got := NewAligner(tl, DefaultOptions()).AlignAll([]string{"今天天气很好。", "我们去公园散步吧！"})

	require.Len(t, got, 2)
	assert.InDelta(t, 0.0, got[0].Start, 1e-9)
	assert.InDelta(t, 3.0*6/8, got[0].End, 1e-9)
	assert.InDelta(t, 3.0*6/8, got[1].Start, 1e-9)
	assert.InDelta(t, 6.0, got[1].End, 1e-9)
}

func TestAlignerLowConfidenceAndExhaustion(t *testing.T) {
	segs := []models.RawSegment{{Start: 0, End: 2, Text: "abcdefghij"}}
	tl, _ := BuildTimeline(segs)
	a := NewAligner(tl, DefaultOptions())

	got := a.AlignAll([]string{
		"abcdefghij",
		"this sentence was never spoken at all",
		"",
	})

	require.Len(t, got, 3)
	assert.InDelta(t, 2.0, got[0].End, 1e-9)
	// 超出时间轴：落在终点，不会失败
	assert.Equal(t, 2.0, got[1].Start)
	assert.Equal(t, 2.0, got[1].End)
	assert.Equal(t, "", got[2].Content)
	assert.Equal(t, 1, a.LowConfidenceCount())
	assert.Equal(t, 10, a.Cursor())
}

func TestAlignerCursorMonotonic(t *testing.T) {
	segs := []models.RawSegment{
		{Start: 0, End: 3, Text: "one two three"},
		{Start: 3, End: 6, Text: "four five six"},
		{Start: 6, End: 9, Text: "seven eight nine"},
	}
	tl, _ := BuildTimeline(FixBoundaries(segs))
	a := NewAligner(tl, DefaultOptions())

	prev := 0
	var lastEnd float64
	for _, s := range []string{"One two three.", "Four five six.", "Seven eight nine."} {
		seg := a.Align(s)
		assert.GreaterOrEqual(t, a.Cursor(), prev)
		assert.GreaterOrEqual(t, seg.Start, lastEnd-1e-9)
		prev = a.Cursor()
		lastEnd = seg.End
	}
	assert.InDelta(t, 9.0, lastEnd, 1e-9)
}

func TestAlignerRepeatedWordStaysForward(t *testing.T) {
	segs := []models.RawSegment{
		{Start: 0, End: 5, Text: "abcyesdefg"},
		{Start: 5, End: 6.5, Text: "yes"},
		{Start: 6.5, End: 8, Text: "xyz"},
	}
	tl, _ := BuildTimeline(FixBoundaries(segs))
	a := NewAligner(tl, DefaultOptions())

	first := a.Align("abc yes defg.")
	assert.InDelta(t, 0.0, first.Start, 1e-9)
	assert.Equal(t, 10, a.Cursor())

	// 回退窗口内也有一个完全相同的 "yes"，应取游标之后的那个
	second := a.Align("Yes.")
	assert.InDelta(t, 5.0, second.Start, 1e-9)
	assert.InDelta(t, 6.5, second.End, 1e-9)
	assert.Equal(t, 13, a.Cursor())

	third := a.Align("xyz.")
	assert.InDelta(t, 6.5, third.Start, 1e-9)
	assert.InDelta(t, 8.0, third.End, 1e-9)
	assert.Equal(t, 16, a.Cursor())
	assert.Zero(t, a.LowConfidenceCount())
}

func TestNewAlignerDefaultsThreshold(t *testing.T) {
	tl, _ := BuildTimeline([]models.RawSegment{{Start: 0, End: 2, Text: "hello world"}})
	a := NewAligner(tl, Options{})

	a.Align("zzz qqq")
	assert.Equal(t, 1, a.LowConfidenceCount())
}

func TestEnforceMonotonic(t *testing.T) {
	in := []models.AlignedSegment{
		{Start: 0, End: 2, Content: "a"},
		{Start: 1.5, End: 3, Content: "b"}, // 重叠
		{Start: 3, End: 2.5, Content: "c"}, // 时长为负
		{Start: 4, End: 4, Content: "d"},   // 时长为零
	}
	out := EnforceMonotonic(in, 1.0)

	require.Len(t, out, 4)
	assert.Equal(t, 2.0, out[1].Start)
	assert.Equal(t, 3.0, out[1].End)
	assert.Equal(t, 3.0, out[2].Start)
	assert.Equal(t, 4.0, out[2].End)
	assert.Equal(t, 4.0, out[3].Start)
	assert.Equal(t, 5.0, out[3].End)
	for i := range out {
		assert.Greater(t, out[i].End, out[i].Start)
		if i > 0 {
			assert.GreaterOrEqual(t, out[i].Start, out[i-1].End)
		}
	}
	// 输入不被修改
	assert.Equal(t, 1.5, in[1].Start)

	// 非正的最小时长使用默认值
	out = EnforceMonotonic([]models.AlignedSegment{{Start: 1, End: 1}}, 0)
	assert.Equal(t, 1.0+DefaultMinDuration, out[0].End)
}
