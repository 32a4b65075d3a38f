package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
)

func TestFixBoundariesRechains(t *testing.T) {
	in := []models.MergedSegment{
		{Start: 0.4, End: 3, Content: "a"},
		{Start: 3.2, End: 6, Content: "b"},
		{Start: 5.5, End: 9, Content: "c"},
	}
	out := FixBoundaries(in, 10)

	require.Len(t, out, 3)
	assert.Equal(t, models.MergedSegment{Start: 0, End: 3, Duration: 3, Content: "a"}, out[0])
	assert.Equal(t, models.MergedSegment{Start: 3, End: 6, Duration: 3, Content: "b"}, out[1])
	assert.Equal(t, models.MergedSegment{Start: 6, End: 10, Duration: 4, Content: "c"}, out[2])
	assert.Equal(t, 0.4, in[0].Start)
}

func TestFixBoundariesFoldsNonPositive(t *testing.T) {
	in := []models.MergedSegment{
		{Start: 0, End: 0, Content: "first"},
		{Start: 0, End: 3, Content: "second"},
		{Start: 2, End: 2.5, Content: "third"}, // 被上一段覆盖
		{Start: 3, End: 5, Content: "fourth"},
	}
	out := FixBoundaries(in, 6)

	require.Len(t, out, 2)
	assert.Equal(t, "first second third", out[0].Content)
	assert.Equal(t, 0.0, out[0].Start)
	assert.Equal(t, 3.0, out[0].End)
	assert.Equal(t, "fourth", out[1].Content)
	assert.Equal(t, 6.0, out[1].End)
}

func TestFixBoundariesTailBeyondAudio(t *testing.T) {
	in := []models.MergedSegment{
		{Start: 0, End: 4, Content: "你好。"},
		{Start: 4, End: 9.5, Content: "世界。"},
		{Start: 9.5, End: 10.5, Content: "再见。"},
	}
	out := FixBoundaries(in, 9.0)

	require.Len(t, out, 2)
	assert.Equal(t, "世界。再见。", out[1].Content)
	assert.Equal(t, 9.0, out[1].End)
	assert.Equal(t, 5.0, out[1].Duration)
}

func TestFixBoundariesDegenerate(t *testing.T) {
	assert.Nil(t, FixBoundaries(nil, 5))

	out := FixBoundaries([]models.MergedSegment{{Start: 0, End: 0, Content: "x"}}, 5)
	require.Len(t, out, 1)
	assert.Equal(t, models.MergedSegment{Start: 0, End: 5, Duration: 5, Content: "x"}, out[0])
}

func TestJoinContent(t *testing.T) {
	assert.Equal(t, "a b", joinContent("a", "b"))
	assert.Equal(t, "你好。世界", joinContent("你好。", "世界"))
	assert.Equal(t, "b", joinContent("", "b"))
	assert.Equal(t, "a", joinContent("a", ""))
}
