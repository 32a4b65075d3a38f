package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/llm"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/refine"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/store"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/textnorm"
)

type fakeASR struct {
	segments []models.RawSegment
	err      error
	calls    int
}

func (f *fakeASR) Transcribe(context.Context, string, string) ([]models.RawSegment, error) {
	f.calls++
	return f.segments, f.err
}

type fakeDiarizer struct {
	turns []models.DiarizationTurn
	err   error
	calls int
}

func (f *fakeDiarizer) Diarize(context.Context, string) ([]models.DiarizationTurn, error) {
	f.calls++
	return f.turns, f.err
}

type fakeReorganizer struct {
	sentences []string
	err       error
	rawText   string
}

func (f *fakeReorganizer) Reorganize(_ context.Context, rawText, _ string) ([]string, error) {
	f.rawText = rawText
	return f.sentences, f.err
}

type fakeMerger struct {
	merged []models.MergedSegment
	err    error
	input  []models.AlignedSegment
}

func (f *fakeMerger) Merge(_ context.Context, segs []models.AlignedSegment, _ refine.MergeOptions) ([]models.MergedSegment, error) {
	f.input = segs
	if f.err != nil || f.merged != nil {
		return f.merged, f.err
	}
	out := make([]models.MergedSegment, len(segs))
	for i, s := range segs {
		out[i] = models.MergedSegment{Start: s.Start, End: s.End, Duration: s.End - s.Start, Content: s.Content}
	}
	return out, nil
}

type fixedProber float64

func (p fixedProber) Duration(context.Context, string) (float64, error) {
	return float64(p), nil
}

func helloASR() *fakeASR {
	return &fakeASR{segments: []models.RawSegment{
		{Start: 0.0, End: 4.0, Text: "helloworld"},
		{Start: 4.0, End: 10.0, Text: "howareyoutoday"},
	}}
}

func helloReorganizer() *fakeReorganizer {
	return &fakeReorganizer{sentences: []string{"Hello world.", "How are you today?"}}
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF-fake-audio"), 0644))
	return path
}

func request(audio string) Request {
	return Request{AudioPath: audio, Language: "en", MinDuration: 1, MaxDuration: 20}
}

// assertInvariants 检查最终段落的覆盖、顺序和正时长
func assertInvariants(t *testing.T, segs []models.FinalSegment, audioDuration float64) {
	t.Helper()
	require.NotEmpty(t, segs)
	assert.InDelta(t, 0.0, segs[0].Start, 1e-9)
	assert.InDelta(t, audioDuration, segs[len(segs)-1].End, 1e-9)
	for i, s := range segs {
		assert.Greater(t, s.End, s.Start, "segment %d", i)
		assert.InDelta(t, s.End-s.Start, s.Duration, 1e-9, "segment %d", i)
		if i > 0 {
			assert.GreaterOrEqual(t, s.Start, segs[i-1].End, "segment %d", i)
		}
	}
}

func TestNewRequiresServices(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
	_, err = New(Deps{ASR: helloASR(), Reorganizer: helloReorganizer()})
	assert.Error(t, err)

	p, err := New(Deps{ASR: helloASR(), Reorganizer: helloReorganizer(), Merger: &fakeMerger{}})
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestRunHelloWorld(t *testing.T) {
	reorganizer := helloReorganizer()
	merger := refine.NewMerger(llm.CompleterFunc(func(context.Context, string, string) (string, error) {
		t.Fatal("segments are in bounds, merge service must not be called")
		return "", nil
	}))
	diarizer := &fakeDiarizer{}

	p, err := New(Deps{ASR: helloASR(), Diarizer: diarizer, Reorganizer: reorganizer, Merger: merger, Prober: fixedProber(10.0)})
	require.NoError(t, err)

	var stages []int
	p.Progress = func(percent int, _ string) { stages = append(stages, percent) }

	segs, err := p.Run(context.Background(), request(writeAudio(t)))
	require.NoError(t, err)

	assert.Equal(t, "helloworld howareyoutoday", reorganizer.rawText)
	assert.Equal(t, []models.FinalSegment{
		{Start: 0, End: 4, Duration: 4, Content: "Hello world."},
		{Start: 4, End: 10, Duration: 6, Content: "How are you today?"},
	}, segs)
	assert.Equal(t, 1, diarizer.calls)
	assert.Equal(t, 100, stages[len(stages)-1])
	for i := 1; i < len(stages); i++ {
		assert.GreaterOrEqual(t, stages[i], stages[i-1])
	}
}

func TestRunIsIdempotentWithStore(t *testing.T) {
	audio := writeAudio(t)
	asrEngine := helloASR()
	diarizer := &fakeDiarizer{turns: []models.DiarizationTurn{{Start: 0.2, End: 9, Speaker: "SPEAKER_00"}}}
	results := store.NewJSONStore(t.TempDir())

	p, err := New(Deps{ASR: asrEngine, Diarizer: diarizer, Reorganizer: helloReorganizer(), Merger: &fakeMerger{}, Store: results})
	require.NoError(t, err)

	first, err := p.Process(context.Background(), request(audio))
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.FileExists(t, first.StorePath)
	assert.NotEmpty(t, first.RunID)

	second, err := p.Process(context.Background(), request(audio))
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.NotEqual(t, first.RunID, second.RunID)

	assert.Equal(t, first.Segments, second.Segments)
	assert.Equal(t, 1, asrEngine.calls)
	assert.Equal(t, 1, diarizer.calls)
	for _, s := range second.Segments {
		assert.Equal(t, "SPEAKER_00", s.Speaker)
	}
}

func TestRunNoSentencesPersistsNothing(t *testing.T) {
	audio := writeAudio(t)
	dir := t.TempDir()
	diarizer := &fakeDiarizer{}

	p, err := New(Deps{ASR: helloASR(), Diarizer: diarizer, Reorganizer: &fakeReorganizer{}, Merger: &fakeMerger{}, Store: store.NewJSONStore(dir)})
	require.NoError(t, err)

	segs, err := p.Run(context.Background(), request(audio))
	assert.ErrorIs(t, err, ErrNoSentences)
	assert.Nil(t, segs)
	assert.Equal(t, 0, diarizer.calls)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunPropagatesServiceErrors(t *testing.T) {
	boom := errors.New("gpu out of memory")

	t.Run("asr", func(t *testing.T) {
		p, err := New(Deps{ASR: &fakeASR{err: boom}, Reorganizer: helloReorganizer(), Merger: &fakeMerger{}})
		require.NoError(t, err)
		_, err = p.Run(context.Background(), request(writeAudio(t)))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("reorganizer", func(t *testing.T) {
		p, err := New(Deps{ASR: helloASR(), Reorganizer: &fakeReorganizer{err: boom}, Merger: &fakeMerger{}})
		require.NoError(t, err)
		_, err = p.Run(context.Background(), request(writeAudio(t)))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("malformed merge", func(t *testing.T) {
		merger := refine.NewMerger(llm.CompleterFunc(func(context.Context, string, string) (string, error) {
			return "sorry, I cannot do that", nil
		}))
		merger.SkipInBounds = false
		p, err := New(Deps{ASR: helloASR(), Reorganizer: helloReorganizer(), Merger: merger})
		require.NoError(t, err)
		_, err = p.Run(context.Background(), request(writeAudio(t)))
		assert.ErrorIs(t, err, refine.ErrMalformedMerge)
	})

	t.Run("empty merge", func(t *testing.T) {
		p, err := New(Deps{ASR: helloASR(), Reorganizer: helloReorganizer(), Merger: &fakeMerger{merged: []models.MergedSegment{}}})
		require.NoError(t, err)
		_, err = p.Run(context.Background(), request(writeAudio(t)))
		assert.ErrorIs(t, err, refine.ErrMalformedMerge)
	})

	t.Run("diarization", func(t *testing.T) {
		p, err := New(Deps{ASR: helloASR(), Diarizer: &fakeDiarizer{err: boom}, Reorganizer: helloReorganizer(), Merger: &fakeMerger{}})
		require.NoError(t, err)
		_, err = p.Run(context.Background(), request(writeAudio(t)))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("bad request", func(t *testing.T) {
		p, err := New(Deps{ASR: helloASR(), Reorganizer: helloReorganizer(), Merger: &fakeMerger{}})
		require.NoError(t, err)
		_, err = p.Run(context.Background(), Request{})
		assert.Error(t, err)
		_, err = p.Run(context.Background(), Request{AudioPath: "a.wav", MinDuration: 5, MaxDuration: 2})
		assert.Error(t, err)
	})
}

func TestRunInvariantsWithMessyInput(t *testing.T) {
	asrEngine := &fakeASR{segments: []models.RawSegment{
		{Start: 0.3, End: 2.0, Text: "今天天气很好"},
		{Start: 2.4, End: 3.9, Text: "我们去公园"},   // 与上一段有空隙
		{Start: 3.7, End: 6.0, Text: "散步吧，好不好"}, // 与上一段重叠
		{Start: 6.0, End: 7.5, Text: "好的"},
	}}
	sentences := []string{"今天天气很好。", "我们去公园散步吧！", "好不好？", "好的。"}
	// 分组服务把前两句合并，并给出与输入不一致的边界
	merger := &fakeMerger{merged: []models.MergedSegment{
		{Start: 0.1, End: 5.0, Content: "今天天气很好。我们去公园散步吧！"},
		{Start: 5.2, End: 6.4, Content: "好不好？"},
		{Start: 6.4, End: 6.4, Content: "好的。"},
	}}
	diarizer := &fakeDiarizer{turns: []models.DiarizationTurn{
		{Start: 0.5, End: 5.1, Speaker: "A"},
		{Start: 5.1, End: 7.0, Speaker: "B"},
	}}

	p, err := New(Deps{ASR: asrEngine, Diarizer: diarizer, Reorganizer: &fakeReorganizer{sentences: sentences}, Merger: merger, Prober: fixedProber(8.0)})
	require.NoError(t, err)

	segs, err := p.Run(context.Background(), Request{AudioPath: writeAudio(t), Language: "zh", MinDuration: 1, MaxDuration: 10})
	require.NoError(t, err)
	assertInvariants(t, segs, 8.0)

	// 对齐后的段落交给分组服务前已经单调
	for i := 1; i < len(merger.input); i++ {
		assert.GreaterOrEqual(t, merger.input[i].Start, merger.input[i-1].End)
		assert.Greater(t, merger.input[i].End, merger.input[i].Start)
	}

	// 每个句子都按顺序保留在输出中
	var all strings.Builder
	for _, s := range segs {
		all.WriteString(textnorm.Normalize(s.Content))
	}
	assert.Equal(t, textnorm.Normalize(strings.Join(sentences, "")), all.String())

	assert.Equal(t, "A", segs[0].Speaker)
	assert.Equal(t, "B", segs[len(segs)-1].Speaker)
}

func TestRunWithoutProberUsesSpeechEnd(t *testing.T) {
	p, err := New(Deps{ASR: helloASR(), Reorganizer: helloReorganizer(), Merger: &fakeMerger{}})
	require.NoError(t, err)

	outcome, err := p.Process(context.Background(), request(writeAudio(t)))
	require.NoError(t, err)
	assert.Equal(t, 10.0, outcome.AudioDuration)
	assertInvariants(t, outcome.Segments, 10.0)
	assert.Equal(t, 2, outcome.SentenceCount)
	assert.Equal(t, 0, outcome.LowConfidence)
}
