package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripPunctuation(t *testing.T) {
	assert.Equal(t, "HelloWorld", StripPunctuation("Hello, World!"))
	assert.Equal(t, "你好世界", StripPunctuation("你好，世界。"))
	assert.Equal(t, "今天天气好吗", StripPunctuation("「今天」天气 好吗？！"))
	assert.Equal(t, "a1b2", StripPunctuation(" a-1\tb+2\n"))
	assert.Equal(t, "", StripPunctuation("...、；："))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "helloworld", Normalize("Hello world."))
	assert.Equal(t, "howareyoutoday", Normalize("How are you today?"))
	// 全角字母数字折叠为半角
	assert.Equal(t, "abc123", Normalize("ＡＢＣ１２３"))
	assert.Equal(t, "你好abc", Normalize("你好，ABC！"))
}

func TestFolderRune(t *testing.T) {
	f := NewFolder()
	assert.Equal(t, "a", f.Rune('A'))
	assert.Equal(t, "a", f.Rune('Ａ'))
	assert.Equal(t, "", f.Rune('，'))
	assert.Equal(t, "", f.Rune(' '))
	assert.Equal(t, "你", f.Rune('你'))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a \n\t b   c "))
	assert.Equal(t, "", CollapseWhitespace(" \n "))
}

func TestSplitSentences(t *testing.T) {
	t.Run("ascii", func(t *testing.T) {
		got := SplitSentences("Hello world. How are you today?")
		assert.Equal(t, []string{"Hello world.", "How are you today?"}, got)
	})

	t.Run("cjk", func(t *testing.T) {
		got := SplitSentences("今天天气很好。我们去公园吧！好不好？")
		assert.Equal(t, []string{"今天天气很好。", "我们去公园吧！", "好不好？"}, got)
	})

	t.Run("trailing clause without terminator", func(t *testing.T) {
		got := SplitSentences("First one. second one")
		assert.Equal(t, []string{"First one.", "second one"}, got)
	})

	t.Run("repeated terminators and closing quotes", func(t *testing.T) {
		got := SplitSentences("他说：“真的吗？！”然后走了。")
		assert.Equal(t, []string{"他说：“真的吗？！”", "然后走了。"}, got)
	})

	t.Run("decimal point does not split", func(t *testing.T) {
		got := SplitSentences("Pi is 3.14 roughly. Yes.")
		assert.Equal(t, []string{"Pi is 3.14 roughly.", "Yes."}, got)
	})

	t.Run("punctuation only fragment merges into previous", func(t *testing.T) {
		got := SplitSentences("Wait. . . Really?")
		assert.Equal(t, []string{"Wait...", "Really?"}, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, SplitSentences("   "))
	})
}

func TestNewScriptConverter(t *testing.T) {
	conv, err := NewScriptConverter("en")
	require.NoError(t, err)
	out, err := conv.Convert("Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)

	conv, err = NewScriptConverter("zh")
	require.NoError(t, err)
	out, err = conv.Convert("說話")
	require.NoError(t, err)
	assert.Equal(t, "说话", out)
}
