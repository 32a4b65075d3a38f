package textnorm

import (
	"fmt"
	"strings"

	"github.com/longbridgeapp/opencc"
)

// ScriptConverter 文字变体转换（简繁转换等）
type ScriptConverter interface {
	Convert(text string) (string, error)
}

type identityConverter struct{}

func (identityConverter) Convert(text string) (string, error) { return text, nil }

// NewScriptConverter 根据语言选择转换方向：
// zh / zh-cn / zh-hans 转为简体，zh-tw / zh-hk / zh-hant 转为繁体，其他语言不转换。
func NewScriptConverter(language string) (ScriptConverter, error) {
	var conversion string
	switch strings.ToLower(strings.ReplaceAll(language, "_", "-")) {
	case "zh", "zh-cn", "zh-hans", "zh-sg", "chinese":
		conversion = "t2s"
	case "zh-tw", "zh-hk", "zh-hant":
		conversion = "s2t"
	default:
		return identityConverter{}, nil
	}

	cc, err := opencc.New(conversion)
	if err != nil {
		return nil, fmt.Errorf("初始化简繁转换(%s)失败: %w", conversion, err)
	}
	return cc, nil
}
