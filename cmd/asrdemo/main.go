package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/asr"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// 只执行语音识别，可把结果保存为 file 引擎使用的 .asr.json 文件，之后离线对齐
func main() {
	audioPath := flag.String("audio", "", "音频文件路径")
	service := flag.String("service", asr.Auto, "ASR服务选择 (kuaishou, bcut, auto)")
	language := flag.String("lang", "zh", "识别语言")
	save := flag.Bool("save", false, "把识别结果保存到音频旁的 .asr.json 文件")
	logLevel := flag.String("log-level", utils.LogLevelNormal, "日志级别")
	logFile := flag.String("log-file", "", "日志文件路径")

	flag.Parse()

	if err := utils.InitLogger(*logLevel, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	if *audioPath == "" {
		utils.Log.Fatal("必须指定音频文件路径")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	selector := asr.NewSelector()
	selector.Register("kuaishou", asr.NewKuaiShouEngine(), 10)
	selector.Register("bcut", asr.NewBcutEngine(), 30)

	name, _, err := selector.Select(*service)
	if err != nil {
		utils.Log.Fatalf("选择ASR服务失败: %v", err)
	}
	utils.Log.Infof("开始识别音频文件 (服务 %s)...", name)

	start := time.Now()
	segments, err := selector.Engine(name).Transcribe(ctx, *audioPath, *language)
	if err != nil {
		utils.Log.Fatalf("识别失败: %v", err)
	}
	utils.Log.Infof("使用 %s 服务识别完成，耗时 %.2f 秒", name, time.Since(start).Seconds())

	utils.Log.Infof("识别结果 (%d 段):", len(segments))
	for i, seg := range segments {
		utils.Log.Infof("[%02d] %.2f-%.2f: %s", i+1, seg.Start, seg.End, seg.Text)
	}

	if *save {
		sidecar := asr.NewFileEngine().SidecarPath(*audioPath)
		if err := utils.SaveJSONFile(sidecar, segments); err != nil {
			utils.Log.Fatalf("保存识别结果失败: %v", err)
		}
		utils.Log.Infof("识别结果已保存: %s", sidecar)
	}

	stats := selector.GetStats()
	names := make([]string, 0, len(stats))
	for n := range stats {
		names = append(names, n)
	}
	sort.Strings(names)
	utils.Log.Info("ASR服务统计信息:")
	for _, n := range names {
		stat := stats[n]
		utils.Log.Infof("%s: 调用次数=%d, 成功=%d, 可用=%v", n, stat.TotalCount, stat.SuccessCount, stat.Available)
	}
}
