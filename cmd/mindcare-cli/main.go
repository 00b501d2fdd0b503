package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuqie6/mindcare/internal/bootstrap"
	"github.com/yuqie6/mindcare/internal/pkg/buildinfo"
	"github.com/yuqie6/mindcare/internal/pkg/config"
	"github.com/yuqie6/mindcare/internal/service"
)

var (
	cfgFile   string
	useMemory bool
	core      *bootstrap.Core
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "mindcare",
		Short:   "MindCare - 心理健康成长游戏的本地存档工具",
		Long:    `MindCare 管理玩家的等级、打卡、任务、活动和小游戏进度，存档保存在本地。`,
		Version: buildinfo.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var overrides []func(*config.Config)
			if useMemory {
				overrides = append(overrides, func(c *config.Config) {
					c.Storage.Backend = config.BackendMemory
				})
			}

			// 加载配置并初始化存储与存档
			var err error
			core, err = bootstrap.NewCore(cfgFile, overrides...)
			if err != nil {
				slog.Error("初始化失败", "error", err)
				os.Exit(1)
			}
			// 先显式加载，恢复/修复提示才能在任何命令之前输出
			mustLoad(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if core != nil {
				core.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false, "使用内存存储（不落盘）")

	// 添加子命令
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(xpCmd())
	rootCmd.AddCommand(checkinCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(questCmd())
	rootCmd.AddCommand(gameCmd())
	rootCmd.AddCommand(skillCmd())
	rootCmd.AddCommand(sampleCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(setCmd())
	rootCmd.AddCommand(watchCmd())

	return rootCmd
}

// mustLoad 加载存档，失败直接退出；写回失败只提示
func mustLoad(ctx context.Context) {
	if _, err := core.Store.Load(ctx); err != nil {
		exitOnErr("加载存档", err)
	}
	for _, line := range loadNotices(core.Store.Report()) {
		fmt.Fprintln(os.Stderr, line)
	}
}

// loadNotices 加载结果中需要提示用户的情况
func loadNotices(report service.LoadReport) []string {
	var lines []string
	if report.Recovered {
		lines = append(lines, fmt.Sprintf("⚠️  存档已损坏，原内容备份到 %s，已恢复为默认存档", report.CorruptedKey))
	}
	if report.IncompatibleKey != "" {
		lines = append(lines, fmt.Sprintf("⚠️  存档来自更新的版本 %s，已备份到 %s", report.StoredVersion, report.IncompatibleKey))
	}
	if len(report.Repaired) > 0 {
		lines = append(lines, fmt.Sprintf("⚠️  %d 个字段类型不符已修复（%s），原存档备份到 %s",
			len(report.Repaired), strings.Join(report.Repaired, ", "), report.RepairedKey))
	}
	return lines
}
