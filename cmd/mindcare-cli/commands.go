package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/yuqie6/mindcare/internal/eventbus"
	"github.com/yuqie6/mindcare/internal/schema"
	"github.com/yuqie6/mindcare/internal/value"
)

// statusCmd 玩家概况
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "查看玩家概况",
		Run: func(cmd *cobra.Command, args []string) {
			doc := core.Store.Document()
			p := doc.Player
			need := core.Table.ThresholdForLevel(p.Level)

			printf("🧠 %s  Lv.%d\n", displayName(p), p.Level)
			printf("   经验: %d / %d（累计 %d）\n", p.CurrentXP, need, p.TotalXP)
			printf("   金币: %d\n", p.Coins)
			printf("   连续打卡: %d 天（最长 %d 天）\n", p.Streak.Current, p.Streak.Longest)
			printf("   活动: %d  任务: %d  小游戏: %d\n",
				p.Stats.ActivitiesCompleted, p.Stats.QuestsCompleted, p.Stats.MiniGamesPlayed)
			printf("   待办任务: 每日 %d / 每周 %d / 可选 %d\n",
				len(doc.Quests.Daily), len(doc.Quests.Weekly), len(doc.Quests.Available))
		},
	}
}

func displayName(p schema.Player) string {
	if p.Archetype == nil {
		return p.Name
	}
	if a, ok := core.Table.Archetype(*p.Archetype); ok {
		return fmt.Sprintf("%s（%s）", p.Name, a.Name)
	}
	return p.Name
}

// xpCmd 直接加经验
func xpCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "xp <amount>",
		Short: "增加经验",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			amount, err := strconv.Atoi(args[0])
			if err != nil {
				exitOnErr("解析经验值", err)
			}
			awardXP(context.Background(), amount, source)
		},
	}
	cmd.Flags().StringVar(&source, "source", "manual", "经验来源")
	return cmd
}

func awardXP(ctx context.Context, amount int, source string) {
	res, err := core.Store.AddXP(ctx, amount, source)
	exitOnErr("增加经验", err)
	printf("✨ +%d XP（%s）\n", amount, source)
	if res.LeveledUp {
		printf("🎉 %s 升到 Lv.%d，获得 %d 金币\n", core.Table.LevelUpMessage(), res.NewLevel, res.CoinsAwarded)
	}
}

// checkinCmd 每日打卡
func checkinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkin",
		Short: "每日打卡",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			before := core.Store.Document().Player.Streak.LastCheckin
			streak, err := core.Store.CheckIn(ctx)
			exitOnErr("打卡", err)
			if before != nil && streak.LastCheckin != nil && before.Equal(*streak.LastCheckin) {
				printf("📅 今天已经打过卡了（连续 %d 天）\n", streak.Current)
				return
			}
			printf("📅 打卡成功，连续 %d 天\n", streak.Current)
			awardXP(ctx, core.Rewards.CheckinXP(streak.Current), "checkin")
		},
	}
}

// activityCmd 记录活动
func activityCmd() *cobra.Command {
	var typ, size, title string
	var xp int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "记录完成的活动",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			payload := value.Record{"type": value.String(typ), "size": value.String(size)}
			if title != "" {
				payload["title"] = value.String(title)
			}
			if cmd.Flags().Changed("xp") {
				payload["xp"] = value.Int(xp)
			}

			entry, err := core.Store.AddActivity(ctx, payload)
			exitOnErr("记录活动", err)
			printf("✅ 已记录活动 %s（%s）\n", entry.ID, entry.Type())

			streak := core.Store.Document().Player.Streak.Current
			awardXP(ctx, core.Rewards.ActivityXP(payload, streak), "activity")
		},
	}
	cmd.Flags().StringVar(&typ, "type", "mindfulness", "活动类型")
	cmd.Flags().StringVar(&size, "size", "standard", "活动规模: quick/standard/major")
	cmd.Flags().StringVar(&title, "title", "", "活动标题")
	cmd.Flags().IntVar(&xp, "xp", 0, "指定经验（覆盖规模）")
	return cmd
}

// questCmd 任务管理
func questCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quest",
		Short: "任务管理",
	}

	var typ, title string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "添加任务",
		Run: func(cmd *cobra.Command, args []string) {
			fields := value.Record{"type": value.String(typ)}
			if title != "" {
				fields["title"] = value.String(title)
			}
			q, err := core.Store.AddQuest(context.Background(), fields)
			exitOnErr("添加任务", err)
			printf("📝 已添加%s任务 %s\n", q.Type, q.ID)
		},
	}
	addCmd.Flags().StringVar(&typ, "type", schema.BucketDaily, "任务类型: daily/weekly/其他")
	addCmd.Flags().StringVar(&title, "title", "", "任务标题")

	completeCmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "完成任务",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			q, err := core.Store.CompleteQuest(ctx, args[0])
			exitOnErr("完成任务", err)
			if q == nil {
				printf("📭 没有找到任务 %s\n", args[0])
				return
			}
			printf("🏆 任务 %s 已完成\n", q.ID)

			coins := core.Store.Document().Player.Coins + core.Rewards.QuestCoins(q.Type)
			_, err = core.Store.UpdatePlayer(ctx, playerCoins(coins))
			exitOnErr("发放金币", err)
			printf("💰 获得 %d 金币\n", core.Rewards.QuestCoins(q.Type))
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "列出未完成任务",
		Run: func(cmd *cobra.Command, args []string) {
			doc := core.Store.Document()
			for _, name := range []string{schema.BucketDaily, schema.BucketWeekly, schema.BucketAvailable} {
				for _, q := range *doc.Quests.Bucket(name) {
					title, _ := q.Extra["title"].AsString()
					printf("%-10s %s  %s\n", name, q.ID, title)
				}
			}
		},
	}

	cmd.AddCommand(addCmd, completeCmd, listCmd)
	return cmd
}

// gameCmd 记录小游戏
func gameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "game <id> <score>",
		Short: "记录一局小游戏（breathing/moodmatcher/gratitude）",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			score, err := strconv.Atoi(args[1])
			if err != nil {
				exitOnErr("解析分数", err)
			}
			stats, err := core.Store.RecordMiniGame(ctx, args[0], score)
			exitOnErr("记录小游戏", err)
			printf("🎮 %s 已玩 %d 局，最高分 %d\n", args[0], stats.Played, stats.BestScore)

			streak := core.Store.Document().Player.Streak.Current
			awardXP(ctx, core.Rewards.MiniGameXP(args[0], streak), "minigame")
		},
	}
}

// skillCmd 技能树
func skillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skill",
		Short: "技能树",
	}
	xpCmd := &cobra.Command{
		Use:   "xp <branch> <amount>",
		Short: "给技能分支加经验",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				exitOnErr("解析经验值", err)
			}
			progress, err := core.Store.AddSkillXP(context.Background(), args[0], amount)
			exitOnErr("增加技能经验", err)
			printf("🌱 %s Lv.%d（%d XP）\n", args[0], progress.Level, progress.XP)
		},
	}
	unlockCmd := &cobra.Command{
		Use:   "unlock <branch> <skill>",
		Short: "解锁技能",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			ok, err := core.Store.UnlockSkill(context.Background(), args[0], args[1])
			exitOnErr("解锁技能", err)
			if !ok {
				printf("ℹ️  %s 已经解锁\n", args[1])
				return
			}
			printf("🔓 已解锁 %s/%s\n", args[0], args[1])
		},
	}
	cmd.AddCommand(xpCmd, unlockCmd)
	return cmd
}

// sampleCmd 记录心情/精力/睡眠
func sampleCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "sample <mood|energy|sleep> <value>",
		Short: "记录一个统计采样",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			v, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				exitOnErr("解析采样值", err)
			}
			var extra value.Record
			if note != "" {
				extra = value.Record{"note": value.String(note)}
			}
			s, err := core.Store.RecordSample(context.Background(), args[0], v, extra)
			exitOnErr("记录采样", err)
			printf("📈 %s %s = %g\n", s.Date, args[0], v)
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "备注")
	return cmd
}

// exportCmd 导出存档
func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出存档 JSON",
		Run: func(cmd *cobra.Command, args []string) {
			data, err := core.Store.ExportDocument(context.Background())
			exitOnErr("导出存档", err)
			if out == "" {
				fmt.Println(data)
				return
			}
			if err := os.WriteFile(out, []byte(data), 0o600); err != nil {
				exitOnErr("写入导出文件", err)
			}
			printf("📦 已导出到 %s\n", out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "输出文件（默认打印到终端）")
	return cmd
}

// importCmd 导入存档
func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "从 JSON 文件导入存档（导入前自动备份）",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			data, err := os.ReadFile(args[0])
			if err != nil {
				exitOnErr("读取导入文件", err)
			}
			err = core.Store.ImportDocument(context.Background(), string(data))
			exitOnErr("导入存档", err)
			printf("📥 导入完成\n")
		},
	}
}

// backupCmd 备份管理
func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup [label]",
		Short: "备份当前存档",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			label := "manual"
			if len(args) == 1 {
				label = args[0]
			}
			key, err := core.Store.Backup(context.Background(), label)
			exitOnErr("备份", err)
			printf("💾 已备份到 %s\n", key)
		},
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "列出备份",
		Run: func(cmd *cobra.Command, args []string) {
			keys, err := core.Store.Backups(context.Background())
			exitOnErr("列出备份", err)
			if len(keys) == 0 {
				printf("📭 暂无备份\n")
				return
			}
			for _, k := range keys {
				printf("  %s\n", k)
			}
		},
	}
	showCmd := &cobra.Command{
		Use:   "show <key>",
		Short: "查看备份内容",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			data, found, err := core.Store.ReadBackup(context.Background(), args[0])
			exitOnErr("读取备份", err)
			if !found {
				printf("📭 备份 %s 不存在\n", args[0])
				return
			}
			fmt.Println(string(data))
		},
	}
	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

// clearCmd 清空存档
func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "清空存档（清空前自动备份）",
		Run: func(cmd *cobra.Command, args []string) {
			cleared, err := core.Store.ClearAll(context.Background(), yes)
			exitOnErr("清空存档", err)
			if !cleared {
				printf("⚠️  需要加 --yes 确认清空\n")
				return
			}
			printf("🧹 存档已清空\n")
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "确认清空")
	return cmd
}

// resetCmd 重置分区
func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <section>",
		Short: "将一个顶层分区恢复为默认值",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ok, err := core.Store.ResetSection(context.Background(), args[0])
			exitOnErr("重置分区", err)
			if !ok {
				printf("❓ 未知分区 %s\n", args[0])
				return
			}
			printf("♻️  分区 %s 已重置\n", args[0])
		},
	}
}

// getCmd 按路径读取
func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [path]",
		Short: "按点分路径读取存档，例如 player.level",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			v, found, err := core.Store.Get(context.Background(), path)
			exitOnErr("读取", err)
			if !found {
				printf("📭 路径 %s 不存在\n", path)
				return
			}
			printJSON(v)
		},
	}
}

// setCmd 按路径写入
func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <json>",
		Short: "按点分路径写入 JSON 值，例如 set settings.theme '\"dark\"'",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			v, err := value.Parse([]byte(args[1]))
			if err != nil {
				// 不是合法 JSON 时按字符串处理
				v = value.String(args[1])
			}
			err = core.Store.Set(context.Background(), args[0], v)
			exitOnErr("写入", err)
			printf("✅ %s 已更新\n", args[0])
		},
	}
}

// watchCmd 持续输出其他会话的写入以及存档异常（写入失败、损坏恢复）
func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "监控其他会话对存档的修改与存档异常（仅 file 后端）",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			events := core.Hub.Subscribe(ctx, 16,
				eventbus.TypeForeignWrite,
				eventbus.TypePersistFailed,
				eventbus.TypeRecovered,
			)
			if err := core.WatchForeignWrites(ctx); err != nil {
				exitOnErr("启动监控", err)
			}
			printf("👀 正在监控 %s，Ctrl+C 退出\n", core.Store.Key())

			for evt := range events {
				printf("%s\n", describeEvent(evt))
			}
		},
	}
}

func describeEvent(evt eventbus.Event) string {
	switch evt.Type {
	case eventbus.TypeForeignWrite:
		return fmt.Sprintf("⚡ 存档 %v 被其他会话修改", evt.Data["key"])
	case eventbus.TypePersistFailed:
		return fmt.Sprintf("❌ 存档写入失败，修改只保存在内存中: %v", evt.Data["error"])
	case eventbus.TypeRecovered:
		return fmt.Sprintf("⚠️  存档已从损坏中恢复，原内容备份到 %v", evt.Data["backupKey"])
	default:
		return fmt.Sprintf("• %s %v", evt.Type, evt.Data)
	}
}
