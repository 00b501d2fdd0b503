package service

import "errors"

var (
	// ErrSerialize 存档无法编码
	ErrSerialize = errors.New("存档序列化失败")
	// ErrNotPersisted 写入失败（含一次清理后重试），修改只保留在内存中
	ErrNotPersisted = errors.New("存档未能持久化")
	// ErrInvalidImport 导入内容不是合法存档，当前状态未改动
	ErrInvalidImport = errors.New("导入数据格式无效")
	// ErrInvalidValue 写入的值与存档结构不符
	ErrInvalidValue = errors.New("值与存档结构不符")
	// ErrInvalidAmount 数量为负等非法数值
	ErrInvalidAmount = errors.New("数值无效")
	// ErrNotBackup 键不是当前存档派生的备份键
	ErrNotBackup = errors.New("不是备份键")

	ErrUnknownBranch     = errors.New("未知的技能分支")
	ErrUnknownSkill      = errors.New("未知的技能")
	ErrUnknownMiniGame   = errors.New("未知的小游戏")
	ErrUnknownArchetype  = errors.New("未知的角色原型")
	ErrUnknownCategory   = errors.New("未知的外观类别")
	ErrUnknownCollection = errors.New("未知的背包集合")
	ErrUnknownSeries     = errors.New("未知的统计序列")
)
