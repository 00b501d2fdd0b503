package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/yuqie6/mindcare/internal/service"
)

func printf(format string, args ...any) {
	fmt.Printf(format, args...)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitOnErr("序列化输出", err)
	}
	fmt.Println(string(b))
}

// exitOnErr 打印错误并退出；ErrNotPersisted 只提示，内存中的修改仍然有效
func exitOnErr(action string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, service.ErrNotPersisted) {
		fmt.Fprintf(os.Stderr, "⚠️  %s成功，但存档未能写入: %v\n", action, err)
		return
	}
	fmt.Fprintf(os.Stderr, "❌ %s失败: %v\n", action, err)
	os.Exit(1)
}

func playerCoins(n int) service.PlayerPatch {
	return service.PlayerPatch{Coins: &n}
}
