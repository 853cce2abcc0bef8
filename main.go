// ssr 在 Git 仓库中保存和恢复 beamline 设置：beamline set 描述通道列表，
// snapshot 记录某一时刻的通道值，历史由提交记录承载。
package main

import (
	"github.com/frib-high-level-controls/save-set-restore/cmd"
)

// main 是程序的入口函数，负责启动 CLI 命令执行。
func main() {
	cmd.Execute()
}
