package cmd

import (
	"fmt"
	"io"

	"github.com/frib-high-level-controls/save-set-restore/internal/config"
	"github.com/frib-high-level-controls/save-set-restore/internal/repo"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✅")
	warnMark = color.New(color.FgYellow).Sprint("⚠️ ")
	errMark  = color.New(color.FgRed).Sprint("❌")
)

// newDoctorCmd 构建 doctor 命令，一站式诊断环境和配置问题。
// 依次执行 5 项检查：配置合法性、工作副本有效性、默认分支可达性、读写权限、性能预警。
// 有错误时返回非零退出码，仅警告时返回 0。doctor 不会创建或修改工作副本。
func newDoctorCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose environment and configuration issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.OutOrStdout(), g)
		},
	}
}

func runDoctor(out io.Writer, g *globalOptions) error {
	fmt.Fprintln(out, "Running diagnostics...")

	hasError := false

	// 1. 配置合法性检查
	cfg, cfgErr := g.loadConfig()
	if cfgErr != nil {
		fmt.Fprintf(out, "%s Config: %v\n", errMark, cfgErr)
		return fmt.Errorf("doctor found issues")
	}
	if issues := config.ValidateConfig(&cfg); len(issues) == 0 {
		fmt.Fprintf(out, "%s Config: OK\n", okMark)
	} else {
		hasError = true
		fmt.Fprintf(out, "%s Config: %d issue(s)\n", errMark, len(issues))
		printLines(out, issues)
	}

	// 2. 工作副本有效性检查
	root, wcErr := repo.CheckWorkingCopy(cfg.Repository.Path)
	if wcErr != nil {
		fmt.Fprintf(out, "%s Working copy: %v\n", warnMark, wcErr)
		fmt.Fprintf(out, "%s Branch reachability: skipped (no working copy)\n", warnMark)
		fmt.Fprintf(out, "%s Permissions: skipped (no working copy)\n", warnMark)
		fmt.Fprintf(out, "%s Performance: skipped (no working copy)\n", warnMark)
		if hasError {
			return fmt.Errorf("doctor found issues")
		}
		return nil
	}
	fmt.Fprintf(out, "%s Working copy: %s\n", okMark, root)

	// 3. 默认分支可达性检查
	if err := repo.CheckBranchReachability(root, cfg.Repository.DefaultBranch); err != nil {
		hasError = true
		fmt.Fprintf(out, "%s Branch reachability: %v\n", errMark, err)
	} else {
		fmt.Fprintf(out, "%s Branch reachability: OK\n", okMark)
	}

	// 4. 读写权限检查
	if err := repo.CheckPermissions(root); err != nil {
		hasError = true
		fmt.Fprintf(out, "%s Permissions: %v\n", errMark, err)
	} else {
		fmt.Fprintf(out, "%s Permissions: OK\n", okMark)
	}

	// 5. 性能预警
	if warnings := repo.CheckPerformance(root); len(warnings) == 0 {
		fmt.Fprintf(out, "%s Performance: OK\n", okMark)
	} else {
		fmt.Fprintf(out, "%s Performance: %d warning(s)\n", warnMark, len(warnings))
		printLines(out, warnings)
	}

	if hasError {
		return fmt.Errorf("doctor found issues")
	}
	return nil
}

// printLines 将字符串列表以缩进列表形式输出，每行前加 "   - " 前缀。
func printLines(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintf(out, "   - %s\n", line)
	}
}
