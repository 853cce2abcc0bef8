package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"
	"github.com/frib-high-level-controls/save-set-restore/internal/repo"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// newImportCmd 构建 import 命令：把 beamline set（以及可选的快照历史）复制到另一个分支或 base level。
func newImportCmd(g *globalOptions) *cobra.Command {
	var branch, base, toBranch, toBase, importType string
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Copy a beamline set and its snapshots to another branch or base level",
		Long: `Copy a beamline set to another branch and/or base level, keeping its path.

--type selects what is copied:
  beamline_set    only the set content
  last_snapshot   the set and its newest snapshot
  all_snapshots   the set and every snapshot, oldest first

Copied snapshots keep their comment, owner, date and tag.`,
		Example: `  ssr import --base base linac/ls1.bms --to-branch commissioning --type all_snapshots`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := data.ParseImportType(importType)
			if !ok {
				return fmt.Errorf("unsupported import type %q (supported: beamline_set, last_snapshot, all_snapshots)", importType)
			}
			m, _, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			source, err := setRef(m, branch, base, args[0])
			if err != nil {
				return err
			}
			target := branchOrDefault(m, toBranch)
			var targetBase *data.BaseLevel
			if b := strings.TrimSpace(toBase); b != "" {
				l := data.NewBaseLevel(target, b)
				targetBase = &l
			}

			var opts []repo.ImportOption
			bar := newImportProgressBar(os.Stderr)
			if bar != nil {
				opts = append(opts, repo.WithProgress(func(done, total int) {
					bar.ChangeMax(total)
					_ = bar.Set(done)
				}))
			}

			res, err := m.ImportData(cmd.Context(), source, target, targetBase, t, opts...)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}

			dest := source.BaseLevel.StorageName
			if targetBase != nil {
				dest = targetBase.StorageName
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s:%s (%s)\n",
				changeLabel(res.Change), source, target.ShortName, dest, strings.ToLower(string(t)))
			return nil
		},
	}
	addSetFlags(cmd, &branch, &base)
	cmd.Flags().StringVar(&toBranch, "to-branch", "", "Target branch (default: repository default branch)")
	cmd.Flags().StringVar(&toBase, "to-base", "", "Target base level (default: same as source)")
	cmd.Flags().StringVar(&importType, "type", "beamline_set", "What to copy: beamline_set, last_snapshot, all_snapshots")
	return cmd
}

// newImportProgressBar 创建快照复制进度条，仅在终端环境下显示。
func newImportProgressBar(w *os.File) *progressbar.ProgressBar {
	if !term.IsTerminal(int(w.Fd())) {
		return nil
	}
	return progressbar.NewOptions(
		-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription("copying snapshots"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}
