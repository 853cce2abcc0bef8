package cmd

import (
	"fmt"
	"strings"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"
	"github.com/frib-high-level-controls/save-set-restore/internal/timerange"

	"github.com/spf13/cobra"
)

// newSearchCmd 构建 search 命令：在分支的全部快照中按注释、作者或标签查找。
func newSearchCmd(g *globalOptions) *cobra.Command {
	var (
		branch, since, until string
		by                   []string
	)
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Find snapshots whose comment, owner or tag contains text",
		Long: `Find snapshots on a branch whose selected metadata contains text
(case-insensitive). --since/--until accept YYYY-MM-DD, YYYY-MM, RFC 3339
timestamps or relative dates such as 3d, 2w, 1m, 1y; both bounds are inclusive.`,
		Example: `  ssr search orbit --by comment,tag_message --since 2024-01
  ssr search operator --by user --since 1w`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(by)
			if err != nil {
				return err
			}
			start, stop, err := timerange.Window(since, until)
			if err != nil {
				return err
			}
			m, _, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			found, err := m.FindSnapshots(cmd.Context(), args[0], branchOrDefault(m, branch), criteria, start, stop)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), g.format, found, snapshotTable(found, true))
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch (default: repository default branch)")
	cmd.Flags().StringSliceVar(&by, "by", []string{"comment", "user"}, "Fields to match: comment, user, tag_name, tag_message, tag")
	cmd.Flags().StringVar(&since, "since", "", "Only snapshots taken at or after this date")
	cmd.Flags().StringVar(&until, "until", "", "Only snapshots taken at or before this date")
	return cmd
}

// parseCriteria 解析 --by 列表，"tag" 同时选中标签名与标签消息，重复项只保留一次。
func parseCriteria(values []string) ([]data.SearchCriterion, error) {
	out := make([]data.SearchCriterion, 0, len(values))
	seen := make(map[data.SearchCriterion]struct{})
	add := func(c data.SearchCriterion) {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), "tag") {
			add(data.CriterionTagName)
			add(data.CriterionTagMessage)
			continue
		}
		c, ok := data.ParseSearchCriterion(v)
		if !ok {
			return nil, fmt.Errorf("unknown search field %q (supported: comment, user, tag_name, tag_message, tag)", v)
		}
		add(c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one search field is required")
	}
	return out, nil
}
