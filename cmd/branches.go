package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newBranchesCmd 构建 branches 命令：无参数时列出分支，create 子命令新建分支。
func newBranchesCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branches",
		Short: "List branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			branches, err := m.Branches(cmd.Context())
			if err != nil {
				return err
			}

			t := table{header: []string{"BRANCH", "DEFAULT"}}
			for _, b := range branches {
				def := ""
				if b == m.DefaultBranch() {
					def = "*"
				}
				t.rows = append(t.rows, []string{b.ShortName, def})
			}
			return render(cmd.OutOrStdout(), g.format, branches, t)
		},
	}
	cmd.AddCommand(newBranchCreateCmd(g))
	return cmd
}

func newBranchCreateCmd(g *globalOptions) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:     "create <name>",
		Short:   "Create a branch from the tip of another",
		Example: `  ssr branches create commissioning --from master`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			b, err := m.CreateBranch(cmd.Context(), branchOrDefault(m, from), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "branch %q created from %q\n", b.ShortName, branchOrDefault(m, from).ShortName)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source branch (default: repository default branch)")
	return cmd
}

// newBasesCmd 构建 bases 命令，列出分支下的 base level。
func newBasesCmd(g *globalOptions) *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "bases",
		Short: "List base levels of a branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			bases, err := m.BaseLevels(cmd.Context(), branchOrDefault(m, branch))
			if err != nil {
				return err
			}

			t := table{header: []string{"BASE LEVEL", "BRANCH"}}
			for _, b := range bases {
				t.rows = append(t.rows, []string{b.StorageName, b.Branch.ShortName})
			}
			return render(cmd.OutOrStdout(), g.format, bases, t)
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch (default: repository default branch)")
	return cmd
}
