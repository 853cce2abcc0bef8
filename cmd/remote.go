package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch all branches from the remote without touching local branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, cfg, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			if err := m.Fetch(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched from %s\n", cfg.Repository.Remote)
			return nil
		},
	}
}

func newPushCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push all local branches to the remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, cfg, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			if err := m.Push(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pushed to %s\n", cfg.Repository.Remote)
			return nil
		},
	}
}

// newResetCmd 构建 reset 命令。reset 会丢弃未推送的提交和工作区改动，因此要求 --yes。
func newResetCmd(g *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard local changes and move branches to the remote state",
		Long: `Discard uncommitted files in the working copy. When a remote is configured,
local branches are first moved to the fetched remote tips, dropping unpushed
commits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("reset discards local changes; rerun with --yes to confirm")
			}
			m, _, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			if err := m.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", m.Root())
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm discarding local changes")
	return cmd
}
