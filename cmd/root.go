package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// globalOptions 保存所有子命令共享的根标志。
type globalOptions struct {
	configFile string
	repoPath   string
	remote     string
	format     string
	logLevel   string
}

var rootCmd = newRootCmd()

// newRootCmd 构建完整的命令树，便于在测试中复用。
func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "ssr",
		Short: "Save and restore beamline settings in a git repository",
		Long: `ssr manages beamline sets and their snapshots stored in a git working copy.

Every branch holds base levels; each base level keeps beamline set files (.bms)
under BeamlineSets/ and the latest snapshot of each set (.snp) under Snapshots/.
Snapshot history is the git history of the snapshot file.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.configFile, "config", "", "Config file (default ~/.config/save-restore/config.yaml)")
	flags.StringVar(&g.repoPath, "repo", "", "Working copy path (overrides repository.path)")
	flags.StringVar(&g.remote, "remote", "", "Remote URL (overrides repository.remote)")
	flags.StringVarP(&g.format, "format", "f", "table", "Output format: table/json/csv/yaml")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug/info/warn/error (overrides log.level)")

	cmd.AddCommand(
		newBranchesCmd(g),
		newBasesCmd(g),
		newSetsCmd(g),
		newSnapshotsCmd(g),
		newSearchCmd(g),
		newImportCmd(g),
		newFetchCmd(g),
		newPushCmd(g),
		newResetCmd(g),
		newDoctorCmd(g),
		newConfigCmd(g),
		newVersionCmd(),
	)
	return cmd
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
