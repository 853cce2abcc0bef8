package cmd

import (
	"fmt"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"
	"github.com/frib-high-level-controls/save-set-restore/internal/fileformat"

	"github.com/spf13/cobra"
)

// newSnapshotsCmd 构建 snapshots 命令组：list、show、save、tag。
func newSnapshotsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshots",
		Aliases: []string{"snap"},
		Short:   "Manage snapshots of a beamline set",
		Args:    cobra.NoArgs,
	}
	cmd.AddCommand(
		newSnapshotsListCmd(g),
		newSnapshotsShowCmd(g),
		newSnapshotsSaveCmd(g),
		newSnapshotsTagCmd(g),
	)
	return cmd
}

func newSnapshotsListCmd(g *globalOptions) *cobra.Command {
	var (
		branch, base, after string
		limit               int
	)
	cmd := &cobra.Command{
		Use:   "list <path>",
		Short: "List snapshots of a beamline set, newest first",
		Example: `  ssr snapshots list --base base linac/ls1.bms --limit 10
  ssr snapshots list --base base linac/ls1.bms --limit 10 --after 3f2a...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("limit must be >= 0, got %d", limit)
			}
			m, _, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			set, err := setRef(m, branch, base, args[0])
			if err != nil {
				return err
			}
			var cursor *data.Snapshot
			if after != "" {
				cursor = &data.Snapshot{BeamlineSet: set, Revision: after}
			}
			snapshots, err := m.Snapshots(cmd.Context(), set, limit, cursor)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), g.format, snapshots, snapshotTable(snapshots, false))
		},
	}
	addSetFlags(cmd, &branch, &base)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of snapshots (0 = all)")
	cmd.Flags().StringVar(&after, "after", "", "Continue after the snapshot with this revision")
	return cmd
}

func newSnapshotsShowCmd(g *globalOptions) *cobra.Command {
	var branch, base string
	cmd := &cobra.Command{
		Use:   "show <path> <revision>",
		Short: "Show the values stored by a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			set, err := setRef(m, branch, base, args[0])
			if err != nil {
				return err
			}
			v, err := m.LoadSnapshotData(cmd.Context(), data.Snapshot{BeamlineSet: set, Revision: args[1]})
			if err != nil {
				return err
			}

			view := viewOf(v)
			out := cmd.OutOrStdout()
			if g.format == "" || g.format == "table" {
				s := v.Snapshot
				fmt.Fprintf(out, "%s  %s  %s  %s\n", formatDate(s.Date), s.Owner, s.Comment, tagLabel(s))
				fmt.Fprintln(out)
			}
			return render(out, g.format, view, channelTable(view))
		},
	}
	addSetFlags(cmd, &branch, &base)
	return cmd
}

func newSnapshotsSaveCmd(g *globalOptions) *cobra.Command {
	var branch, base, file, comment, owner, tagName, tagMessage string
	cmd := &cobra.Command{
		Use:   "save <path>",
		Short: "Store a snapshot file as the newest snapshot of a beamline set",
		Long: `Store a snapshot file (.snp, "-" reads stdin) as the newest snapshot of a
beamline set. The commit date is the capture time recorded in the file.`,
		Example: `  ssr snapshots save --base base linac/ls1.bms --file ls1.snp -m "before shutdown" --owner operator`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			set, err := setRef(m, branch, base, args[0])
			if err != nil {
				return err
			}
			text, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			v, err := fileformat.SnapshotCodec{}.Decode(text, set)
			if err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			v.Snapshot.Comment = comment
			v.Snapshot.Owner = owner
			v.Snapshot.TagName = tagName
			v.Snapshot.TagMessage = tagMessage

			res, err := m.SaveSnapshot(cmd.Context(), v, comment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s snapshot of %s @ %s\n", changeLabel(res.Change), set, res.Data.Snapshot.Revision)
			return nil
		},
	}
	addSetFlags(cmd, &branch, &base)
	cmd.Flags().StringVar(&file, "file", "", "Snapshot file to store (- for stdin)")
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Snapshot comment")
	cmd.Flags().StringVar(&owner, "owner", "", "Snapshot owner (default: identity.name)")
	cmd.Flags().StringVar(&tagName, "tag-name", "", "Tag name")
	cmd.Flags().StringVar(&tagMessage, "tag-message", "", "Tag message")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSnapshotsTagCmd(g *globalOptions) *cobra.Command {
	var (
		branch, base, name, message string
		remove                      bool
	)
	cmd := &cobra.Command{
		Use:   "tag <path> <revision>",
		Short: "Tag or untag the latest snapshot of a beamline set",
		Example: `  ssr snapshots tag --base base linac/ls1.bms 3f2a... --name golden --message "reference orbit"
  ssr snapshots tag --base base linac/ls1.bms 3f2a... --remove`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remove && (name != "" || message != "") {
				return fmt.Errorf("--remove cannot be combined with --name or --message")
			}
			if !remove && name == "" && message == "" {
				return fmt.Errorf("either --name/--message or --remove is required")
			}
			m, _, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			set, err := setRef(m, branch, base, args[0])
			if err != nil {
				return err
			}
			res, err := m.TagSnapshot(cmd.Context(), data.Snapshot{BeamlineSet: set, Revision: args[1]}, name, message)
			if err != nil {
				return err
			}
			label := tagLabel(res.Data)
			if label == "" {
				label = "(untagged)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s @ %s\n", changeLabel(res.Change), label, res.Data.Revision)
			return nil
		},
	}
	addSetFlags(cmd, &branch, &base)
	cmd.Flags().StringVar(&name, "name", "", "Tag name")
	cmd.Flags().StringVar(&message, "message", "", "Tag message")
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the tag")
	return cmd
}
