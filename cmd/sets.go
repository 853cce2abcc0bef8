package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"
	"github.com/frib-high-level-controls/save-set-restore/internal/fileformat"

	"github.com/spf13/cobra"
)

// newSetsCmd 构建 sets 命令组：list、show、save、delete。
func newSetsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sets",
		Short: "Manage beamline sets",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(
		newSetsListCmd(g),
		newSetsShowCmd(g),
		newSetsSaveCmd(g),
		newSetsDeleteCmd(g),
	)
	return cmd
}

func newSetsListCmd(g *globalOptions) *cobra.Command {
	var branch, base string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List beamline sets of a branch, optionally limited to one base level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			b := branchOrDefault(m, branch)
			var level *data.BaseLevel
			if base != "" {
				l := data.NewBaseLevel(b, base)
				level = &l
			}
			sets, err := m.BeamlineSets(cmd.Context(), b, level)
			if err != nil {
				return err
			}

			t := table{header: []string{"BASE LEVEL", "PATH"}}
			for _, s := range sets {
				t.rows = append(t.rows, []string{s.BaseLevel.StorageName, s.FullName()})
			}
			return render(cmd.OutOrStdout(), g.format, sets, t)
		},
	}
	addSetFlags(cmd, &branch, &base)
	return cmd
}

func newSetsShowCmd(g *globalOptions) *cobra.Command {
	var branch, base, revision string
	cmd := &cobra.Command{
		Use:     "show <path>",
		Short:   "Show the channels of a beamline set",
		Example: `  ssr sets show --base base linac/ls1.bms --revision 3f2a...`,
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
			d, err := m.LoadBeamlineSetData(cmd.Context(), set, revision)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if g.format == "" || g.format == "table" {
				fmt.Fprintf(out, "%s @ %s\n", d.Descriptor, d.Revision)
				if d.Description != "" {
					fmt.Fprintf(out, "%s\n", d.Description)
				}
				fmt.Fprintln(out)
			}
			t := table{header: []string{"PV", "READBACK", "DELTA"}}
			for i, pv := range d.PVs {
				t.rows = append(t.rows, []string{pv, d.Readbacks[i], d.Deltas[i]})
			}
			return render(out, g.format, d, t)
		},
	}
	addSetFlags(cmd, &branch, &base)
	cmd.Flags().StringVar(&revision, "revision", "", "Read the set as of this commit (default: branch tip)")
	return cmd
}

func newSetsSaveCmd(g *globalOptions) *cobra.Command {
	var branch, base, file, comment, revision string
	cmd := &cobra.Command{
		Use:   "save <path>",
		Short: "Create or update a beamline set from a .bms file",
		Long: `Create or update a beamline set from a .bms file ("-" reads stdin).

With --revision, the save fails with a conflict when the set changed after
that commit.`,
		Example: `  ssr sets save --base base linac/ls1.bms --file ls1.bms --comment "add BPMs"`,
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
			d, err := fileformat.BeamlineSetCodec{}.Decode(text, set)
			if err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			d.Revision = revision

			res, err := m.SaveBeamlineSet(cmd.Context(), d, comment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s @ %s\n", changeLabel(res.Change), res.Data.Descriptor, res.Data.Revision)
			return nil
		},
	}
	addSetFlags(cmd, &branch, &base)
	cmd.Flags().StringVar(&file, "file", "", "Beamline set file to store (- for stdin)")
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Commit comment")
	cmd.Flags().StringVar(&revision, "revision", "", "Expected current revision of the set")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSetsDeleteCmd(g *globalOptions) *cobra.Command {
	var branch, base, comment string
	cmd := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a beamline set (its snapshot history is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := g.openManager(cmd)
			if err != nil {
				return err
			}
			set, err := setRef(m, branch, base, args[0])
			if err != nil {
				return err
			}
			res, err := m.DeleteBeamlineSet(cmd.Context(), set, comment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", changeLabel(res.Change), res.Data)
			return nil
		},
	}
	addSetFlags(cmd, &branch, &base)
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Commit comment")
	return cmd
}

// readInput 读取 --file 指定的文件，"-" 表示标准输入。
func readInput(stdin io.Reader, file string) (string, error) {
	var (
		b   []byte
		err error
	)
	if file == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	return string(b), nil
}
