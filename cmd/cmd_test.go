package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"
	"github.com/frib-high-level-controls/save-set-restore/internal/fileformat"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func withTempHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

// executeCommand 在全新的命令树上执行 args，返回合并后的 stdout/stderr。
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

// repoRunner 返回在 repoDir 工作副本上执行命令并要求成功的函数。
func repoRunner(t *testing.T, repoDir string) func(args ...string) string {
	return func(args ...string) string {
		t.Helper()
		out, err := executeCommand(t, append([]string{"--repo", repoDir}, args...)...)
		require.NoError(t, err, out)
		return out
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const testSetFile = "# Description:\n# linac segment 1\n#\nPV,READBACK,DELTA\npv1,rb1,0.5\npv2,,\n"

// writeSnapshotFile 写出一个 captured 时刻采集的 .snp 文件。
func writeSnapshotFile(t *testing.T, dir, name string, captured time.Time, value float64) string {
	t.Helper()

	meta := data.Meta{Time: captured, Alarm: data.NoAlarm()}
	v := data.VSnapshot{
		PVs:            []string{"pv1", "pv2"},
		Selected:       []bool{true, true},
		Values:         []data.Value{data.Double{Meta: meta, Value: value}, data.String{Meta: meta, Value: "on"}},
		Readbacks:      []string{"rb1", ""},
		ReadbackValues: []data.Value{data.Double{Meta: meta, Value: value - 0.25}, nil},
		Deltas:         []string{"0.5", ""},
		Timestamp:      captured,
	}
	text, err := fileformat.SnapshotCodec{}.Encode(v)
	require.NoError(t, err)
	return writeFile(t, dir, name, text)
}
