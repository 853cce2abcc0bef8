package repo

import (
	"testing"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"

	"github.com/stretchr/testify/assert"
)

func TestPathCodec(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		bms      string
		snp      string
	}{
		{"adds extension", []string{"foo", "test"}, "base/BeamlineSets/foo/test.bms", "base/Snapshots/foo/test.snp"},
		{"keeps extension", []string{"foo", "test.bms"}, "base/BeamlineSets/foo/test.bms", "base/Snapshots/foo/test.snp"},
		{"single segment", []string{"top.bms"}, "base/BeamlineSets/top.bms", "base/Snapshots/top.snp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.bms, BeamlineSetPath("base", tt.segments))
			assert.Equal(t, tt.snp, SnapshotPath("base", tt.segments))
		})
	}
}

func TestParsePath(t *testing.T) {
	branch := data.NewBranch("second")

	set, kind, ok := ParsePath(branch, "base/BeamlineSets/foo/test.bms", "git")
	assert.True(t, ok)
	assert.Equal(t, KindBeamlineSet, kind)
	assert.Equal(t, []string{"foo", "test.bms"}, set.Path)
	assert.Equal(t, "base", set.BaseLevel.StorageName)
	assert.Equal(t, branch, set.Branch)
	assert.Equal(t, "git", set.DataProvider)

	set, kind, ok = ParsePath(branch, "base/Snapshots/foo/test.snp", "")
	assert.True(t, ok)
	assert.Equal(t, KindSnapshot, kind)
	assert.Equal(t, []string{"foo", "test.bms"}, set.Path)

	for _, p := range []string{"README.md", "base/BeamlineSets", "base/Other/x.bms", "base/Snapshots/x.bms", "base/BeamlineSets/x.snp"} {
		_, _, ok := ParsePath(branch, p, "")
		assert.False(t, ok, p)
	}

	assert.True(t, isSnapshotPath("base/Snapshots/a/b.snp"))
	assert.False(t, isSnapshotPath("base/BeamlineSets/a/b.bms"))
}

func TestLocate(t *testing.T) {
	set := testSet(master, "base", "foo", "test")
	set.BaseLevel.Branch = data.NewBranch("elsewhere")

	normalized, base, err := locate(set)
	assert.NoError(t, err)
	assert.Equal(t, "base", base)
	assert.Equal(t, []string{"foo", "test.bms"}, normalized.Path)
	assert.Equal(t, master, normalized.BaseLevel.Branch)
	// 原描述不被修改
	assert.Equal(t, []string{"foo", "test"}, set.Path)

	for _, seg := range []string{"", ".", "..", "a/b", `a\b`, ".git"} {
		_, _, err := locate(testSet(master, "base", "ok", seg))
		assert.ErrorIs(t, err, ErrInvalidPath, seg)
	}
}
