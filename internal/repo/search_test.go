package repo

import (
	"context"
	"testing"
	"time"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchFixture: master 上一个 "sufferin succotash" 快照；second 分支在其后创建，
// 再保存一个由 tweety 写的 "succotash again"。
func searchFixture(t *testing.T) (*Manager, data.Branch) {
	t.Helper()
	ctx := context.Background()
	m := newTestManager(t)
	set := testSet(master, "base", "foo", "test.bms")
	_, err := m.SaveBeamlineSet(ctx, testSetData(set, ""), "set")
	require.NoError(t, err)
	saveSnapshot(t, m, set, 0, "sufferin succotash", testOwner)

	second, err := m.CreateBranch(ctx, master, "second")
	require.NoError(t, err)
	saveSnapshot(t, m, testSet(second, "base", "foo", "test.bms"), time.Hour, "Succotash again", "tweety")
	saveSnapshot(t, m, testSet(second, "base", "bar.bms"), 2*time.Hour, "unrelated", "tweety")
	return m, second
}

func TestFindSnapshotsByCommentOrUser(t *testing.T) {
	ctx := context.Background()
	m, second := searchFixture(t)

	found, err := m.FindSnapshotsByCommentOrUser(ctx, "succotash", master, true, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sufferin succotash"}, comments(found))

	found, err = m.FindSnapshotsByCommentOrUser(ctx, "succotash", second, true, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Succotash again", "sufferin succotash"}, comments(found))
	assert.Equal(t, second, found[0].BeamlineSet.Branch)
	assert.Equal(t, []string{"foo", "test.bms"}, found[0].BeamlineSet.Path)

	found, err = m.FindSnapshotsByCommentOrUser(ctx, "TWEETY", second, false, true, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"unrelated", "Succotash again"}, comments(found))

	found, err = m.FindSnapshotsByCommentOrUser(ctx, "tweety", master, false, true, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = m.FindSnapshotsByCommentOrUser(ctx, "succotash", second, false, false, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindSnapshots_DateBounds(t *testing.T) {
	ctx := context.Background()
	m, second := searchFixture(t)

	start := baseTime.Add(-96 * time.Hour)
	stop := baseTime.Add(-72 * time.Hour)
	found, err := m.FindSnapshotsByCommentOrUser(ctx, "succotash", second, true, false, &start, &stop)
	require.NoError(t, err)
	assert.Empty(t, found)

	start = baseTime.Add(time.Second)
	found, err = m.FindSnapshotsByCommentOrUser(ctx, "succotash", second, true, false, &start, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Succotash again"}, comments(found))

	// 闭区间
	start, stop = baseTime, baseTime.Add(time.Hour)
	found, err = m.FindSnapshotsByCommentOrUser(ctx, "succotash", second, true, false, &start, &stop)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestFindSnapshotsByTag(t *testing.T) {
	ctx := context.Background()
	m, second := searchFixture(t)

	found, err := m.FindSnapshotsByTag(ctx, "golden", second, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = m.FindSnapshotsByCommentOrUser(ctx, "succotash", second, true, false, nil, nil)
	require.NoError(t, err)
	_, err = m.TagSnapshot(ctx, found[0], "GoldenOrbit", "this is a tag message for testing")
	require.NoError(t, err)

	found, err = m.FindSnapshotsByTag(ctx, "golden", second, nil, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Succotash again", found[0].Comment)
	assert.Equal(t, "GoldenOrbit", found[0].TagName)

	found, err = m.FindSnapshotsByTagName(ctx, "golden", second, nil, nil)
	require.NoError(t, err)
	assert.Len(t, found, 1)
	found, err = m.FindSnapshotsByTagMessage(ctx, "golden", second, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
	found, err = m.FindSnapshotsByTagMessage(ctx, "essa", second, nil, nil)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	// 标签只在 second 分支上
	found, err = m.FindSnapshotsByTag(ctx, "golden", master, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	// 重新打标签后搜索只看到最新的标签
	all, err := m.Snapshots(ctx, testSet(second, "base", "foo", "test.bms"), 1, nil)
	require.NoError(t, err)
	_, err = m.TagSnapshot(ctx, all[0], "", "")
	require.NoError(t, err)
	found, err = m.FindSnapshotsByTag(ctx, "golden", second, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
	found, err = m.FindSnapshotsByCommentOrUser(ctx, "succotash", second, true, false, nil, nil)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestFindSnapshots_MissingBranchAndCancel(t *testing.T) {
	m, second := searchFixture(t)

	found, err := m.FindSnapshots(context.Background(), "x", data.NewBranch("missing"), []data.SearchCriterion{data.CriterionComment}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.FindSnapshots(ctx, "succotash", second, []data.SearchCriterion{data.CriterionComment}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
