package repo

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckWorkingCopy(t *testing.T) {
	repoPath := createRepoWithCommit(t)
	root, err := CheckWorkingCopy(repoPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(repoPath), root)

	missing := filepath.Join(t.TempDir(), "missing")
	root, err = CheckWorkingCopy(missing)
	require.Error(t, err)
	assert.Equal(t, missing, root)
	assert.Contains(t, err.Error(), "is not a working copy")

	_, err = CheckWorkingCopy("  ")
	assert.Error(t, err)
}

func TestCheckBranchReachability(t *testing.T) {
	t.Run("normal repository should pass", func(t *testing.T) {
		repoPath := createRepoWithCommit(t)
		require.NoError(t, CheckBranchReachability(repoPath, ""))
		require.NoError(t, CheckBranchReachability(repoPath, "master"))
	})

	t.Run("empty repository should fail", func(t *testing.T) {
		repoPath := t.TempDir()
		_, err := git.PlainInit(repoPath, false)
		require.NoError(t, err)

		err = CheckBranchReachability(repoPath, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot resolve HEAD")
	})

	t.Run("missing branch should fail", func(t *testing.T) {
		repoPath := createRepoWithCommit(t)
		err := CheckBranchReachability(repoPath, "missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "branch \"missing\" not found")
	})

	t.Run("not a repository should fail", func(t *testing.T) {
		err := CheckBranchReachability(t.TempDir(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot open repository")
	})
}

func TestCheckPermissions(t *testing.T) {
	repoPath := createRepoWithCommit(t)
	require.NoError(t, CheckPermissions(repoPath))

	entries, err := os.ReadDir(repoPath)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".ssr-doctor-"), "temp file left behind")
	}

	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission mode test needs an unprivileged unix user")
	}

	gitDir := filepath.Join(repoPath, ".git")
	require.NoError(t, os.Chmod(gitDir, 0o000))
	t.Cleanup(func() {
		_ = os.Chmod(gitDir, 0o755)
	})

	err = CheckPermissions(repoPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot read .git/HEAD")
}

func TestCheckPerformance(t *testing.T) {
	t.Run("small repository has no warnings", func(t *testing.T) {
		assert.Empty(t, CheckPerformance(createRepoWithCommit(t)))
	})

	t.Run("large git directory should warn", func(t *testing.T) {
		repoPath := t.TempDir()
		gitDir := filepath.Join(repoPath, ".git", "objects", "pack")
		require.NoError(t, os.MkdirAll(gitDir, 0o755))

		packFile := filepath.Join(gitDir, "pack-test.pack")
		f, err := os.Create(packFile)
		require.NoError(t, err)
		require.NoError(t, f.Truncate(gitSizeWarnThreshold+1))
		require.NoError(t, f.Close())

		warnings := CheckPerformance(repoPath)
		require.NotEmpty(t, warnings)
		assert.Contains(t, strings.Join(warnings, "\n"), "is large")
	})
}

func TestCountDataFiles(t *testing.T) {
	repoPath := createRepoWithCommit(t, "base/BeamlineSets/foo/a.bms", "base/Snapshots/foo/a.snp", "base/notes.txt")
	r, err := git.PlainOpen(repoPath)
	require.NoError(t, err)
	head, err := r.Head()
	require.NoError(t, err)

	n, err := countDataFiles(r, head.Hash())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = countCommits(r, head.Hash())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// createRepoWithCommit 用 go-git 直接创建一个只有一次提交的仓库，files 为额外写入的相对路径。
func createRepoWithCommit(t *testing.T, files ...string) string {
	t.Helper()

	repoPath := t.TempDir()
	r, err := git.PlainInit(repoPath, false)
	require.NoError(t, err)

	wt, err := r.Worktree()
	require.NoError(t, err)

	for _, name := range append([]string{"README.md"}, files...) {
		full := filepath.Join(repoPath, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("hello\n"), 0o644))
		_, err = wt.Add(name)
		require.NoError(t, err)
	}

	sig := &object.Signature{
		Name:  "Test",
		Email: "test@example.com",
		When:  time.Now(),
	}

	_, err = wt.Commit("init", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)

	return repoPath
}
