package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const (
	// 历史遍历是线性的，提交数过多时列表与搜索会变慢
	commitCountWarnThreshold = 20000
	dataFileWarnThreshold    = 5000
	gitSizeWarnThreshold     = int64(1 << 30) // 1GB
)

// CheckWorkingCopy 展开并检查工作副本路径，返回绝对路径。路径不是工作副本时返回错误与该路径。
func CheckWorkingCopy(repoPath string) (string, error) {
	root, err := normalizePath(repoPath)
	if err != nil {
		return "", err
	}
	if !IsWorkingCopy(root) {
		return root, fmt.Errorf("%s is not a working copy (it is created on first use)", root)
	}
	return root, nil
}

// CheckBranchReachability 检查工作副本 HEAD 和指定分支是否可达（有提交）。
func CheckBranchReachability(repoPath string, branch string) error {
	root, err := normalizePath(repoPath)
	if err != nil {
		return err
	}
	r, err := git.PlainOpen(root)
	if err != nil {
		return fmt.Errorf("cannot open repository: %w", err)
	}

	headRef, err := r.Head()
	if err != nil {
		return fmt.Errorf("cannot resolve HEAD: %w", err)
	}
	if _, err := r.CommitObject(headRef.Hash()); err != nil {
		return fmt.Errorf("HEAD commit is unreachable: %w", err)
	}

	branch = strings.TrimSpace(branch)
	if branch == "" {
		return nil
	}
	branchRef, err := r.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return fmt.Errorf("branch %q not found", branch)
	}
	if _, err := r.CommitObject(branchRef.Hash()); err != nil {
		return fmt.Errorf("branch %q commit is unreachable: %w", branch, err)
	}
	return nil
}

// CheckPermissions 检查工作副本读写权限：读取 .git/HEAD，并在工作副本根目录试写一个临时文件。
func CheckPermissions(repoPath string) error {
	root, err := normalizePath(repoPath)
	if err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(root, ".git", "HEAD"))
	if err != nil {
		return fmt.Errorf("cannot read .git/HEAD: %w", err)
	}
	_ = f.Close()

	tmp, err := os.CreateTemp(root, ".ssr-doctor-*")
	if err != nil {
		return fmt.Errorf("working copy is not writable: %w", err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	return os.Remove(name)
}

// CheckPerformance 检查性能预警项：.git 目录大小、HEAD 的历史长度和数据文件数量。
func CheckPerformance(repoPath string) []string {
	warnings := make([]string, 0)
	root, err := normalizePath(repoPath)
	if err != nil {
		return warnings
	}

	if size, err := getRepoSize(root); err == nil && size > gitSizeWarnThreshold {
		warnings = append(warnings, fmt.Sprintf("%s is large (%.1f GB), history walks may be slow", root, float64(size)/float64(1<<30)))
	}

	r, err := git.PlainOpen(root)
	if err != nil {
		return warnings
	}
	head, err := r.Head()
	if err != nil {
		return warnings
	}
	if n, err := countCommits(r, head.Hash()); err == nil && n > commitCountWarnThreshold {
		warnings = append(warnings, fmt.Sprintf("current branch has %d commits, snapshot listing and search may be slow", n))
	}
	if n, err := countDataFiles(r, head.Hash()); err == nil && n > dataFileWarnThreshold {
		warnings = append(warnings, fmt.Sprintf("current branch holds %d beamline set and snapshot files", n))
	}
	return warnings
}

var errLimit = errors.New("limit reached")

// countCommits stops one past the warning threshold.
func countCommits(r *git.Repository, from plumbing.Hash) (int, error) {
	iter, err := r.Log(&git.LogOptions{From: from})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	err = iter.ForEach(func(*object.Commit) error {
		n++
		if n > commitCountWarnThreshold {
			return storer.ErrStop
		}
		return nil
	})
	return n, err
}

func countDataFiles(r *git.Repository, from plumbing.Hash) (int, error) {
	c, err := r.CommitObject(from)
	if err != nil {
		return 0, err
	}
	files, err := c.Files()
	if err != nil {
		return 0, err
	}
	defer files.Close()

	n := 0
	err = files.ForEach(func(f *object.File) error {
		if _, _, ok := ParsePath(data.Branch{}, f.Name, ""); ok {
			n++
		}
		if n > dataFileWarnThreshold {
			return errLimit
		}
		return nil
	})
	if errors.Is(err, errLimit) {
		err = nil
	}
	return n, err
}

func getRepoSize(repoPath string) (int64, error) {
	gitPath := filepath.Join(repoPath, ".git")
	var size int64

	err := filepath.Walk(gitPath, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return size, nil
}
