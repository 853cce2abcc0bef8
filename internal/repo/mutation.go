package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

// SaveBeamlineSet 把内容写入数据所在分支并提交，提交者为固定身份。
// d.Revision 非空且已不是该文件最新的提交时返回 ErrConflict。
func (m *Manager) SaveBeamlineSet(ctx context.Context, d data.BeamlineSetData, comment string) (data.Result[data.BeamlineSetData], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.saveBeamlineSetLocked(ctx, d, comment)
	if err != nil {
		return res, err
	}
	return res, m.autoPush(ctx, res.Data.Descriptor.Branch)
}

func (m *Manager) saveBeamlineSetLocked(ctx context.Context, d data.BeamlineSetData, comment string) (data.Result[data.BeamlineSetData], error) {
	set, base, err := locate(d.Descriptor)
	if err != nil {
		return data.Result[data.BeamlineSetData]{}, err
	}
	file := BeamlineSetPath(base, set.Path)

	if d.Revision != "" {
		tip, err := m.branchTip(set.Branch)
		if err != nil {
			return data.Result[data.BeamlineSetData]{}, err
		}
		last, err := m.lastTouching(ctx, tip.Hash, file)
		if err != nil {
			return data.Result[data.BeamlineSetData]{}, err
		}
		if last != nil && last.Hash != d.Revision {
			return data.Result[data.BeamlineSetData]{}, fmt.Errorf("beamline set %s changed since %s: %w", set, d.Revision, ErrConflict)
		}
	}

	out := d
	out.Descriptor = set
	text, err := m.opts.BeamlineSetCodec.Encode(out)
	if err != nil {
		return data.Result[data.BeamlineSetData]{}, fmt.Errorf("encode beamline set %s: %w", set, err)
	}

	author := m.committer()
	meta := CommitMeta{Comment: comment, Owner: author.Name, Email: author.Email, When: author.When}
	hash, err := m.commitFile(ctx, set.Branch, file, []byte(text), meta)
	if err != nil {
		return data.Result[data.BeamlineSetData]{}, err
	}
	out.Revision = hash.String()
	return data.Result[data.BeamlineSetData]{Data: out, Change: data.ChangeSave}, nil
}

// SaveSnapshot 提交快照文件。作者是快照的 owner（为空时使用默认身份），
// 作者时间是快照的采集时间而不是提交时间，历史按作者时间排序即反映采集顺序。
// comment 为空时使用快照自带的注释。
func (m *Manager) SaveSnapshot(ctx context.Context, v data.VSnapshot, comment string) (data.Result[data.VSnapshot], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.saveSnapshotLocked(ctx, v, comment)
	if err != nil {
		return res, err
	}
	return res, m.autoPush(ctx, res.Data.Snapshot.BeamlineSet.Branch)
}

func (m *Manager) saveSnapshotLocked(ctx context.Context, v data.VSnapshot, comment string) (data.Result[data.VSnapshot], error) {
	set, base, err := locate(v.Snapshot.BeamlineSet)
	if err != nil {
		return data.Result[data.VSnapshot]{}, err
	}
	file := SnapshotPath(base, set.Path)

	text, err := m.opts.SnapshotCodec.Encode(v)
	if err != nil {
		return data.Result[data.VSnapshot]{}, fmt.Errorf("encode snapshot of %s: %w", set, err)
	}

	if comment == "" {
		comment = v.Snapshot.Comment
	}
	owner := v.Snapshot.Owner
	if owner == "" {
		owner = m.opts.Identity.Name
	}
	meta := CommitMeta{
		Comment:    comment,
		Owner:      owner,
		Email:      m.opts.Identity.Email,
		When:       captureTime(v),
		TagName:    v.Snapshot.TagName,
		TagMessage: v.Snapshot.TagMessage,
	}
	hash, err := m.commitFile(ctx, set.Branch, file, []byte(text), meta)
	if err != nil {
		return data.Result[data.VSnapshot]{}, err
	}

	rec := &commitRecord{Hash: hash.String(), Meta: DecodeMessage(meta.Message())}
	rec.Meta.Owner, rec.Meta.Email, rec.Meta.When = meta.Owner, meta.Email, meta.When
	return data.Result[data.VSnapshot]{Data: v.WithSnapshot(snapshotOf(set, rec)), Change: data.ChangeSave}, nil
}

// captureTime 依次取快照日期、采集时间戳、当前时间，截断到秒（提交时间的精度）。
func captureTime(v data.VSnapshot) time.Time {
	t := v.Snapshot.Date
	if t.IsZero() {
		t = v.Timestamp
	}
	if t.IsZero() {
		t = time.Now()
	}
	return t.Truncate(time.Second).UTC()
}

// TagSnapshot 以原有内容、注释、所有者和时间重新提交快照，只替换标签字段。
// tagName 与 tagMessage 都为空时移除标签。
// 若快照所属条目已不是该文件最新的条目，返回 ErrConflict。
func (m *Manager) TagSnapshot(ctx context.Context, snapshot data.Snapshot, tagName, tagMessage string) (data.Result[data.Snapshot], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.tagSnapshotLocked(ctx, snapshot, tagName, tagMessage)
	if err != nil {
		return res, err
	}
	return res, m.autoPush(ctx, res.Data.BeamlineSet.Branch)
}

func (m *Manager) tagSnapshotLocked(ctx context.Context, snapshot data.Snapshot, tagName, tagMessage string) (data.Result[data.Snapshot], error) {
	set, base, err := locate(snapshot.BeamlineSet)
	if err != nil {
		return data.Result[data.Snapshot]{}, err
	}
	file := SnapshotPath(base, set.Path)

	c, err := m.commitObject(snapshot.Revision)
	if err != nil {
		return data.Result[data.Snapshot]{}, err
	}
	original, err := m.record(c)
	if err != nil {
		return data.Result[data.Snapshot]{}, err
	}
	tip, err := m.branchTip(set.Branch)
	if err != nil {
		return data.Result[data.Snapshot]{}, err
	}
	last, err := m.lastTouching(ctx, tip.Hash, file)
	if err != nil {
		return data.Result[data.Snapshot]{}, err
	}
	if last == nil || last.entryID() != original.entryID() {
		return data.Result[data.Snapshot]{}, fmt.Errorf("snapshot %s of %s is not the latest: %w", snapshot.Revision, set, ErrConflict)
	}

	text, err := fileAt(c, file)
	if err != nil {
		return data.Result[data.Snapshot]{}, err
	}
	meta := CommitMeta{
		Comment:    original.Meta.Comment,
		Owner:      original.Meta.Owner,
		Email:      original.Meta.Email,
		When:       original.Meta.When,
		TagName:    tagName,
		TagMessage: tagMessage,
		Origin:     original.entryID(),
		Path:       file,
	}
	hash, err := m.commitFile(ctx, set.Branch, file, []byte(text), meta)
	if err != nil {
		return data.Result[data.Snapshot]{}, err
	}

	out := snapshotOf(set, &commitRecord{Hash: hash.String(), Meta: meta})
	return data.Result[data.Snapshot]{Data: out, Change: data.ChangeSave}, nil
}

// DeleteBeamlineSet 删除 beamline set 文件并提交。对应的快照历史保留在版本库中。
func (m *Manager) DeleteBeamlineSet(ctx context.Context, set data.BeamlineSet, comment string) (data.Result[data.BeamlineSet], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, base, err := locate(set)
	if err != nil {
		return data.Result[data.BeamlineSet]{}, err
	}
	file := BeamlineSetPath(base, set.Path)

	wt, err := m.checkout(set.Branch)
	if err != nil {
		return data.Result[data.BeamlineSet]{}, err
	}
	if !fileExists(m.root, file) {
		return data.Result[data.BeamlineSet]{}, fmt.Errorf("beamline set %s: %w", set, ErrNotFound)
	}
	if _, err := wt.Remove(file); err != nil {
		m.rollback(wt, file, false)
		return data.Result[data.BeamlineSet]{}, fmt.Errorf("remove %s: %w", file, err)
	}

	author := m.committer()
	meta := CommitMeta{Comment: comment, Owner: author.Name, Email: author.Email, When: author.When}
	hash, err := m.commit(ctx, wt, meta)
	if err != nil {
		m.rollback(wt, file, false)
		return data.Result[data.BeamlineSet]{}, err
	}
	m.log.Info("deleted beamline set",
		zap.String("branch", set.Branch.ShortName),
		zap.String("path", file),
		zap.String("commit", hash.String()))

	res := data.Result[data.BeamlineSet]{Data: set, Change: data.ChangeDelete}
	return res, m.autoPush(ctx, set.Branch)
}

// CreateBranch 在 source 当前最新提交上创建分支 name 并检出。
// 名称已被占用时返回 ErrAlreadyExists。
func (m *Manager) CreateBranch(ctx context.Context, source data.Branch, name string) (data.Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = strings.TrimSpace(name)
	ref := plumbing.NewBranchReferenceName(name)
	if name == "" || ref.Validate() != nil {
		return data.Branch{}, fmt.Errorf("%w: branch name %q", ErrInvalidPath, name)
	}
	if _, err := m.repo.Reference(ref, false); err == nil {
		return data.Branch{}, fmt.Errorf("branch %q: %w", name, ErrAlreadyExists)
	}
	tip, err := m.branchTip(source)
	if err != nil {
		return data.Branch{}, err
	}
	if err := ctx.Err(); err != nil {
		return data.Branch{}, err
	}

	if err := m.repo.Storer.SetReference(plumbing.NewHashReference(ref, tip.Hash)); err != nil {
		return data.Branch{}, fmt.Errorf("create branch %q: %w", name, err)
	}
	if m.HasRemote() {
		err := m.repo.CreateBranch(&config.Branch{Name: name, Remote: remoteName, Merge: ref})
		if err != nil && !errors.Is(err, git.ErrBranchExists) {
			return data.Branch{}, fmt.Errorf("track branch %q: %w", name, err)
		}
	}

	branch := data.NewBranch(name)
	if _, err := m.checkout(branch); err != nil {
		return data.Branch{}, err
	}
	m.log.Info("created branch",
		zap.String("branch", name),
		zap.String("source", source.ShortName),
		zap.String("commit", tip.Hash.String()))
	return branch, m.autoPush(ctx, branch)
}

// commitFile 检出分支、写入文件、暂存并提交。失败时工作副本回到最后一次提交的状态。
// 内容未变化时提交仍会产生，并在 trailer 中记下文件路径。
func (m *Manager) commitFile(ctx context.Context, branch data.Branch, file string, content []byte, meta CommitMeta) (plumbing.Hash, error) {
	wt, err := m.checkout(branch)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if existing, err := os.ReadFile(filepath.Join(m.root, filepath.FromSlash(file))); err == nil && bytes.Equal(existing, content) {
		meta.Path = file
	}

	created, err := writeFile(m.root, file, content)
	if err != nil {
		m.rollback(wt, file, created)
		return plumbing.ZeroHash, fmt.Errorf("write %s: %w", file, err)
	}
	if _, err := wt.Add(file); err != nil {
		m.rollback(wt, file, created)
		return plumbing.ZeroHash, fmt.Errorf("stage %s: %w", file, err)
	}
	hash, err := m.commit(ctx, wt, meta)
	if err != nil {
		m.rollback(wt, file, created)
		return plumbing.ZeroHash, err
	}
	m.log.Info("committed",
		zap.String("branch", branch.ShortName),
		zap.String("path", file),
		zap.String("commit", hash.String()))
	return hash, nil
}

func (m *Manager) commit(ctx context.Context, wt *git.Worktree, meta CommitMeta) (plumbing.Hash, error) {
	if err := ctx.Err(); err != nil {
		return plumbing.ZeroHash, err
	}
	hash, err := wt.Commit(meta.Message(), &git.CommitOptions{
		Author:            meta.Author(),
		Committer:         m.committer(),
		AllowEmptyCommits: true,
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit: %w", err)
	}
	return hash, nil
}

// checkout 强制检出分支，丢弃工作副本中未提交的修改。
func (m *Manager) checkout(branch data.Branch) (*git.Worktree, error) {
	ref := plumbing.NewBranchReferenceName(branch.ShortName)
	if _, err := m.repo.Reference(ref, false); err != nil {
		return nil, fmt.Errorf("branch %q: %w", branch.ShortName, ErrNotFound)
	}
	wt, err := m.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: ref, Force: true}); err != nil {
		return nil, fmt.Errorf("checkout %q: %w", branch.ShortName, err)
	}
	return wt, nil
}

// rollback 把索引和工作副本重置到 HEAD；新建的文件一并删除。
func (m *Manager) rollback(wt *git.Worktree, file string, created bool) {
	if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset}); err != nil {
		m.log.Warn("rollback failed", zap.String("path", file), zap.Error(err))
	}
	if created {
		if err := removeFile(m.root, file); err != nil {
			m.log.Warn("rollback failed", zap.String("path", file), zap.Error(err))
		}
	}
}

