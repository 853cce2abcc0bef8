package repo

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Branches 返回所有本地分支：默认分支在前，其余按名称排序。默认分支总是包含在内。
func (m *Manager) Branches(ctx context.Context) ([]data.Branch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter, err := m.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer iter.Close()

	def := m.opts.DefaultBranch
	names := []string{}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if name := ref.Name().Short(); name != def {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	slices.Sort(names)

	out := make([]data.Branch, 0, len(names)+1)
	out = append(out, data.NewBranch(def))
	for _, n := range names {
		out = append(out, data.NewBranch(n))
	}
	return out, nil
}

// tipTree returns the tree at the tip of branch; a missing branch yields nil without error.
func (m *Manager) tipTree(branch data.Branch) (*object.Commit, *object.Tree, error) {
	tip, err := m.branchTip(branch)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	tree, err := tip.Tree()
	if err != nil {
		return nil, nil, fmt.Errorf("load tree of %q: %w", branch.ShortName, err)
	}
	return tip, tree, nil
}

// BaseLevels 列出分支顶层目录，按名称排序，忽略以 . 开头的目录。
func (m *Manager) BaseLevels(ctx context.Context, branch data.Branch) ([]data.BaseLevel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, tree, err := m.tipTree(branch)
	if err != nil || tree == nil {
		return []data.BaseLevel{}, err
	}

	out := []data.BaseLevel{}
	for _, e := range tree.Entries {
		if e.Mode != filemode.Dir || strings.HasPrefix(e.Name, ".") {
			continue
		}
		out = append(out, data.NewBaseLevel(branch, e.Name))
	}
	slices.SortFunc(out, data.CompareBaseLevels)
	return out, nil
}

// BeamlineSets 列出 base 下（base 为 nil 时为分支的所有 base level 下）的全部 .bms 文件。
// base level 或分支不存在时返回空列表。
func (m *Manager) BeamlineSets(ctx context.Context, branch data.Branch, base *data.BaseLevel) ([]data.BeamlineSet, error) {
	_, tree, err := m.tipTree(branch)
	if err != nil || tree == nil {
		return []data.BeamlineSet{}, err
	}

	var bases []data.BaseLevel
	if base != nil {
		bases = []data.BaseLevel{base.OnBranch(branch)}
	} else if bases, err = m.BaseLevels(ctx, branch); err != nil {
		return nil, err
	}

	out := []data.BeamlineSet{}
	for _, b := range bases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sub, err := tree.Tree(path.Join(b.StorageName, beamlineSetsDir))
		if errors.Is(err, object.ErrDirectoryNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s on %q: %w", b.StorageName, branch.ShortName, err)
		}
		err = sub.Files().ForEach(func(f *object.File) error {
			if strings.HasSuffix(f.Name, data.BeamlineSetExtension) {
				out = append(out, data.NewBeamlineSet(b, strings.Split(f.Name, "/"), m.opts.DataProvider))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list beamline sets in %s: %w", b.StorageName, err)
		}
	}
	slices.SortFunc(out, func(a, b data.BeamlineSet) int {
		if c := data.CompareBaseLevels(*a.BaseLevel, *b.BaseLevel); c != 0 {
			return c
		}
		return strings.Compare(a.FullName(), b.FullName())
	})
	return out, nil
}

// Snapshots 返回 set 的快照，按作者时间由新到旧。
// maxCount 为 0 表示不限数量；after 非空时从该快照之后继续（分页游标），
// 游标在历史中找不到时返回 ErrNotFound。
func (m *Manager) Snapshots(ctx context.Context, set data.BeamlineSet, maxCount int, after *data.Snapshot) ([]data.Snapshot, error) {
	set, base, err := locate(set)
	if err != nil {
		return nil, err
	}
	tip, _, err := m.tipTree(set.Branch)
	if err != nil || tip == nil {
		return []data.Snapshot{}, err
	}

	file := SnapshotPath(base, set.Path)
	entries, err := m.entries(ctx, tip.Hash, func(p string) bool { return p == file })
	if err != nil {
		return nil, err
	}
	snapshots := make([]data.Snapshot, 0, len(entries))
	for _, e := range entries {
		snapshots = append(snapshots, snapshotOf(set, e.Record))
	}
	sortNewestFirst(snapshots)

	if after != nil {
		cursor, err := m.cursorEntry(after.Revision)
		if err != nil {
			return nil, err
		}
		idx := slices.IndexFunc(entriesOf(snapshots, entries), func(id string) bool { return id == cursor })
		if idx < 0 {
			return nil, fmt.Errorf("snapshot %s of %s: %w", after.Revision, set, ErrNotFound)
		}
		snapshots = snapshots[idx+1:]
	}
	if maxCount > 0 && len(snapshots) > maxCount {
		snapshots = snapshots[:maxCount]
	}
	return snapshots, nil
}

// cursorEntry resolves the logical entry a pagination cursor points at.
func (m *Manager) cursorEntry(rev string) (string, error) {
	c, err := m.commitObject(rev)
	if err != nil {
		return "", err
	}
	rec, err := m.record(c)
	if err != nil {
		return "", err
	}
	return rec.entryID(), nil
}

// entriesOf maps sorted snapshots back to their logical entry IDs.
func entriesOf(snapshots []data.Snapshot, entries []entry) []string {
	byHash := make(map[string]string, len(entries))
	for _, e := range entries {
		byHash[e.Record.Hash] = e.Record.entryID()
	}
	ids := make([]string, len(snapshots))
	for i, s := range snapshots {
		ids[i] = byHash[s.Revision]
	}
	return ids
}

// LoadBeamlineSetData 读取 revision（为空时为分支最新提交）处的 beamline set 内容。
// 返回值的 Revision 是截至该处最后一次修改此文件的提交。
func (m *Manager) LoadBeamlineSetData(ctx context.Context, set data.BeamlineSet, revision string) (data.BeamlineSetData, error) {
	set, base, err := locate(set)
	if err != nil {
		return data.BeamlineSetData{}, err
	}
	var c *object.Commit
	if revision == "" {
		c, err = m.branchTip(set.Branch)
	} else {
		c, err = m.commitObject(revision)
	}
	if err != nil {
		return data.BeamlineSetData{}, err
	}

	file := BeamlineSetPath(base, set.Path)
	text, err := fileAt(c, file)
	if err != nil {
		return data.BeamlineSetData{}, fmt.Errorf("beamline set %s: %w", set, err)
	}
	d, err := m.opts.BeamlineSetCodec.Decode(text, set)
	if err != nil {
		return data.BeamlineSetData{}, &CorruptError{Branch: set.Branch.ShortName, Path: file, Err: err}
	}
	d.Descriptor = set

	last, err := m.lastTouching(ctx, c.Hash, file)
	if err != nil {
		return data.BeamlineSetData{}, err
	}
	if last != nil {
		d.Revision = last.Hash
	}
	return d, nil
}

// LoadSnapshotData 读取快照提交中的文件内容，并合并该提交记录的注释、所有者、时间与标签。
func (m *Manager) LoadSnapshotData(ctx context.Context, snapshot data.Snapshot) (data.VSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return data.VSnapshot{}, err
	}
	set, base, err := locate(snapshot.BeamlineSet)
	if err != nil {
		return data.VSnapshot{}, err
	}
	c, err := m.commitObject(snapshot.Revision)
	if err != nil {
		return data.VSnapshot{}, err
	}

	file := SnapshotPath(base, set.Path)
	text, err := fileAt(c, file)
	if err != nil {
		return data.VSnapshot{}, fmt.Errorf("snapshot %s: %w", set, err)
	}
	v, err := m.opts.SnapshotCodec.Decode(text, set)
	if err != nil {
		return data.VSnapshot{}, &CorruptError{Branch: set.Branch.ShortName, Path: file, Err: err}
	}
	rec, err := m.record(c)
	if err != nil {
		return data.VSnapshot{}, err
	}
	return v.WithSnapshot(snapshotOf(set, rec)), nil
}

// fileAt returns the content of p in the tree of c.
func fileAt(c *object.Commit, p string) (string, error) {
	f, err := c.File(p)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return "", fmt.Errorf("%s at %s: %w", p, c.Hash, ErrNotFound)
		}
		return "", fmt.Errorf("read %s at %s: %w", p, c.Hash, err)
	}
	text, err := f.Contents()
	if err != nil {
		return "", fmt.Errorf("read %s at %s: %w", p, c.Hash, err)
	}
	return text, nil
}
