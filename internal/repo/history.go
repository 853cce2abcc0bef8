package repo

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"go.uber.org/zap"
)

// commitRecord 是一次提交解码后的视图，按哈希缓存。提交对象不可变，缓存无需失效。
type commitRecord struct {
	Hash string
	Meta CommitMeta
	// Paths are the files present after the commit that it added, modified or names via trailer.
	Paths []string
}

// entryID 返回提交所属的逻辑条目：重新打标签的提交归属于它替代的原始提交。
func (r *commitRecord) entryID() string {
	if r.Meta.Origin != "" {
		return r.Meta.Origin
	}
	return r.Hash
}

func (r *commitRecord) touches(p string) bool {
	return slices.Contains(r.Paths, p)
}

// entry is the newest commit of one logical entry of a file.
type entry struct {
	Path   string
	Record *commitRecord
}

// branchTip resolves the commit at the tip of a local branch.
func (m *Manager) branchTip(branch data.Branch) (*object.Commit, error) {
	ref, err := m.repo.Reference(plumbing.NewBranchReferenceName(branch.ShortName), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("branch %q: %w", branch.ShortName, ErrNotFound)
		}
		return nil, fmt.Errorf("resolve branch %q: %w", branch.ShortName, err)
	}
	c, err := m.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load tip of %q: %w", branch.ShortName, err)
	}
	return c, nil
}

// commitObject loads a commit by its hex hash, mapping unknown hashes to ErrNotFound.
func (m *Manager) commitObject(rev string) (*object.Commit, error) {
	h := plumbing.NewHash(rev)
	if rev == "" || h.IsZero() {
		return nil, fmt.Errorf("revision %q: %w", rev, ErrNotFound)
	}
	c, err := m.repo.CommitObject(h)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("revision %q: %w", rev, ErrNotFound)
		}
		return nil, fmt.Errorf("load revision %q: %w", rev, err)
	}
	return c, nil
}

// record 返回提交的解码视图，先查缓存。
func (m *Manager) record(c *object.Commit) (*commitRecord, error) {
	key := c.Hash.String()
	if rec, ok := m.records.Get(key); ok {
		return rec, nil
	}
	paths, err := changedPaths(c)
	if err != nil {
		return nil, fmt.Errorf("diff commit %s: %w", key, err)
	}
	meta := DecodeCommit(c)
	if meta.Path != "" && !slices.Contains(paths, meta.Path) {
		paths = append(paths, meta.Path)
	}
	rec := &commitRecord{Hash: key, Meta: meta, Paths: paths}
	m.records.Add(key, rec)
	return rec, nil
}

// changedPaths 返回提交相对第一个父提交新增或修改的文件；删除的文件不计入。
func changedPaths(c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, err
		}
	}
	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(changes))
	for _, ch := range changes {
		if ch.To.Name != "" {
			paths = append(paths, ch.To.Name)
		}
	}
	return paths, nil
}

// walk 从 from 开始按历史由新到旧访问提交，每访问一个提交前检查 ctx。
// fn 返回 storer.ErrStop 时提前结束且不视为错误。
func (m *Manager) walk(ctx context.Context, from plumbing.Hash, fn func(*commitRecord) error) error {
	iter, err := m.repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	defer iter.Close()

	visited := 0
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		visited++
		rec, err := m.record(c)
		if err != nil {
			return err
		}
		return fn(rec)
	})
	m.log.Debug("walked history", zap.String("from", from.String()), zap.Int("commits", visited))
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return err
	}
	return nil
}

// entries 返回 match 选中的文件的所有逻辑条目，每个条目只保留最新的提交，顺序为历史由新到旧。
func (m *Manager) entries(ctx context.Context, from plumbing.Hash, match func(string) bool) ([]entry, error) {
	type key struct{ path, id string }
	seen := make(map[key]bool)
	var out []entry

	err := m.walk(ctx, from, func(rec *commitRecord) error {
		for _, p := range rec.Paths {
			if !match(p) {
				continue
			}
			k := key{p, rec.entryID()}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, entry{Path: p, Record: rec})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lastTouching returns the newest commit reachable from from that touches p,
// or nil when no commit does.
func (m *Manager) lastTouching(ctx context.Context, from plumbing.Hash, p string) (*commitRecord, error) {
	var found *commitRecord
	err := m.walk(ctx, from, func(rec *commitRecord) error {
		if rec.touches(p) {
			found = rec
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// snapshotOf builds the snapshot descriptor an entry represents.
func snapshotOf(set data.BeamlineSet, rec *commitRecord) data.Snapshot {
	return data.Snapshot{
		BeamlineSet: set,
		Date:        rec.Meta.When,
		Comment:     rec.Meta.Comment,
		Owner:       rec.Meta.Owner,
		TagName:     rec.Meta.TagName,
		TagMessage:  rec.Meta.TagMessage,
		Revision:    rec.Hash,
	}
}

// sortNewestFirst orders snapshots by author date, newest first. Equal dates keep history order.
func sortNewestFirst(snapshots []data.Snapshot) {
	slices.SortStableFunc(snapshots, func(a, b data.Snapshot) int {
		return b.Date.Compare(a.Date)
	})
}
