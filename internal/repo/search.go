package repo

import (
	"context"
	"strings"
	"time"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"
)

// FindSnapshots 在分支的所有快照中查找：text 作为不区分大小写的子串，
// 与 criteria 选中的任一提交元数据字段匹配即命中。
// start、stop 非空时按作者时间闭区间过滤。结果按作者时间由新到旧。
// 不存在的分支返回空结果。
func (m *Manager) FindSnapshots(ctx context.Context, text string, branch data.Branch, criteria []data.SearchCriterion, start, stop *time.Time) ([]data.Snapshot, error) {
	tip, _, err := m.tipTree(branch)
	if err != nil || tip == nil || len(criteria) == 0 {
		return []data.Snapshot{}, err
	}

	entries, err := m.entries(ctx, tip.Hash, isSnapshotPath)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(text)
	out := []data.Snapshot{}
	for _, e := range entries {
		meta := e.Record.Meta
		if start != nil && meta.When.Before(start.Truncate(time.Second)) {
			continue
		}
		if stop != nil && meta.When.After(*stop) {
			continue
		}
		if !matches(meta, needle, criteria) {
			continue
		}
		set, _, ok := ParsePath(branch, e.Path, m.opts.DataProvider)
		if !ok {
			continue
		}
		out = append(out, snapshotOf(set, e.Record))
	}
	sortNewestFirst(out)
	return out, nil
}

func matches(meta CommitMeta, needle string, criteria []data.SearchCriterion) bool {
	for _, c := range criteria {
		var field string
		switch c {
		case data.CriterionComment:
			field = meta.Comment
		case data.CriterionUser:
			field = meta.Owner
		case data.CriterionTagName:
			field = meta.TagName
		case data.CriterionTagMessage:
			field = meta.TagMessage
		}
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// FindSnapshotsByCommentOrUser 按注释和/或作者查找快照。
func (m *Manager) FindSnapshotsByCommentOrUser(ctx context.Context, text string, branch data.Branch, comment, user bool, start, stop *time.Time) ([]data.Snapshot, error) {
	var criteria []data.SearchCriterion
	if comment {
		criteria = append(criteria, data.CriterionComment)
	}
	if user {
		criteria = append(criteria, data.CriterionUser)
	}
	return m.FindSnapshots(ctx, text, branch, criteria, start, stop)
}

// FindSnapshotsByTag matches the tag name or the tag message.
func (m *Manager) FindSnapshotsByTag(ctx context.Context, text string, branch data.Branch, start, stop *time.Time) ([]data.Snapshot, error) {
	return m.FindSnapshots(ctx, text, branch, []data.SearchCriterion{data.CriterionTagName, data.CriterionTagMessage}, start, stop)
}

func (m *Manager) FindSnapshotsByTagName(ctx context.Context, text string, branch data.Branch, start, stop *time.Time) ([]data.Snapshot, error) {
	return m.FindSnapshots(ctx, text, branch, []data.SearchCriterion{data.CriterionTagName}, start, stop)
}

func (m *Manager) FindSnapshotsByTagMessage(ctx context.Context, text string, branch data.Branch, start, stop *time.Time) ([]data.Snapshot, error) {
	return m.FindSnapshots(ctx, text, branch, []data.SearchCriterion{data.CriterionTagMessage}, start, stop)
}
