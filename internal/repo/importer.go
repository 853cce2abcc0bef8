package repo

import (
	"context"
	"fmt"
	"slices"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"

	"go.uber.org/zap"
)

// ProgressFunc 在每保存一个快照后被调用。
type ProgressFunc func(done, total int)

// ImportOption configures ImportData.
type ImportOption func(*importOptions)

type importOptions struct {
	progress ProgressFunc
}

// WithProgress reports snapshot copy progress.
func WithProgress(fn ProgressFunc) ImportOption {
	return func(o *importOptions) {
		o.progress = fn
	}
}

// ImportData 把 source 复制到 targetBranch 下的 targetBase（为 nil 时使用与源相同名称的 base level），
// 相对路径不变。
//
//   - ImportBeamlineSet 只复制 beamline set 内容；
//   - ImportLastSnapshot 另外复制最新的一个快照；
//   - ImportAllSnapshots 按由旧到新的顺序复制全部快照。
//
// 快照保留原有注释、所有者、时间和标签，但不保留原 revision。
// 整个导入在一次持锁中完成；源 beamline set 不存在时返回 ErrNotFound。
func (m *Manager) ImportData(ctx context.Context, source data.BeamlineSet, targetBranch data.Branch, targetBase *data.BaseLevel, importType data.ImportType, opts ...ImportOption) (data.Result[bool], error) {
	var o importOptions
	for _, opt := range opts {
		opt(&o)
	}
	switch importType {
	case data.ImportBeamlineSet, data.ImportLastSnapshot, data.ImportAllSnapshots:
	default:
		return data.Result[bool]{}, fmt.Errorf("unknown import type %q", importType)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	src, srcBase, err := locate(source)
	if err != nil {
		return data.Result[bool]{}, err
	}
	d, err := m.LoadBeamlineSetData(ctx, src, "")
	if err != nil {
		return data.Result[bool]{}, err
	}

	base := data.NewBaseLevel(targetBranch, srcBase)
	if targetBase != nil {
		base = targetBase.OnBranch(targetBranch)
	}
	target := data.NewBeamlineSet(base, src.Path, src.DataProvider)
	d.Descriptor = target
	d.Revision = ""

	saved, err := m.saveBeamlineSetLocked(ctx, d, fmt.Sprintf("Import %s", src))
	if err != nil {
		return data.Result[bool]{}, err
	}
	target = saved.Data.Descriptor

	var snapshots []data.Snapshot
	switch importType {
	case data.ImportBeamlineSet:
	case data.ImportLastSnapshot:
		snapshots, err = m.Snapshots(ctx, src, 1, nil)
	case data.ImportAllSnapshots:
		snapshots, err = m.Snapshots(ctx, src, 0, nil)
		slices.Reverse(snapshots)
	}
	if err != nil {
		return data.Result[bool]{}, err
	}

	for i, s := range snapshots {
		v, err := m.LoadSnapshotData(ctx, s)
		if err != nil {
			return data.Result[bool]{}, err
		}
		copied := v.Snapshot
		copied.BeamlineSet = target
		copied.Revision = ""
		if _, err := m.saveSnapshotLocked(ctx, v.WithSnapshot(copied), copied.Comment); err != nil {
			return data.Result[bool]{}, err
		}
		if o.progress != nil {
			o.progress(i+1, len(snapshots))
		}
	}

	m.log.Info("imported beamline set",
		zap.String("source", src.String()),
		zap.String("target", target.String()),
		zap.String("type", string(importType)),
		zap.Int("snapshots", len(snapshots)))
	return data.Result[bool]{Data: true, Change: data.ChangeSave}, m.autoPush(ctx, targetBranch)
}
