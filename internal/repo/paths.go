package repo

import (
	"fmt"
	"path"
	"strings"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"
)

const (
	beamlineSetsDir = "BeamlineSets"
	snapshotsDir    = "Snapshots"
)

// FileKind distinguishes the two kinds of data files.
type FileKind int

const (
	KindBeamlineSet FileKind = iota + 1
	KindSnapshot
)

// BeamlineSetPath 返回 "<base>/BeamlineSets/<path>.bms"，缺少 .bms 后缀时自动补齐。
func BeamlineSetPath(base string, segments []string) string {
	return path.Join(base, beamlineSetsDir, withExtension(segments, data.BeamlineSetExtension))
}

// SnapshotPath 返回 "<base>/Snapshots/<path>.snp"，.bms 后缀被替换为 .snp。
func SnapshotPath(base string, segments []string) string {
	return path.Join(base, snapshotsDir, withExtension(segments, data.SnapshotExtension))
}

func withExtension(segments []string, ext string) string {
	p := strings.Join(segments, "/")
	p = strings.TrimSuffix(p, data.BeamlineSetExtension)
	return p + ext
}

// ParsePath 把仓库相对路径还原为 beamline set 描述。
// 快照文件映射到其所属的 beamline set（后缀换回 .bms）。
func ParsePath(branch data.Branch, p, provider string) (data.BeamlineSet, FileKind, bool) {
	parts := strings.Split(p, "/")
	if len(parts) < 3 {
		return data.BeamlineSet{}, 0, false
	}
	base, dir, rest := parts[0], parts[1], parts[2:]
	last := rest[len(rest)-1]

	var kind FileKind
	switch {
	case dir == beamlineSetsDir && strings.HasSuffix(last, data.BeamlineSetExtension):
		kind = KindBeamlineSet
	case dir == snapshotsDir && strings.HasSuffix(last, data.SnapshotExtension):
		kind = KindSnapshot
		rest[len(rest)-1] = strings.TrimSuffix(last, data.SnapshotExtension) + data.BeamlineSetExtension
	default:
		return data.BeamlineSet{}, 0, false
	}
	return data.NewBeamlineSet(data.NewBaseLevel(branch, base), rest, provider), kind, true
}

// isSnapshotPath reports whether p names a snapshot file.
func isSnapshotPath(p string) bool {
	parts := strings.SplitN(p, "/", 3)
	return len(parts) == 3 && parts[1] == snapshotsDir && strings.HasSuffix(p, data.SnapshotExtension)
}

// locate 校验描述并返回规范化后的副本与 base 目录名。
func locate(set data.BeamlineSet) (data.BeamlineSet, string, error) {
	if set.BaseLevel == nil || set.BaseLevel.StorageName == "" {
		return data.BeamlineSet{}, "", fmt.Errorf("%w: beamline set %s has no base level", ErrInvalidPath, set)
	}
	if err := validateSegment(set.BaseLevel.StorageName); err != nil {
		return data.BeamlineSet{}, "", err
	}
	if len(set.Path) == 0 {
		return data.BeamlineSet{}, "", fmt.Errorf("%w: beamline set %s has an empty path", ErrInvalidPath, set)
	}
	for _, seg := range set.Path {
		if err := validateSegment(seg); err != nil {
			return data.BeamlineSet{}, "", err
		}
	}
	normalized := set.Normalized()
	base := *normalized.BaseLevel
	base.Branch = set.Branch
	normalized.BaseLevel = &base
	return normalized, base.StorageName, nil
}

func validateSegment(seg string) error {
	if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, "/\\") || strings.HasPrefix(seg, ".git") {
		return fmt.Errorf("%w: segment %q", ErrInvalidPath, seg)
	}
	return nil
}
