package data

import (
	"slices"
	"strings"
)

const (
	// BeamlineSetExtension 是 beamline set 文件的后缀。
	BeamlineSetExtension = ".bms"
	// SnapshotExtension 是 snapshot 文件的后缀。
	SnapshotExtension = ".snp"
	// PathSeparator 分隔 beamline set 路径中的各段。
	PathSeparator = "/"
)

// BeamlineSet 描述一个 beamline set 的位置。
// 相等性只由 Branch、BaseLevel 与 Path 决定，DataProvider 仅是元数据。
type BeamlineSet struct {
	Branch       Branch     `json:"branch" yaml:"branch"`
	BaseLevel    *BaseLevel `json:"baseLevel,omitempty" yaml:"baseLevel,omitempty"`
	Path         []string   `json:"path" yaml:"path"`
	DataProvider string     `json:"dataProvider,omitempty" yaml:"dataProvider,omitempty"`
}

// NewBeamlineSet builds a descriptor located in base on the base's branch.
func NewBeamlineSet(base BaseLevel, path []string, provider string) BeamlineSet {
	b := base
	return BeamlineSet{
		Branch:       base.Branch,
		BaseLevel:    &b,
		Path:         slices.Clone(path),
		DataProvider: provider,
	}
}

// Name 返回路径最后一段（文件名）。
func (s BeamlineSet) Name() string {
	if len(s.Path) == 0 {
		return ""
	}
	return s.Path[len(s.Path)-1]
}

// FullName 返回用分隔符连接的完整路径。
func (s BeamlineSet) FullName() string {
	return strings.Join(s.Path, PathSeparator)
}

// Normalized 返回最后一段带有 .bms 后缀的副本。
// 缺少后缀时补齐，这是规范化而不是校验失败。
func (s BeamlineSet) Normalized() BeamlineSet {
	out := s
	out.Path = slices.Clone(s.Path)
	if n := len(out.Path); n > 0 && !strings.HasSuffix(out.Path[n-1], BeamlineSetExtension) {
		out.Path[n-1] += BeamlineSetExtension
	}
	if s.BaseLevel != nil {
		b := *s.BaseLevel
		out.BaseLevel = &b
	}
	return out
}

// Equal reports whether both descriptors point at the same location.
func (s BeamlineSet) Equal(o BeamlineSet) bool {
	if s.Branch != o.Branch {
		return false
	}
	if (s.BaseLevel == nil) != (o.BaseLevel == nil) {
		return false
	}
	if s.BaseLevel != nil && *s.BaseLevel != *o.BaseLevel {
		return false
	}
	return slices.Equal(s.Path, o.Path)
}

func (s BeamlineSet) String() string {
	if s.BaseLevel == nil {
		return s.Branch.ShortName + ":" + s.FullName()
	}
	return s.BaseLevel.String() + "/" + s.FullName()
}

// BeamlineSetData 是 beamline set 的内容。
// PVs、Readbacks 与 Deltas 等长，空项用空字符串占位以保持列对齐。
type BeamlineSetData struct {
	Descriptor  BeamlineSet `json:"descriptor" yaml:"descriptor"`
	PVs         []string    `json:"pvs" yaml:"pvs"`
	Readbacks   []string    `json:"readbacks" yaml:"readbacks"`
	Deltas      []string    `json:"deltas" yaml:"deltas"`
	Description string      `json:"description" yaml:"description"`
	// Revision is the commit the content was read from or written to.
	Revision string `json:"revision,omitempty" yaml:"revision,omitempty"`
}

// NewBeamlineSetData builds set content, padding readbacks and deltas to the
// length of pvs.
func NewBeamlineSetData(set BeamlineSet, pvs, readbacks, deltas []string, description string) BeamlineSetData {
	return BeamlineSetData{
		Descriptor:  set,
		PVs:         slices.Clone(pvs),
		Readbacks:   pad(readbacks, len(pvs)),
		Deltas:      pad(deltas, len(pvs)),
		Description: description,
	}
}

func pad(values []string, n int) []string {
	out := make([]string, n)
	copy(out, values)
	return out
}

// EqualContent compares channel lists and description only.
func (d BeamlineSetData) EqualContent(o BeamlineSetData) bool {
	return slices.Equal(d.PVs, o.PVs) &&
		slices.Equal(d.Readbacks, o.Readbacks) &&
		slices.Equal(d.Deltas, o.Deltas) &&
		d.Description == o.Description
}

// Equal compares descriptor and content. The revision is not part of identity.
func (d BeamlineSetData) Equal(o BeamlineSetData) bool {
	return d.Descriptor.Normalized().Equal(o.Descriptor.Normalized()) && d.EqualContent(o)
}
