package data

import (
	"slices"
	"time"
)

// VSnapshot 是带有通道值的快照。
// Selected、Values、Readbacks、ReadbackValues、Deltas 的长度都与 PVs 一致，
// 没有 readback 的位置为空字符串和 nil。用 NewVSnapshot 构造可自动补齐。
type VSnapshot struct {
	Snapshot       Snapshot  `json:"snapshot" yaml:"snapshot"`
	PVs            []string  `json:"pvs" yaml:"pvs"`
	Selected       []bool    `json:"selected" yaml:"selected"`
	Values         []Value   `json:"-" yaml:"-"`
	Readbacks      []string  `json:"readbacks" yaml:"readbacks"`
	ReadbackValues []Value   `json:"-" yaml:"-"`
	Deltas         []string  `json:"deltas" yaml:"deltas"`
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
}

// NewVSnapshot 构造通道值快照：Selected、Values、Readbacks、ReadbackValues、Deltas
// 补齐到 pvs 的长度，缺少的 selected 标志为 true，缺少的值为 nil，字符串为空。
func NewVSnapshot(s Snapshot, pvs []string, selected []bool, values []Value, readbacks []string, readbackValues []Value, deltas []string, timestamp time.Time) VSnapshot {
	n := len(pvs)
	flags := make([]bool, n)
	for i := range flags {
		flags[i] = i >= len(selected) || selected[i]
	}
	return VSnapshot{
		Snapshot:       s,
		PVs:            slices.Clone(pvs),
		Selected:       flags,
		Values:         padValues(values, n),
		Readbacks:      pad(readbacks, n),
		ReadbackValues: padValues(readbackValues, n),
		Deltas:         pad(deltas, n),
		Timestamp:      timestamp,
	}
}

func padValues(values []Value, n int) []Value {
	out := make([]Value, n)
	copy(out, values)
	return out
}

// WithSnapshot returns a copy of v that carries s as its descriptor.
func (v VSnapshot) WithSnapshot(s Snapshot) VSnapshot {
	v.Snapshot = s
	return v
}

// EqualExceptSnapshotOrSet compares channel names, values, deltas and the
// capture timestamp only.
func (v VSnapshot) EqualExceptSnapshotOrSet(o VSnapshot) bool {
	return slices.Equal(v.PVs, o.PVs) &&
		slices.Equal(v.Selected, o.Selected) &&
		slices.Equal(v.Readbacks, o.Readbacks) &&
		slices.Equal(v.Deltas, o.Deltas) &&
		slices.EqualFunc(v.Values, o.Values, EqualValues) &&
		slices.EqualFunc(v.ReadbackValues, o.ReadbackValues, EqualValues) &&
		v.Timestamp.Equal(o.Timestamp)
}

// EqualExceptSnapshot additionally requires the same beamline set.
func (v VSnapshot) EqualExceptSnapshot(o VSnapshot) bool {
	return v.Snapshot.BeamlineSet.Normalized().Equal(o.Snapshot.BeamlineSet.Normalized()) &&
		v.EqualExceptSnapshotOrSet(o)
}

// Equal compares everything including the snapshot descriptor and revision.
func (v VSnapshot) Equal(o VSnapshot) bool {
	return v.Snapshot.Equal(o.Snapshot) && v.EqualExceptSnapshotOrSet(o)
}
