package data

import "time"

// Snapshot 描述某个 beamline set 的一次已提交采集。
// Revision 是持久化后的提交哈希；领域字段相同但 Revision 不同的两个快照
// 只是"几乎相等"（AlmostEqual），而不相等（Equal）。
type Snapshot struct {
	BeamlineSet BeamlineSet `json:"beamlineSet" yaml:"beamlineSet"`
	Date        time.Time   `json:"date" yaml:"date"`
	Comment     string      `json:"comment" yaml:"comment"`
	Owner       string      `json:"owner" yaml:"owner"`
	TagName     string      `json:"tagName,omitempty" yaml:"tagName,omitempty"`
	TagMessage  string      `json:"tagMessage,omitempty" yaml:"tagMessage,omitempty"`
	Revision    string      `json:"revision,omitempty" yaml:"revision,omitempty"`
}

// NewSnapshot builds an unpersisted snapshot descriptor.
func NewSnapshot(set BeamlineSet, date time.Time, comment, owner string) Snapshot {
	return Snapshot{BeamlineSet: set, Date: date, Comment: comment, Owner: owner}
}

// Tagged reports whether the snapshot carries a tag.
func (s Snapshot) Tagged() bool {
	return s.TagName != "" || s.TagMessage != ""
}

// AlmostEqual 比较领域字段（beamline set、时间、注释、所有者），忽略 tag 与 Revision。
// 时间按秒比较，因为提交时间只有秒级精度。
func (s Snapshot) AlmostEqual(o Snapshot) bool {
	return s.BeamlineSet.Equal(o.BeamlineSet) &&
		sameSecond(s.Date, o.Date) &&
		s.Comment == o.Comment &&
		s.Owner == o.Owner
}

// Equal compares every field including tag fields and revision.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.AlmostEqual(o) &&
		s.TagName == o.TagName &&
		s.TagMessage == o.TagMessage &&
		s.Revision == o.Revision
}

func sameSecond(a, b time.Time) bool {
	return a.Unix() == b.Unix()
}
