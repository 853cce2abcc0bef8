package data

import "strings"

// DefaultBranchName 是仓库初始分支的名称。
const DefaultBranchName = "master"

// Branch 表示一条独立的历史线。
type Branch struct {
	ShortName string `json:"shortName" yaml:"shortName"`
	FullName  string `json:"fullName" yaml:"fullName"`
}

// NewBranch 使用同一个名称作为标识和显示名构造分支。
func NewBranch(name string) Branch {
	return Branch{ShortName: name, FullName: name}
}

// DefaultBranch 返回默认分支。
func DefaultBranch() Branch {
	return NewBranch(DefaultBranchName)
}

func (b Branch) String() string {
	return b.ShortName
}

// BaseLevel 是分支下的顶层目录。StorageName 直接用作目录名。
type BaseLevel struct {
	Branch           Branch `json:"branch" yaml:"branch"`
	StorageName      string `json:"storageName" yaml:"storageName"`
	PresentationName string `json:"presentationName" yaml:"presentationName"`
}

// NewBaseLevel 构造一个显示名与存储名相同的 base level。
func NewBaseLevel(branch Branch, storageName string) BaseLevel {
	return BaseLevel{Branch: branch, StorageName: storageName, PresentationName: storageName}
}

// OnBranch returns a copy of the base level moved to another branch.
func (b BaseLevel) OnBranch(branch Branch) BaseLevel {
	b.Branch = branch
	return b
}

func (b BaseLevel) String() string {
	return b.Branch.ShortName + ":" + b.StorageName
}

// CompareBaseLevels orders base levels by storage name.
func CompareBaseLevels(a, b BaseLevel) int {
	return strings.Compare(a.StorageName, b.StorageName)
}

func upper(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
}
