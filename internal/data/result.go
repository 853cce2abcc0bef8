package data

// ChangeType 描述一次变更操作的结果类型。
type ChangeType string

const (
	// ChangeSave 表示实体被创建或更新。
	ChangeSave ChangeType = "SAVE"
	// ChangeDelete 表示实体被删除。
	ChangeDelete ChangeType = "DELETE"
)

// Result is the outcome of a mutating operation.
type Result[T any] struct {
	Data   T          `json:"data" yaml:"data"`
	Change ChangeType `json:"change" yaml:"change"`
}

// ImportType selects what is copied by an import.
type ImportType string

const (
	ImportBeamlineSet  ImportType = "BEAMLINE_SET"
	ImportLastSnapshot ImportType = "LAST_SNAPSHOT"
	ImportAllSnapshots ImportType = "ALL_SNAPSHOTS"
)

// SearchCriterion 指定搜索匹配的提交元数据字段。
type SearchCriterion string

const (
	CriterionComment    SearchCriterion = "COMMENT"
	CriterionUser       SearchCriterion = "USER"
	CriterionTagName    SearchCriterion = "TAG_NAME"
	CriterionTagMessage SearchCriterion = "TAG_MESSAGE"
)

// ParseImportType accepts the canonical names case-insensitively.
func ParseImportType(s string) (ImportType, bool) {
	switch t := ImportType(upper(s)); t {
	case ImportBeamlineSet, ImportLastSnapshot, ImportAllSnapshots:
		return t, true
	}
	return "", false
}

// ParseSearchCriterion accepts the canonical names case-insensitively.
func ParseSearchCriterion(s string) (SearchCriterion, bool) {
	switch c := SearchCriterion(upper(s)); c {
	case CriterionComment, CriterionUser, CriterionTagName, CriterionTagMessage:
		return c, true
	}
	return "", false
}
