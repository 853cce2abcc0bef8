package repo

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// placeholderComment 在注释为空时用作提交消息。
const placeholderComment = "unknown comment"

// 提交消息尾部的元数据段：首行固定为 metadataMarker，其后每行一个 trailer。
const (
	metadataMarker = "Save-Restore-Metadata: 1"

	trailerTagName    = "Tag-Name"
	trailerTagMessage = "Tag-Message"
	trailerOrigin     = "Snapshot-Of"
	trailerPath       = "Entry-Path"
)

var trailerKeys = []string{trailerTagName, trailerTagMessage, trailerOrigin, trailerPath}

// CommitMeta 是编码进一次提交的领域元数据。
//
// Comment 原样存在提交消息中，Owner 与 When 分别是作者名与作者时间。
// 标签字段以及重新打标签时的 Origin、Path 写在消息末尾的元数据段中：
// 段落首行为 metadataMarker，之后每行形如 `Key: "quoted value"`。
type CommitMeta struct {
	Comment    string
	Owner      string
	Email      string
	When       time.Time
	TagName    string
	TagMessage string
	// Origin is the commit of the logical snapshot entry a retag commit supersedes.
	Origin string
	// Path names the file a commit refers to when its tree shows no change,
	// as for retags and re-saves of identical content.
	Path string
}

// Message 编码提交消息。注释为空时使用占位文本。
// 有 trailer，或注释本身会被误读（以换行结尾、最后一段以 metadataMarker 开头）时，
// 追加元数据段；解码时只去掉最后这一段，注释保持原样。
func (m CommitMeta) Message() string {
	comment := m.Comment
	if strings.TrimSpace(comment) == "" {
		comment = placeholderComment
	}

	trailers := []string{metadataMarker}
	add := func(key, value string) {
		if value != "" {
			trailers = append(trailers, key+": "+strconv.Quote(value))
		}
	}
	add(trailerTagName, m.TagName)
	add(trailerTagMessage, m.TagMessage)
	add(trailerOrigin, m.Origin)
	add(trailerPath, m.Path)

	if len(trailers) == 1 && !ambiguous(comment) {
		return comment
	}
	return comment + "\n\n" + strings.Join(trailers, "\n")
}

// ambiguous reports whether a bare comment would not decode back to itself.
func ambiguous(comment string) bool {
	if strings.HasSuffix(comment, "\n") {
		return true
	}
	_, last := lastParagraph(comment)
	return strings.HasPrefix(last, metadataMarker)
}

func lastParagraph(msg string) (int, string) {
	idx := strings.LastIndex(msg, "\n\n")
	if idx < 0 {
		return -1, msg
	}
	return idx, msg[idx+2:]
}

// Author returns the author signature: owner, placeholder e-mail and the
// logical capture time.
func (m CommitMeta) Author() *object.Signature {
	return &object.Signature{Name: m.Owner, Email: m.Email, When: m.When}
}

// DecodeCommit 从提交中还原元数据。作者时间只有秒级精度，统一转换为 UTC。
func DecodeCommit(c *object.Commit) CommitMeta {
	meta := DecodeMessage(c.Message)
	meta.Owner = c.Author.Name
	meta.Email = c.Author.Email
	meta.When = c.Author.When.UTC()
	return meta
}

// DecodeMessage parses the comment and metadata block of a commit message.
// Messages without a metadata block are entirely comment; a trailing newline
// added by other git clients is dropped.
func DecodeMessage(msg string) CommitMeta {
	var meta CommitMeta

	idx, block := lastParagraph(strings.TrimRight(msg, "\n"))
	fields, ok := parseMetadata(block)
	if idx < 0 || !ok {
		meta.Comment = strings.TrimRight(msg, "\n")
		return meta
	}
	meta.Comment = msg[:idx]
	meta.TagName = fields[trailerTagName]
	meta.TagMessage = fields[trailerTagMessage]
	meta.Origin = fields[trailerOrigin]
	meta.Path = fields[trailerPath]
	return meta
}

// parseMetadata 只接受以 metadataMarker 开头、其余每行都是已知 trailer 的段落。
func parseMetadata(block string) (map[string]string, bool) {
	lines := strings.Split(block, "\n")
	if lines[0] != metadataMarker {
		return nil, false
	}
	fields := make(map[string]string, len(trailerKeys))
	for _, line := range lines[1:] {
		key, value, found := strings.Cut(line, ": ")
		if !found || !isTrailerKey(key) {
			return nil, false
		}
		if unquoted, err := strconv.Unquote(value); err == nil {
			value = unquoted
		}
		fields[key] = value
	}
	return fields, true
}

func isTrailerKey(key string) bool {
	for _, k := range trailerKeys {
		if k == key {
			return true
		}
	}
	return false
}
