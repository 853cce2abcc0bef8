package repo

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
)

func TestCommitMeta_MessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		meta CommitMeta
		want string
	}{
		{
			name: "plain comment",
			meta: CommitMeta{Comment: "sufferin succotash"},
			want: "sufferin succotash",
		},
		{
			name: "empty comment uses placeholder",
			meta: CommitMeta{},
			want: placeholderComment,
		},
		{
			name: "tag with newline in message",
			meta: CommitMeta{Comment: "first\n\nsecond paragraph", TagName: "GoldenOrbit", TagMessage: "line one\nline \"two\""},
			want: "first\n\nsecond paragraph\n\nSave-Restore-Metadata: 1\nTag-Name: \"GoldenOrbit\"\nTag-Message: \"line one\\nline \\\"two\\\"\"",
		},
		{
			name: "retag without tag fields",
			meta: CommitMeta{Comment: "c", Origin: "0123abcd", Path: "base/Snapshots/foo/test.snp"},
			want: "c\n\nSave-Restore-Metadata: 1\nSnapshot-Of: \"0123abcd\"\nEntry-Path: \"base/Snapshots/foo/test.snp\"",
		},
		{
			name: "comment that looks like trailers stays a comment",
			meta: CommitMeta{Comment: "second\n\nSnapshot-Of: \"0123abcd\""},
			want: "second\n\nSnapshot-Of: \"0123abcd\"",
		},
		{
			name: "comment that looks like a metadata block",
			meta: CommitMeta{Comment: "third\n\nSave-Restore-Metadata: 1\nTag-Name: \"golden\""},
			want: "third\n\nSave-Restore-Metadata: 1\nTag-Name: \"golden\"\n\nSave-Restore-Metadata: 1",
		},
		{
			name: "trailing newlines are kept",
			meta: CommitMeta{Comment: "line\n\n", TagName: "t"},
			want: "line\n\n\n\nSave-Restore-Metadata: 1\nTag-Name: \"t\"",
		},
		{
			name: "trailing newline without tag",
			meta: CommitMeta{Comment: "line\n"},
			want: "line\n\n\nSave-Restore-Metadata: 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.meta.Message()
			assert.Equal(t, tt.want, msg)

			got := DecodeMessage(msg)
			wantComment := tt.meta.Comment
			if wantComment == "" {
				wantComment = placeholderComment
			}
			assert.Equal(t, wantComment, got.Comment)
			assert.Equal(t, tt.meta.TagName, got.TagName)
			assert.Equal(t, tt.meta.TagMessage, got.TagMessage)
			assert.Equal(t, tt.meta.Origin, got.Origin)
			assert.Equal(t, tt.meta.Path, got.Path)
		})
	}
}

func TestDecodeMessage_WithoutMetadataBlock(t *testing.T) {
	for _, msg := range []string{
		"comment\n\nSigned-off-by: someone",
		"comment\n\nTag-Name: \"golden\"\nSnapshot-Of: \"0123abcd\"",
		"comment\n\nSave-Restore-Metadata: 1\nSigned-off-by: someone",
	} {
		got := DecodeMessage(msg + "\n")
		assert.Equal(t, msg, got.Comment)
		assert.Empty(t, got.TagName)
		assert.Empty(t, got.Origin)
		assert.Empty(t, got.Path)
	}
}

func TestDecodeCommit(t *testing.T) {
	when := time.Date(2024, 6, 15, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	c := &object.Commit{
		Author:  object.Signature{Name: "sylvester", Email: "saverestore@localhost", When: when},
		Message: "sufferin succotash\n\nSave-Restore-Metadata: 1\nTag-Name: \"golden\"\n",
	}

	meta := DecodeCommit(c)
	assert.Equal(t, "sylvester", meta.Owner)
	assert.Equal(t, "sufferin succotash", meta.Comment)
	assert.Equal(t, "golden", meta.TagName)
	assert.Equal(t, time.UTC, meta.When.Location())
	assert.True(t, meta.When.Equal(when))
}
