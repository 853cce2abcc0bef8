package cmd

import (
	"context"
	"os"
	"testing"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"
	"github.com/frib-high-level-controls/save-set-restore/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagOverrides(t *testing.T) {
	withTempHome(t)

	g := &globalOptions{repoPath: " /data/wc ", remote: "https://git.example.org/ssr.git", logLevel: "warn"}
	cfg, err := g.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/data/wc", cfg.Repository.Path)
	assert.Equal(t, "https://git.example.org/ssr.git", cfg.Repository.Remote)
	assert.Equal(t, "warn", cfg.Log.Level)

	opts := managerOptions(cfg, nil)
	assert.Equal(t, "/data/wc", opts.Path)
	assert.Equal(t, dataProvider, opts.DataProvider)
	assert.NotNil(t, opts.BeamlineSetCodec)
	assert.NotNil(t, opts.SnapshotCodec)
	assert.NotNil(t, opts.Credentials)
}

func TestParseCriteria(t *testing.T) {
	got, err := parseCriteria([]string{"comment", "USER", "tag", "tag_name"})
	require.NoError(t, err)
	assert.Equal(t, []data.SearchCriterion{
		data.CriterionComment, data.CriterionUser, data.CriterionTagName, data.CriterionTagMessage,
	}, got)

	_, err = parseCriteria(nil)
	assert.Error(t, err)
	_, err = parseCriteria([]string{"owner"})
	assert.Error(t, err)
}

func stubPrompt(env map[string]string, terminal bool) *promptCredentials {
	p := newPromptCredentials()
	p.out = &discard{}
	p.getenv = func(k string) string { return env[k] }
	p.terminal = func(int) bool { return terminal }
	p.password = func(int) ([]byte, error) { return []byte("s3cret"), nil }
	return p
}

type discard struct{}

func (*discard) Write(b []byte) (int, error) { return len(b), nil }

func TestPromptCredentials_Environment(t *testing.T) {
	ctx := context.Background()
	env := map[string]string{envUsername: "bugs", envPassword: "carrot"}
	p := stubPrompt(env, false)

	got, err := p.Credentials(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, repo.Credentials{Username: "bugs", Password: "carrot"}, got)

	// 环境变量已被拒绝且不在终端中
	_, err = p.Credentials(ctx, &got)
	assert.ErrorIs(t, err, errNoCredentials)

	_, err = stubPrompt(nil, false).Credentials(ctx, nil)
	assert.ErrorIs(t, err, errNoCredentials)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.Credentials(cancelled, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPromptCredentials_Terminal(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	_, err = w.WriteString(" daffy \n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	p := stubPrompt(nil, true)
	p.in = r

	got, err := p.Credentials(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, repo.Credentials{Username: "daffy", Password: "s3cret"}, got)
}
