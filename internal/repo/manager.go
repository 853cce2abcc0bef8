package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/frib-high-level-controls/save-set-restore/internal/cache"
	"github.com/frib-high-level-controls/save-set-restore/internal/data"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

const (
	remoteName = "origin"

	defaultIdentityName   = "unknown"
	defaultIdentityEmail  = "saverestore@localhost"
	defaultCommitterName  = "save-restore"
	defaultCommitterEmail = "saverestore@localhost"
	defaultBackoff        = 2 * time.Second
	initialCommitMessage  = "Initial commit"
)

// BeamlineSetCodec 把 beamline set 内容与文件文本互相转换。
type BeamlineSetCodec interface {
	Encode(d data.BeamlineSetData) (string, error)
	Decode(text string, descriptor data.BeamlineSet) (data.BeamlineSetData, error)
}

// SnapshotCodec 把快照通道值与文件文本互相转换。
type SnapshotCodec interface {
	Encode(v data.VSnapshot) (string, error)
	Decode(text string, descriptor data.BeamlineSet) (data.VSnapshot, error)
}

// Credentials are the username and password presented to a remote.
type Credentials struct {
	Username string
	Password string
}

// CredentialProvider 在远程要求认证时提供凭据。
// previous 是上一次失败的凭据，首次询问时为 nil。
type CredentialProvider interface {
	Credentials(ctx context.Context, previous *Credentials) (Credentials, error)
}

// Identity is a git signature name and e-mail.
type Identity struct {
	Name  string
	Email string
}

// Options 配置一个 Manager。
type Options struct {
	// Path is the working copy location; ~ is expanded.
	Path string
	// Remote is an optional clone source and fetch/push target.
	Remote        string
	DefaultBranch string
	// AutoPush pushes the affected branch after every successful mutation.
	AutoPush bool
	// Identity 是没有 owner 的快照使用的作者，Email 也用作所有快照作者的邮箱。
	Identity  Identity
	Committer Identity
	// Backoff is the pause before the single transport retry.
	Backoff   time.Duration
	CacheSize int
	// DataProvider is recorded on descriptors produced by listings.
	DataProvider string

	BeamlineSetCodec BeamlineSetCodec
	SnapshotCodec    SnapshotCodec
	Credentials      CredentialProvider
	Logger           *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.DefaultBranch == "" {
		o.DefaultBranch = data.DefaultBranchName
	}
	if o.Identity.Name == "" {
		o.Identity.Name = defaultIdentityName
	}
	if o.Identity.Email == "" {
		o.Identity.Email = defaultIdentityEmail
	}
	if o.Committer.Name == "" {
		o.Committer.Name = defaultCommitterName
	}
	if o.Committer.Email == "" {
		o.Committer.Email = defaultCommitterEmail
	}
	if o.Backoff <= 0 {
		o.Backoff = defaultBackoff
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Manager 管理一个工作副本。读操作直接读取提交对象，不依赖检出状态；
// 所有写操作在同一把按仓库路径注册的锁下串行执行。
type Manager struct {
	opts    Options
	root    string
	repo    *git.Repository
	log     *zap.Logger
	records *cache.Commits[*commitRecord]
	mu      *sync.Mutex

	// creds are the last credentials accepted by the remote.
	creds *Credentials
}

var (
	locksMu sync.Mutex
	locks   = make(map[string]*sync.Mutex)
)

// repoLock returns the write lock shared by every Manager of the working copy at root.
func repoLock(root string) *sync.Mutex {
	locksMu.Lock()
	defer locksMu.Unlock()
	l, ok := locks[root]
	if !ok {
		l = &sync.Mutex{}
		locks[root] = l
	}
	return l
}

// Open 打开 opts.Path 处的工作副本。
// 不存在时：配置了 Remote 则克隆，否则初始化一个新仓库，
// 并在默认分支上创建一个空的初始提交。
func Open(ctx context.Context, opts Options) (*Manager, error) {
	opts = opts.withDefaults()
	if opts.BeamlineSetCodec == nil || opts.SnapshotCodec == nil {
		return nil, errors.New("open repository: codecs are required")
	}
	root, err := normalizePath(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	records, err := cache.New[*commitRecord](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	m := &Manager{
		opts:    opts,
		root:    root,
		log:     opts.Logger.With(zap.String("repository", root)),
		records: records,
		mu:      repoLock(root),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := git.PlainOpen(root)
	switch {
	case err == nil:
	case errors.Is(err, git.ErrRepositoryNotExists) && opts.Remote != "":
		r, err = m.clone(ctx)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, git.ErrRepositoryNotExists):
		r, err = initRepository(root, opts.DefaultBranch)
		if err != nil {
			return nil, fmt.Errorf("init repository %s: %w", root, err)
		}
		m.log.Info("initialised repository", zap.String("branch", opts.DefaultBranch))
	default:
		return nil, fmt.Errorf("open repository %s: %w", root, err)
	}
	m.repo = r

	if err := m.ensureInitialCommit(); err != nil {
		return nil, err
	}
	if err := m.ensureRemote(); err != nil {
		return nil, err
	}
	return m, nil
}

func initRepository(root, branch string) (*git.Repository, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return git.PlainInitWithOptions(root, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
	})
}

// ensureInitialCommit gives an empty repository its first commit so the
// default branch exists.
func (m *Manager) ensureInitialCommit() error {
	_, err := m.repo.Head()
	if err == nil {
		return nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	wt, err := m.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	sig := m.committer()
	hash, err := wt.Commit(initialCommitMessage, &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		return fmt.Errorf("create initial commit: %w", err)
	}
	m.log.Info("created initial commit", zap.String("commit", hash.String()))
	return nil
}

// ensureRemote registers opts.Remote as origin on working copies that lack it.
func (m *Manager) ensureRemote() error {
	if m.opts.Remote == "" {
		return nil
	}
	if _, err := m.repo.Remote(remoteName); err == nil {
		return nil
	} else if !errors.Is(err, git.ErrRemoteNotFound) {
		return fmt.Errorf("resolve remote: %w", err)
	}
	_, err := m.repo.CreateRemote(&config.RemoteConfig{
		Name: remoteName,
		URLs: []string{m.opts.Remote},
	})
	if err != nil {
		return fmt.Errorf("create remote: %w", err)
	}
	return nil
}

// Root returns the absolute working copy path.
func (m *Manager) Root() string {
	return m.root
}

// DefaultBranch 返回默认分支。
func (m *Manager) DefaultBranch() data.Branch {
	return data.NewBranch(m.opts.DefaultBranch)
}

// HasRemote reports whether a remote is configured.
func (m *Manager) HasRemote() bool {
	return m.opts.Remote != ""
}

func (m *Manager) committer() *object.Signature {
	return &object.Signature{
		Name:  m.opts.Committer.Name,
		Email: m.opts.Committer.Email,
		When:  time.Now(),
	}
}
