package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"
)

// ErrNoRemote indicates a transport operation on a working copy without a remote.
var ErrNoRemote = errors.New("no remote configured")

const fetchRefSpec = "+refs/heads/*:refs/remotes/" + remoteName + "/*"

// Fetch 从远程拉取所有分支到 refs/remotes/origin/*，不修改本地分支。
func (m *Manager) Fetch(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchLocked(ctx)
}

func (m *Manager) fetchLocked(ctx context.Context) error {
	if !m.HasRemote() {
		return ErrNoRemote
	}
	return m.withTransport(ctx, "fetch", func(auth transport.AuthMethod) error {
		return m.repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: remoteName,
			RefSpecs:   []config.RefSpec{fetchRefSpec},
			Auth:       auth,
			Force:      true,
		})
	})
}

// Push 把所有本地分支推送到远程同名分支。
func (m *Manager) Push(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.HasRemote() {
		return ErrNoRemote
	}
	return m.push(ctx, "refs/heads/*:refs/heads/*")
}

// autoPush pushes branch after a mutation when AutoPush is on. The local commit is kept on failure.
func (m *Manager) autoPush(ctx context.Context, branch data.Branch) error {
	if !m.opts.AutoPush || !m.HasRemote() {
		return nil
	}
	ref := plumbing.NewBranchReferenceName(branch.ShortName)
	if err := m.push(ctx, config.RefSpec(ref+":"+ref)); err != nil {
		return fmt.Errorf("committed locally: %w", err)
	}
	return nil
}

func (m *Manager) push(ctx context.Context, spec config.RefSpec) error {
	return m.withTransport(ctx, "push", func(auth transport.AuthMethod) error {
		return m.repo.PushContext(ctx, &git.PushOptions{
			RemoteName: remoteName,
			RefSpecs:   []config.RefSpec{spec},
			Auth:       auth,
		})
	})
}

// Reset 丢弃本地未发布的状态。有远程时先拉取，再把有远程对应分支的本地分支移动到远程最新提交；
// 最后把工作副本硬重置到 HEAD 并清理未跟踪文件。
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.HasRemote() {
		if err := m.fetchLocked(ctx); err != nil {
			return err
		}
		if err := m.moveBranchesToRemote(); err != nil {
			return err
		}
	}

	wt, err := m.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	head, err := m.repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: head.Hash(), Mode: git.HardReset}); err != nil {
		return fmt.Errorf("reset worktree: %w", err)
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return fmt.Errorf("clean worktree: %w", err)
	}
	m.log.Info("reset repository", zap.String("head", head.Hash().String()))
	return nil
}

func (m *Manager) moveBranchesToRemote() error {
	iter, err := m.repo.Branches()
	if err != nil {
		return fmt.Errorf("list branches: %w", err)
	}
	defer iter.Close()

	return iter.ForEach(func(ref *plumbing.Reference) error {
		remote, err := m.repo.Reference(plumbing.NewRemoteReferenceName(remoteName, ref.Name().Short()), true)
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if remote.Hash() == ref.Hash() {
			return nil
		}
		if err := m.repo.Storer.SetReference(plumbing.NewHashReference(ref.Name(), remote.Hash())); err != nil {
			return fmt.Errorf("move %s: %w", ref.Name().Short(), err)
		}
		m.log.Info("moved branch to remote tip",
			zap.String("branch", ref.Name().Short()),
			zap.String("commit", remote.Hash().String()))
		return nil
	})
}

// clone 把远程克隆到工作副本路径。
func (m *Manager) clone(ctx context.Context) (*git.Repository, error) {
	var (
		r     *git.Repository
		empty bool
	)
	err := m.withTransport(ctx, "clone", func(auth transport.AuthMethod) error {
		var err error
		r, err = git.PlainCloneContext(ctx, m.root, false, &git.CloneOptions{
			URL:  m.opts.Remote,
			Auth: auth,
		})
		if errors.Is(err, transport.ErrEmptyRemoteRepository) {
			empty = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if empty {
		// 空的远程仓库：本地初始化，首次推送时创建远程分支
		m.log.Info("remote is empty, initialising locally", zap.String("remote", m.opts.Remote))
		r, err = initRepository(m.root, m.opts.DefaultBranch)
		if err != nil {
			return nil, fmt.Errorf("init repository %s: %w", m.root, err)
		}
		return r, nil
	}
	m.log.Info("cloned repository", zap.String("remote", m.opts.Remote))
	return r, nil
}

// withTransport 执行一次远程操作，失败后最多重试一次。
// 认证失败时向 CredentialProvider 询问新凭据（传入上次失败的凭据），其他失败等待 Backoff 后重试。
// 最终失败包装为 ErrTransport。
func (m *Manager) withTransport(ctx context.Context, op string, fn func(transport.AuthMethod) error) error {
	err := fn(m.auth())
	if done(err) {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if isAuthError(err) {
		if m.opts.Credentials == nil {
			return fmt.Errorf("%s: %w: %v", op, ErrTransport, err)
		}
		creds, perr := m.opts.Credentials.Credentials(ctx, m.creds)
		if perr != nil {
			return fmt.Errorf("%s: %w: credentials: %v", op, ErrTransport, perr)
		}
		m.creds = &creds
	} else {
		m.log.Warn("transport failed, retrying",
			zap.String("op", op),
			zap.Duration("backoff", m.opts.Backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.opts.Backoff):
		}
	}

	err = fn(m.auth())
	if done(err) {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", op, ErrTransport, err)
}

func (m *Manager) auth() transport.AuthMethod {
	if m.creds == nil {
		return nil
	}
	return &http.BasicAuth{Username: m.creds.Username, Password: m.creds.Password}
}

func done(err error) bool {
	return err == nil || errors.Is(err, git.NoErrAlreadyUpToDate)
}

func isAuthError(err error) bool {
	return errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed)
}
