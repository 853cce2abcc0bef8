package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/frib-high-level-controls/save-set-restore/internal/config"
	"github.com/frib-high-level-controls/save-set-restore/internal/data"
	"github.com/frib-high-level-controls/save-set-restore/internal/fileformat"
	"github.com/frib-high-level-controls/save-set-restore/internal/logging"
	"github.com/frib-high-level-controls/save-set-restore/internal/repo"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// dataProvider 记录在 ssr 列出的描述符上。
const dataProvider = "git"

var errBaseRequired = errors.New("--base is required")

// loadConfig 读取配置文件并应用根标志的覆盖。
func (g *globalOptions) loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if g.configFile != "" {
		cfg, err = config.LoadFrom(g.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, err
	}

	if p := strings.TrimSpace(g.repoPath); p != "" {
		cfg.Repository.Path = p
	}
	if r := strings.TrimSpace(g.remote); r != "" {
		cfg.Repository.Remote = r
	}
	if l := strings.TrimSpace(g.logLevel); l != "" {
		cfg.Log.Level = l
	}
	return cfg, nil
}

// configPath 返回实际使用的配置文件路径。
func (g *globalOptions) configPath() (string, error) {
	if g.configFile != "" {
		return g.configFile, nil
	}
	return config.File()
}

// newLogger 按配置构建日志器。
func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(logging.Level(cfg.Log.Level), logging.Format(cfg.Log.Format))
}

// managerOptions 把配置翻译成 repo.Options，使用默认的文件编码。
func managerOptions(cfg config.Config, logger *zap.Logger) repo.Options {
	return repo.Options{
		Path:          cfg.Repository.Path,
		Remote:        cfg.Repository.Remote,
		DefaultBranch: cfg.Repository.DefaultBranch,
		AutoPush:      cfg.Repository.AutoPush,
		Identity:      repo.Identity{Name: cfg.Identity.Name, Email: cfg.Identity.Email},
		Committer:     repo.Identity{Name: cfg.Committer.Name, Email: cfg.Committer.Email},
		Backoff:       cfg.Transport.Backoff,
		CacheSize:     cfg.Cache.Size,
		DataProvider:  dataProvider,

		BeamlineSetCodec: fileformat.BeamlineSetCodec{},
		SnapshotCodec:    fileformat.SnapshotCodec{},
		Credentials:      newPromptCredentials(),
		Logger:           logger,
	}
}

// openManager 是所有访问仓库的子命令的公共初始化：加载配置、构建日志器、打开工作副本。
func (g *globalOptions) openManager(cmd *cobra.Command) (*repo.Manager, config.Config, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}
	if issues := config.ValidateConfig(&cfg); len(issues) > 0 {
		return nil, config.Config{}, fmt.Errorf("invalid config: %s", strings.Join(issues, "; "))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, config.Config{}, err
	}

	m, err := repo.Open(cmd.Context(), managerOptions(cfg, logger))
	if err != nil {
		return nil, config.Config{}, err
	}
	return m, cfg, nil
}

// branchOrDefault 返回 name 对应的分支，name 为空时使用工作副本的默认分支。
func branchOrDefault(m *repo.Manager, name string) data.Branch {
	name = strings.TrimSpace(name)
	if name == "" {
		return m.DefaultBranch()
	}
	return data.NewBranch(name)
}

// setRef 由 --branch、--base 与斜杠分隔的路径构造 beamline set 描述符。
func setRef(m *repo.Manager, branch, base, path string) (data.BeamlineSet, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return data.BeamlineSet{}, errBaseRequired
	}
	path = strings.Trim(strings.TrimSpace(path), data.PathSeparator)
	if path == "" {
		return data.BeamlineSet{}, fmt.Errorf("beamline set path is empty: %w", repo.ErrInvalidPath)
	}
	level := data.NewBaseLevel(branchOrDefault(m, branch), base)
	return data.NewBeamlineSet(level, strings.Split(path, data.PathSeparator), dataProvider).Normalized(), nil
}

// addSetFlags 注册定位 beamline set 所需的 --branch 与 --base。
func addSetFlags(cmd *cobra.Command, branch, base *string) {
	cmd.Flags().StringVarP(branch, "branch", "b", "", "Branch (default: repository default branch)")
	cmd.Flags().StringVar(base, "base", "", "Base level")
}
