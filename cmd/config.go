package cmd

import (
	"fmt"
	"strconv"

	"github.com/frib-high-level-controls/save-set-restore/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCmd 构建 config 命令，用于查看或修改配置。
// 支持两种模式：
// 1. ssr config - 显示当前生效的配置（包括环境变量与根标志的覆盖）
// 2. ssr config set <key> <value> - 修改配置文件中的一个键
func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or modify configuration",
		Example: `  ssr config
  ssr config set repository.remote https://git.example.org/saverestore.git
  ssr config set transport.backoff 5s
  ssr config keys`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), g.format, cfg, configTable(cfg))
		},
	}
	cmd.AddCommand(newConfigSetCmd(g), newConfigKeysCmd())
	return cmd
}

func newConfigSetCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration key",
		Args:  validateConfigSetArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := g.configPath()
			if err != nil {
				return err
			}
			if _, err := config.SetValue(file, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	}
}

// validateConfigSetArgs 校验 config set 参数格式。
func validateConfigSetArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: ssr config set <key> <value>")
	}
	return nil
}

func newConfigKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List supported configuration keys",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, k := range config.Keys() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
		},
	}
}

// configTable 按键名排序列出配置。
func configTable(cfg config.Config) table {
	values := map[string]string{
		"repository.path":           cfg.Repository.Path,
		"repository.remote":         cfg.Repository.Remote,
		"repository.default_branch": cfg.Repository.DefaultBranch,
		"repository.auto_push":      strconv.FormatBool(cfg.Repository.AutoPush),
		"identity.name":             cfg.Identity.Name,
		"identity.email":            cfg.Identity.Email,
		"committer.name":            cfg.Committer.Name,
		"committer.email":           cfg.Committer.Email,
		"log.level":                 cfg.Log.Level,
		"log.format":                cfg.Log.Format,
		"cache.size":                strconv.Itoa(cfg.Cache.Size),
		"transport.backoff":         cfg.Transport.Backoff.String(),
	}
	t := table{header: []string{"KEY", "VALUE"}}
	for _, k := range config.Keys() {
		t.rows = append(t.rows, []string{k, values[k]})
	}
	return t
}
