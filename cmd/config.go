package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kamranahmedse/podsup/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd.OutOrStdout())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting in ~/.podsup/config.yaml. A running podsup picks the
change up on its next start.

  podsup config set daemon_interval 2s
  podsup config set log_mode minimal`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setConfig(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s.\n", args[0], args[1])
		return nil
	},
}

func showConfig(out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	view := map[string]any{
		"listen_addr":      cfg.ListenAddr,
		"devpod_bin":       cfg.DevpodBinary,
		"devpod_home":      cfg.DevpodHome,
		"daemon_interval":  cfg.DaemonInterval.String(),
		"refresh_interval": cfg.RefreshInterval.String(),
		"log_mode":         cfg.EffectiveLogMode(),
		"debug":            cfg.Debug,
		"releases_path":    cfg.ReleasesPath,
	}
	data, err := yaml.Marshal(view)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# %s\n%s", config.Path(), data)
	return nil
}

func setConfig(key string, value string) error {
	return config.WithLock(func() error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return cfg.Save()
	})
}

func init() {
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
