package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pkt.systems/pslog"
	"pkt.systems/redpen/internal/appconfig"
	"pkt.systems/redpen/internal/seed"
)

func newConfigCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the redpen configuration",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	cmd.AddCommand(newConfigInitCmd(&cfgPath))
	cmd.AddCommand(newConfigShowCmd(&cfgPath))

	return cmd
}

func newConfigInitCmd(cfgPath *string) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config and starter prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			written, err := appconfig.WriteDefault(*cfgPath, overwrite)
			if err != nil {
				return err
			}
			logger.Info("config init wrote", "path", written, "name", "config.yaml")
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.Prompts.Path); err == nil && !overwrite {
				logger.Info("prompts already present", "path", cfg.Prompts.Path)
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(cfg.Prompts.Path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(cfg.Prompts.Path, seed.Raw(), 0o600); err != nil {
				return err
			}
			logger.Info("config init wrote", "path", cfg.Prompts.Path, "name", "prompts.json")
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite existing files")
	return cmd
}

func newConfigShowCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
