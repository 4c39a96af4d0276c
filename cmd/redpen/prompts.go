package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/redpen/internal/appconfig"
	"pkt.systems/redpen/schema"
)

func newPromptsCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect the prompt catalog",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	cmd.AddCommand(newPromptsListCmd(&cfgPath))
	cmd.AddCommand(newPromptsShowCmd(&cfgPath))

	return cmd
}

func newPromptsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, prompts, err := loadPrompts(cmd, cfgPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(prompts) == 0 {
				_, _ = fmt.Fprintf(out, "no prompts at %s\n", cfg.Prompts.Path)
				return nil
			}
			for _, p := range prompts {
				_, _ = fmt.Fprintf(out, "%-24s %s\n", p.ID, p.Name)
			}
			return nil
		},
	}
}

func newPromptsShowCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <prompt>",
		Short: "Print one prompt's instruction text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, prompts, err := loadPrompts(cmd, cfgPath)
			if err != nil {
				return err
			}
			p, ok := prompts.Find(schema.PromptID(args[0]))
			if !ok {
				for _, cand := range prompts {
					if strings.EqualFold(cand.Name, args[0]) {
						p, ok = cand, true
						break
					}
				}
			}
			if !ok {
				return fmt.Errorf("prompt not found: %s", args[0])
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n\n%s\n", p.Name, p.ID, p.Text)
			return nil
		},
	}
}

func loadPrompts(cmd *cobra.Command, cfgPath *string) (appconfig.Config, schema.PromptList, error) {
	cfg, err := appconfig.Load(*cfgPath)
	if err != nil {
		return appconfig.Config{}, nil, err
	}
	logger := pslog.Ctx(cmd.Context())
	source, err := appconfig.NewSource(cfg, logger)
	if err != nil {
		return appconfig.Config{}, nil, err
	}
	prompts, err := source.LoadPrompts(cmd.Context())
	if err != nil {
		return appconfig.Config{}, nil, err
	}
	return cfg, schema.NormalizePromptList(prompts), nil
}
