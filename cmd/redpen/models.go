package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/redpen/internal/appconfig"
	"pkt.systems/redpen/internal/openai"
	"pkt.systems/redpen/schema"
)

func newModelsCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect and choose completion models",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	cmd.AddCommand(newModelsListCmd(&cfgPath))
	cmd.AddCommand(newModelsSetCmd(&cfgPath))

	return cmd
}

func newModelsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List models available to the configured API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger := pslog.Ctx(cmd.Context())
			source, err := appconfig.NewSource(cfg, logger)
			if err != nil {
				return err
			}
			apiKey, err := source.LoadAPIKey(cmd.Context())
			if err != nil {
				return err
			}
			client := openai.NewClient(cfg.OpenAI.BaseURL, cfg.ModelCacheTTL(), logger)
			defer client.Close()
			ids, err := client.ListModels(cmd.Context(), apiKey)
			if err != nil {
				return err
			}
			selected, err := source.LoadModel(cmd.Context())
			if err != nil {
				logger.Warn("model state load failed", "err", err)
			}
			if selected == "" {
				selected = schema.ModelID(cfg.Model.Default)
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				marker := "  "
				if id == selected {
					marker = "✓ "
				}
				_, _ = fmt.Fprintf(out, "%s%s\n", marker, id)
			}
			return nil
		},
	}
}

func newModelsSetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <model>",
		Short: "Persist the model selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := schema.NormalizeModelID(args[0])
			if err != nil {
				return err
			}
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger := pslog.Ctx(cmd.Context())
			source, err := appconfig.NewSource(cfg, logger)
			if err != nil {
				return err
			}
			if err := source.SaveModel(cmd.Context(), model); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "model set to: %s\n", model)
			return nil
		},
	}
}
