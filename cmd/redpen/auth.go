package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/kryptograf/keymgmt"
	"pkt.systems/pslog"
	"pkt.systems/redpen/internal/appconfig"
	"pkt.systems/redpen/internal/authinfo"
	"pkt.systems/redpen/internal/credstore"
)

func newAuthCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the OpenAI API key",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	cmd.AddCommand(newAuthSetCmd(&cfgPath))
	cmd.AddCommand(newAuthShowCmd(&cfgPath))
	cmd.AddCommand(newAuthClearCmd(&cfgPath))

	return cmd
}

func newAuthSetCmd(cfgPath *string) *cobra.Command {
	var keyFromStdin bool
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the API key in the encrypted keystore",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveAPIKey(cmd, keyFromStdin)
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
			if err := source.SetAPIKey(key); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "api key stored in %s\n", cfg.Credentials.KeystorePath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&keyFromStdin, "key-from-stdin", false, "read API key from stdin")
	return cmd
}

func newAuthShowCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show where the API key resolves from",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "source: %s\n", cfg.Credentials.Source)

			envName := cfg.Credentials.EnvVar
			if envName == "" {
				envName = appconfig.DefaultAPIKeyEnvVar
			}
			_, _ = fmt.Fprintf(out, "env %s: %s\n", envName, keyStatus(strings.TrimSpace(os.Getenv(envName)), nil))

			key, err := authinfo.Lookup(cfg.Credentials.AuthinfoPath, cfg.Credentials.Machine, cfg.Credentials.Login)
			if errors.Is(err, authinfo.ErrNoEntry) || errors.Is(err, os.ErrNotExist) {
				key, err = "", nil
			}
			_, _ = fmt.Fprintf(out, "authinfo %s: %s\n", cfg.Credentials.AuthinfoPath, keyStatus(key, err))

			logger := pslog.Ctx(cmd.Context())
			store, err := credstore.NewStoreWithLogger(cfg.Credentials.KeystorePath, cfg.Credentials.KeyDir, logger)
			if err != nil {
				return err
			}
			key, err = store.APIKey()
			if errors.Is(err, os.ErrNotExist) {
				key, err = "", nil
			}
			_, _ = fmt.Fprintf(out, "keystore %s: %s\n", cfg.Credentials.KeystorePath, keyStatus(key, err))
			return nil
		},
	}
}

func newAuthClearCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the API key from the keystore",
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
			if err := source.RemoveAPIKey(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "api key removed from keystore")
			return nil
		},
	}
}

func resolveAPIKey(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		key := strings.TrimSpace(string(data))
		if key == "" {
			return "", errors.New("api key from stdin is empty")
		}
		return key, nil
	}
	passphrase, err := keymgmt.PromptPassphrase(cmd.InOrStdin(), "API key: ", cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	key := strings.TrimSpace(string(passphrase))
	if key == "" {
		return "", errors.New("api key is empty")
	}
	return key, nil
}

func keyStatus(key string, err error) string {
	switch {
	case err != nil:
		return fmt.Sprintf("error: %v", err)
	case key == "":
		return "not set"
	default:
		return maskKey(key)
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
