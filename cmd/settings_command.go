package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marte113/Player-On-Caption/internal/config"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change provider keys and translation choices",
	}
	cmd.AddCommand(newSettingsShowCommand(ctx))
	cmd.AddCommand(newSettingsSetCommand(ctx))
	return cmd
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rows := [][]string{
				{"provider", cfg.Translate.Provider},
				{"target language", cfg.Translate.TargetLanguage.String()},
				{"stream", yesNo(cfg.Translate.Stream)},
				{"openai key", maskKey(cfg.OpenAI.APIKey)},
				{"openai model", cfg.OpenAI.Model},
				{"deepl key", maskKey(cfg.DeepL.APIKey)},
				{"data dir", cfg.System.DataDir},
				{"bridge address", cfg.HTTP.Addr},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows, nil))
			return nil
		},
	}
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var next config.Settings

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Persist settings to the settings file",
		Args:  cobra.NoArgs,
		// a broken settings file must stay fixable
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.settingsPath()
			if path == "" {
				path = config.SettingsFilePath(config.DataDirFromEnv())
			}
			current, err := config.LoadSettingsFile(path)
			if err != nil {
				log.Warn("replacing unreadable settings file: %v", err)
				current = config.Settings{}
			}
			merged := mergeSettings(current, next)
			if err := config.WriteSettingsFile(path, merged); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved settings to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&next.OpenAIAPIKey, "openai-key", "", "OpenAI API key")
	cmd.Flags().StringVar(&next.OpenAIModel, "openai-model", "", "OpenAI model for streaming translation")
	cmd.Flags().StringVar(&next.DeepLAPIKey, "deepl-key", "", "DeepL API key")
	cmd.Flags().StringVar(&next.Provider, "provider", "", "Default provider: openai or deepl")
	cmd.Flags().StringVar(&next.TargetLanguage, "target", "", "Target language, e.g. ko or ja")
	return cmd
}

func mergeSettings(current, next config.Settings) config.Settings {
	pick := func(cur, v string) string {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
		return cur
	}
	return config.Settings{
		OpenAIAPIKey:   pick(current.OpenAIAPIKey, next.OpenAIAPIKey),
		OpenAIModel:    pick(current.OpenAIModel, next.OpenAIModel),
		DeepLAPIKey:    pick(current.DeepLAPIKey, next.DeepLAPIKey),
		Provider:       pick(current.Provider, strings.ToLower(next.Provider)),
		TargetLanguage: pick(current.TargetLanguage, next.TargetLanguage),
	}
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 4) + key[len(key)-4:]
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
