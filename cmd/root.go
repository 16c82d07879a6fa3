package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/marte113/Player-On-Caption/internal/config"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

type commandContext struct {
	settingsFlag *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(settingsFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		settingsFlag: settingsFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(c.settingsPath())
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) settingsPath() string {
	if c.settingsFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.settingsFlag)
}

// initLogging sends log lines to stderr so stdout carries only captions and
// tables.
func (c *commandContext) initLogging(cmd *cobra.Command, cfg *config.Config) {
	level := "info"
	if cfg != nil {
		level = cfg.System.LogLevel
	}
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		level = *c.logLevelFlag
	}
	log.InitLogger(log.ParseLevel(level))
	log.GetLogger().SetOutput(cmd.ErrOrStderr())
}

func newRootCommand() *cobra.Command {
	var settingsFlag string
	var logLevelFlag string

	ctx := newCommandContext(&settingsFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "player-on-caption",
		Short:         "Translate lecture transcripts and show bilingual captions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				ctx.initLogging(cmd, nil)
				return nil
			}
			cfg, err := ctx.ensureConfig()
			ctx.initLogging(cmd, cfg)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&settingsFlag, "settings", "", "Settings file path (default: $DATA_DIR/settings.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newTranslateCommand(ctx))
	rootCmd.AddCommand(newLoadCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newSettingsCommand(ctx))

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
