package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"reelup/internal/config"
	"reelup/internal/services"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return services.Wrap(services.ErrValidation, "config", "init",
						fmt.Sprintf("config file already exists at %s (use --overwrite to replace it)", target), nil)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Download an OAuth client secrets file (Desktop app) into youtube.client_secrets_file, then run `reelup auth`.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := loadConfigForCommand(ctx)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			source := path
			if !exists {
				source += " (not found; defaults used)"
			}
			chunk := "whole file"
			if cfg.Upload.ChunkSizeBytes > 0 {
				chunk = humanize.IBytes(uint64(cfg.Upload.ChunkSizeBytes))
			}
			throttle := "unthrottled"
			if cfg.Upload.MaxBytesPerSecond > 0 {
				throttle = humanize.IBytes(uint64(cfg.Upload.MaxBytesPerSecond)) + "/s"
			}
			rows := [][]string{
				{"Config file", source},
				{"State directory", cfg.Paths.StateDir},
				{"Log directory", valueOrDash(cfg.Paths.LogDir)},
				{"Chunk size", chunk},
				{"Bandwidth", throttle},
				{"Max retries", fmt.Sprint(cfg.Upload.MaxRetries)},
				{"Parallel uploads", fmt.Sprint(cfg.Upload.Parallel)},
				{"Default privacy", cfg.Upload.DefaultPrivacy},
				{"Default language", valueOrDash(cfg.Upload.DefaultLanguage)},
				{"Media validation", yesNo(cfg.Media.Validate)},
				{"Notifications", yesNo(cfg.Notifications.NtfyTopic != "")},
				{"Metrics textfile", valueOrDash(cfg.Metrics.TextfilePath)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(titles(col("Setting"), col("Value")), rows))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration as TOML",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, _, err := loadConfigForCommand(ctx)
			if err != nil {
				return err
			}
			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# effective configuration (from %s)\n", path)
			_, err = out.Write(data)
			return err
		},
	}
}

// loadConfigForCommand loads the --config file without the root hook so
// commands can report load errors themselves.
func loadConfigForCommand(ctx *commandContext) (*config.Config, string, bool, error) {
	var flagPath string
	if ctx.configFlag != nil {
		flagPath = strings.TrimSpace(*ctx.configFlag)
	}
	cfg, path, exists, err := config.Load(flagPath)
	if err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "load", "", err)
	}
	return cfg, path, exists, nil
}
