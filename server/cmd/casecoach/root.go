package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"case-coach/server/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

// globalOptions 所有子命令共享的选项。
type globalOptions struct {
	configPath string
	envFile    string
	debug      bool
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "casecoach",
		Short: "Casecoach - mock consulting case interviews",
		Long: `Casecoach runs a consulting-style case interview: it generates a case,
walks the candidate through a fixed sequence of stages, evaluates every answer
against a rubric and compiles a final feedback report.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(opts.envFile)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "server/configs/config.yaml", "Path to the config file (empty for built-in defaults)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before the config")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// loadEnv 加载 .env；文件不存在不算错误，已有的环境变量不会被覆盖。
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// loadConfig 读取配置并按配置初始化默认 logger。
func loadConfig(opts *globalOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Logging.SlogLevel()
	if opts.debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
