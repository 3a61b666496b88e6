package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillflow/quillflow/pkg/config"
	"github.com/quillflow/quillflow/pkg/logger"
)

type rootFlags struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func RootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "quillflow",
		Short:         "Workflow execution engine for LLM pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "emit logs as JSON")

	root.AddCommand(
		ServeCmd(flags),
		RunCmd(flags),
	)
	return root
}

// setup loads configuration and installs the logger on the command context.
func (f *rootFlags) setup(cmd *cobra.Command) (*config.Config, context.Context, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logJSON {
		cfg.Log.JSON = true
	}
	log := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.Log.Level),
		JSON:   cfg.Log.JSON,
		Output: os.Stderr,
	})
	logger.SetDefault(log)
	return cfg, logger.ContextWithLogger(cmd.Context(), log), nil
}
