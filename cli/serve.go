package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/quillflow/quillflow/engine/infra/server"
	"github.com/quillflow/quillflow/engine/infra/store"
	"github.com/quillflow/quillflow/engine/llm"
	"github.com/quillflow/quillflow/engine/prompt"
	"github.com/quillflow/quillflow/engine/tool"
	"github.com/quillflow/quillflow/engine/tool/builtin"
	"github.com/quillflow/quillflow/engine/workflow"
	"github.com/quillflow/quillflow/pkg/config"
	"github.com/quillflow/quillflow/pkg/logger"
)

func ServeCmd(flags *rootFlags) *cobra.Command {
	var bundlePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the workflow execution HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, ctx, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, bundlePath)
		},
	}
	cmd.Flags().StringVar(&bundlePath, "bundle", "", "YAML bundle of definitions to load at startup")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, bundlePath string) error {
	log := logger.FromContext(ctx)

	client, err := llm.NewClient(&cfg.LLM)
	if err != nil {
		return err
	}
	registry := builtin.NewRegistry(resty.New(), cfg.Tools.PubMedAPIKey)

	var runStore server.RunReader
	if cfg.Database.DSN != "" {
		pg, err := store.NewPostgres(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer pg.Close()
		compiler := prompt.NewCompiler(pg)
		factory := tool.NewFactory(pg, compiler, client, registry.Invoker)
		pg.SetFactory(factory)
		if err := seedPostgres(ctx, pg, registry, bundlePath); err != nil {
			return err
		}
		runStore = pg
	} else {
		log.Warn("no database configured, definitions and runs are in-memory only")
		mem := store.NewMemory()
		compiler := prompt.NewCompiler(mem)
		factory := tool.NewFactory(mem, compiler, client, registry.Invoker)
		mem.SeedBuiltins(registry.Definitions())
		if bundlePath != "" {
			bundle, err := workflow.LoadBundle(bundlePath)
			if err != nil {
				return err
			}
			if err := mem.SeedBundle(bundle, factory); err != nil {
				return err
			}
		}
		runStore = mem
	}

	orch := workflow.NewOrchestrator(runStore,
		workflow.NewExecutor(runStore, cfg.Server.StepTimeout))
	return server.New(cfg.Server.Addr, runStore, orch).Run(ctx)
}

func seedPostgres(ctx context.Context, pg *store.Postgres, registry *builtin.Registry, bundlePath string) error {
	for _, toolCfg := range registry.Configs() {
		if err := pg.PutToolConfig(ctx, toolCfg); err != nil {
			return fmt.Errorf("seeding builtin %q: %w", toolCfg.Name, err)
		}
	}
	if bundlePath == "" {
		return nil
	}
	bundle, err := workflow.LoadBundle(bundlePath)
	if err != nil {
		return err
	}
	for _, tpl := range bundle.Templates {
		if err := pg.PutPromptTemplate(ctx, tpl); err != nil {
			return err
		}
	}
	for _, toolCfg := range bundle.Tools {
		if err := pg.PutToolConfig(ctx, toolCfg); err != nil {
			return err
		}
	}
	for _, wf := range bundle.Workflows {
		if err := pg.PutWorkflow(ctx, wf); err != nil {
			return err
		}
	}
	return nil
}
