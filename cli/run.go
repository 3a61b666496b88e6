package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/infra/store"
	"github.com/quillflow/quillflow/engine/llm"
	"github.com/quillflow/quillflow/engine/prompt"
	"github.com/quillflow/quillflow/engine/tool"
	"github.com/quillflow/quillflow/engine/tool/builtin"
	"github.com/quillflow/quillflow/engine/workflow"
)

func RunCmd(flags *rootFlags) *cobra.Command {
	var (
		bundlePath string
		workflowID string
		inputs     []string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one workflow from a YAML bundle and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, ctx, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			bundle, err := workflow.LoadBundle(bundlePath)
			if err != nil {
				return err
			}
			input, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			client, err := llm.NewClient(&cfg.LLM)
			if err != nil {
				return err
			}
			registry := builtin.NewRegistry(nil, cfg.Tools.PubMedAPIKey)
			mem := store.NewMemory()
			mem.SeedBuiltins(registry.Definitions())
			factory := tool.NewFactory(mem, prompt.NewCompiler(mem), client, registry.Invoker)
			if err := mem.SeedBundle(bundle, factory); err != nil {
				return err
			}

			id, err := pickWorkflow(bundle, workflowID)
			if err != nil {
				return err
			}
			orch := workflow.NewOrchestrator(mem,
				workflow.NewExecutor(mem, cfg.Server.StepTimeout))
			result, runErr := orch.Execute(ctx, id, input)
			if result != nil {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(result); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&bundlePath, "file", "", "YAML bundle holding the workflow definitions")
	cmd.Flags().StringVar(&workflowID, "workflow", "", "workflow ID to run (default: first in the bundle)")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "run input as name=value (repeatable)")
	cmd.MarkFlagRequired("file")
	return cmd
}

func pickWorkflow(bundle *workflow.Bundle, id string) (core.ID, error) {
	if id != "" {
		return core.ID(id), nil
	}
	if len(bundle.Workflows) == 0 {
		return "", fmt.Errorf("bundle contains no workflows")
	}
	return bundle.Workflows[0].ID, nil
}

// parseInputs turns repeated name=value flags into the run input map. Values
// that parse as JSON are taken structurally, everything else is a string.
func parseInputs(pairs []string) (core.Input, error) {
	input := core.Input{}
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid input %q, want name=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		input[name] = value
	}
	return input, nil
}
