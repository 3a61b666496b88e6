package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/llm"
	"github.com/quillflow/quillflow/engine/prompt"
	"github.com/quillflow/quillflow/engine/schema"
	"github.com/quillflow/quillflow/engine/tool"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type fakeStore struct {
	mu        sync.Mutex
	workflows map[core.ID]*Config
	tools     map[core.ID]tool.Definition
	templates map[core.ID]*prompt.Config
	persisted []RunResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		workflows: make(map[core.ID]*Config),
		tools:     make(map[core.ID]tool.Definition),
		templates: make(map[core.ID]*prompt.Config),
	}
}

func (s *fakeStore) LoadWorkflow(_ context.Context, id core.ID) (*Config, error) {
	if cfg, ok := s.workflows[id]; ok {
		return cfg, nil
	}
	return nil, core.Errorf(core.CodeInvalidWorkflow, "workflow %s not found", id)
}

func (s *fakeStore) GetTool(_ context.Context, id core.ID) (tool.Definition, error) {
	if def, ok := s.tools[id]; ok {
		return def, nil
	}
	return nil, core.Errorf(core.CodeToolNotFound, "tool %s not found", id)
}

func (s *fakeStore) GetPromptTemplate(_ context.Context, id core.ID) (*prompt.Config, error) {
	if tpl, ok := s.templates[id]; ok {
		return tpl, nil
	}
	return nil, core.Errorf(core.CodeTemplateNotFound, "template %s not found", id)
}

func (s *fakeStore) PersistRunResult(_ context.Context, result *RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = append(s.persisted, *result)
	return nil
}

type noFiles struct{}

func (noFiles) GetFile(_ context.Context, id core.ID) (*prompt.File, error) {
	return nil, core.Errorf(core.CodeFileNotFound, "file %s not found", id)
}

func (noFiles) GetFileImages(context.Context, core.ID) ([]prompt.Image, error) {
	return nil, nil
}

type scriptedLLM struct {
	reply string
	calls int
	last  []llms.MessageContent
}

func (s *scriptedLLM) GenerateText(_ context.Context, msgs []llms.MessageContent, _ *llm.Options) (string, error) {
	s.calls++
	s.last = msgs
	return s.reply, nil
}

func newHarness() (*fakeStore, *Orchestrator) {
	store := newFakeStore()
	return store, NewOrchestrator(store, NewExecutor(store, 0))
}

// addLLMTool registers an LLM tool plus its template and returns the tool ID.
func (s *fakeStore) addLLMTool(tpl *prompt.Config, client llm.Client) core.ID {
	tpl.ID = core.MustNewID()
	s.templates[tpl.ID] = tpl
	cfg := &tool.Config{
		ID:               core.MustNewID(),
		Name:             "ask",
		Type:             tool.TypeLLM,
		PromptTemplateID: tpl.ID,
	}
	s.tools[cfg.ID] = tool.NewLLMTool(cfg, s, prompt.NewCompiler(noFiles{}), client)
	return cfg.ID
}

func (s *fakeStore) addWorkflow(cfg *Config) core.ID {
	cfg.ID = core.MustNewID()
	s.workflows[cfg.ID] = cfg
	return cfg.ID
}

// -----------------------------------------------------------------------------
// Runs
// -----------------------------------------------------------------------------

func TestOrchestrator_Execute(t *testing.T) {
	t.Run("Should pass inputs through an INPUT step into outputs", func(t *testing.T) {
		store, orch := newHarness()
		id := store.addWorkflow(&Config{
			Variables: []Variable{
				{Name: "echo", IOType: IOInput},
				{Name: "greeting", IOType: IOOutput},
			},
			Steps: []Step{{
				ID:             core.MustNewID(),
				SequenceNumber: 0,
				Type:           StepInput,
				OutputMappings: map[string]string{"echo": "greeting"},
			}},
		})
		result, err := orch.Execute(context.Background(), id, core.Input{"echo": "hi"})
		require.NoError(t, err)
		assert.Equal(t, core.StatusCompleted, result.Status)
		assert.Equal(t, "hi", result.Output["greeting"])
	})

	t.Run("Should run an LLM action end to end", func(t *testing.T) {
		store, orch := newHarness()
		client := &scriptedLLM{reply: "4"}
		toolID := store.addLLMTool(&prompt.Config{
			Name:         "math",
			UserTemplate: "Q: {{q}}",
			Tokens:       []prompt.Token{{Name: "q", Type: prompt.TokenString}},
			OutputSchema: &schema.ValueSchema{Type: schema.TypeString},
		}, client)
		id := store.addWorkflow(&Config{
			Variables: []Variable{
				{Name: "question", IOType: IOInput},
				{Name: "answer", IOType: IOOutput},
			},
			Steps: []Step{{
				ID:                core.MustNewID(),
				SequenceNumber:    0,
				Type:              StepAction,
				ToolID:            toolID,
				ParameterMappings: map[string]string{"q": "input.question"},
				OutputMappings:    map[string]string{"response": "answer"},
			}},
		})
		result, err := orch.Execute(context.Background(), id, core.Input{"question": "2+2?"})
		require.NoError(t, err)
		assert.Equal(t, core.StatusCompleted, result.Status)
		assert.Equal(t, "4", result.Output["answer"])

		require.Len(t, client.last, 1)
		text := client.last[0].Parts[0].(llms.TextContent).Text
		assert.Equal(t, "Q: 2+2?", text)
	})

	t.Run("Should bound self-jumps and then end", func(t *testing.T) {
		store, orch := newHarness()
		evalID := core.MustNewID()
		visits := 0
		countCfg := &tool.Config{
			ID: core.MustNewID(), Name: "count", Type: tool.TypeUtility, Handler: "count",
		}
		store.tools[countCfg.ID] = tool.NewStaticTool(countCfg,
			func(context.Context, core.Input) (core.Output, error) {
				visits++
				return core.Output{}, nil
			})
		id := store.addWorkflow(&Config{
			Variables: []Variable{{Name: "score", IOType: IOInput}},
			Steps: []Step{
				{ID: countCfg.ID, SequenceNumber: 0, Type: StepAction, ToolID: countCfg.ID},
				{
					ID:             evalID,
					SequenceNumber: 1,
					Type:           StepEvaluation,
					Evaluation: &EvaluationConfig{
						Conditions: []Condition{{
							ID:              core.MustNewID(),
							Variable:        "score",
							Operator:        OpGreaterThan,
							Value:           50.0,
							TargetStepIndex: intPtr(0),
						}},
						DefaultAction: DefaultEnd,
						MaximumJumps:  intPtr(2),
					},
				},
			},
		})
		result, err := orch.Execute(context.Background(), id, core.Input{"score": 90.0})
		require.NoError(t, err)
		assert.Equal(t, core.StatusCompleted, result.Status)
		// Initial pass plus two honored jumps.
		assert.Equal(t, 3, visits)
	})

	t.Run("Should fail the run when an object response is not JSON", func(t *testing.T) {
		store, orch := newHarness()
		toolID := store.addLLMTool(&prompt.Config{
			Name:         "grade",
			UserTemplate: "{{q}}",
			Tokens:       []prompt.Token{{Name: "q", Type: prompt.TokenString}},
			OutputSchema: &schema.ValueSchema{Type: schema.TypeObject},
		}, &scriptedLLM{reply: "oops"})
		id := store.addWorkflow(&Config{
			Variables: []Variable{{Name: "question", IOType: IOInput}},
			Steps: []Step{{
				ID:                core.MustNewID(),
				SequenceNumber:    0,
				Type:              StepAction,
				ToolID:            toolID,
				ParameterMappings: map[string]string{"q": "input.question"},
			}},
		})
		result, err := orch.Execute(context.Background(), id, core.Input{"question": "rate"})
		require.Error(t, err)
		assert.True(t, core.IsCode(err, core.CodeInvalidLLMResponse))
		assert.Equal(t, core.StatusFailed, result.Status)
		assert.Equal(t, "oops", result.Error.Details["raw_response"])
	})

	t.Run("Should fail before any LLM call on a missing file token", func(t *testing.T) {
		store, orch := newHarness()
		client := &scriptedLLM{reply: "never"}
		toolID := store.addLLMTool(&prompt.Config{
			Name:         "summarize",
			UserTemplate: "Summarize {{doc}}",
			Tokens:       []prompt.Token{{Name: "doc", Type: prompt.TokenFile}},
		}, client)
		id := store.addWorkflow(&Config{
			Steps: []Step{{
				ID:                core.MustNewID(),
				SequenceNumber:    0,
				Type:              StepAction,
				ToolID:            toolID,
				ParameterMappings: map[string]string{},
			}},
		})
		result, err := orch.Execute(context.Background(), id, core.Input{})
		require.Error(t, err)
		assert.True(t, core.IsCode(err, core.CodeMissingToken))
		assert.Equal(t, core.StatusFailed, result.Status)
		assert.Zero(t, client.calls)
	})

	t.Run("Should reject runs missing a declared input", func(t *testing.T) {
		store, orch := newHarness()
		id := store.addWorkflow(&Config{
			Variables: []Variable{{Name: "question", IOType: IOInput}},
			Steps:     []Step{{ID: core.MustNewID(), SequenceNumber: 0, Type: StepInput}},
		})
		result, err := orch.Execute(context.Background(), id, core.Input{})
		require.Error(t, err)
		assert.True(t, core.IsCode(err, core.CodeVariableValidation))
		assert.Equal(t, core.StatusFailed, result.Status)
	})

	t.Run("Should reject inputs violating a declared schema", func(t *testing.T) {
		store, orch := newHarness()
		id := store.addWorkflow(&Config{
			Variables: []Variable{{
				Name: "score", IOType: IOInput,
				Schema: &schema.ValueSchema{Type: schema.TypeNumber},
			}},
			Steps: []Step{{ID: core.MustNewID(), SequenceNumber: 0, Type: StepInput}},
		})
		_, err := orch.Execute(context.Background(), id, core.Input{"score": "not a number"})
		assert.True(t, core.IsCode(err, core.CodeVariableValidation))
	})

	t.Run("Should reject gapped sequence numbers before running anything", func(t *testing.T) {
		store, orch := newHarness()
		id := store.addWorkflow(&Config{
			Steps: []Step{
				{ID: core.MustNewID(), SequenceNumber: 0, Type: StepInput},
				{ID: core.MustNewID(), SequenceNumber: 2, Type: StepInput},
			},
		})
		result, err := orch.Execute(context.Background(), id, core.Input{})
		require.Error(t, err)
		assert.True(t, core.IsCode(err, core.CodeInvalidWorkflow))
		assert.Equal(t, core.StatusFailed, result.Status)
		// Validation failures never transition the run through running.
		for _, persisted := range store.persisted {
			assert.NotEqual(t, core.StatusRunning, persisted.Status)
		}
	})

	t.Run("Should stop at the failing step without masking the error", func(t *testing.T) {
		store, orch := newHarness()
		boom := errors.New("handler exploded")
		failCfg := &tool.Config{ID: core.MustNewID(), Name: "bomb", Type: tool.TypeUtility, Handler: "bomb"}
		store.tools[failCfg.ID] = tool.NewStaticTool(failCfg,
			func(context.Context, core.Input) (core.Output, error) { return nil, boom })
		reached := false
		afterCfg := &tool.Config{ID: core.MustNewID(), Name: "after", Type: tool.TypeUtility, Handler: "after"}
		store.tools[afterCfg.ID] = tool.NewStaticTool(afterCfg,
			func(context.Context, core.Input) (core.Output, error) {
				reached = true
				return core.Output{}, nil
			})
		id := store.addWorkflow(&Config{
			Steps: []Step{
				{ID: failCfg.ID, SequenceNumber: 0, Type: StepAction, ToolID: failCfg.ID},
				{ID: afterCfg.ID, SequenceNumber: 1, Type: StepAction, ToolID: afterCfg.ID},
			},
		})
		result, err := orch.Execute(context.Background(), id, core.Input{})
		require.Error(t, err)
		assert.ErrorContains(t, err, "handler exploded")
		assert.Equal(t, core.StatusFailed, result.Status)
		assert.Contains(t, result.Error.Message, "handler exploded")
		assert.False(t, reached)
	})

	t.Run("Should honor cancellation at step boundaries", func(t *testing.T) {
		store, orch := newHarness()
		ctx, cancel := context.WithCancel(context.Background())
		cancelCfg := &tool.Config{ID: core.MustNewID(), Name: "trip", Type: tool.TypeUtility, Handler: "trip"}
		store.tools[cancelCfg.ID] = tool.NewStaticTool(cancelCfg,
			func(context.Context, core.Input) (core.Output, error) {
				cancel()
				return core.Output{}, nil
			})
		id := store.addWorkflow(&Config{
			Steps: []Step{
				{ID: cancelCfg.ID, SequenceNumber: 0, Type: StepAction, ToolID: cancelCfg.ID},
				{ID: core.MustNewID(), SequenceNumber: 1, Type: StepInput},
			},
		})
		result, err := orch.Execute(ctx, id, core.Input{})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, core.StatusFailed, result.Status)
		// The terminal status is still persisted despite the cancelled context.
		last := store.persisted[len(store.persisted)-1]
		assert.Equal(t, core.StatusFailed, last.Status)
	})

	t.Run("Should record running before the first step", func(t *testing.T) {
		store, orch := newHarness()
		id := store.addWorkflow(&Config{
			Steps: []Step{{ID: core.MustNewID(), SequenceNumber: 0, Type: StepInput}},
		})
		_, err := orch.Execute(context.Background(), id, core.Input{})
		require.NoError(t, err)
		require.Len(t, store.persisted, 2)
		assert.Equal(t, core.StatusRunning, store.persisted[0].Status)
		assert.Equal(t, core.StatusCompleted, store.persisted[1].Status)
	})
}
