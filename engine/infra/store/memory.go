package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/prompt"
	"github.com/quillflow/quillflow/engine/tool"
	"github.com/quillflow/quillflow/engine/workflow"
)

// Memory is the in-process store: definitions, files, and run results held
// in mutex-guarded maps. It backs tests, the CLI's single-run mode, and any
// deployment that does not need durability.
type Memory struct {
	mu        sync.RWMutex
	workflows map[core.ID]*workflow.Config
	tools     map[core.ID]tool.Definition
	templates map[core.ID]*prompt.Config
	files     map[core.ID]*prompt.File
	images    map[core.ID][]prompt.Image
	runs      map[core.ID]*workflow.RunResult
}

func NewMemory() *Memory {
	return &Memory{
		workflows: make(map[core.ID]*workflow.Config),
		tools:     make(map[core.ID]tool.Definition),
		templates: make(map[core.ID]*prompt.Config),
		files:     make(map[core.ID]*prompt.File),
		images:    make(map[core.ID][]prompt.Image),
		runs:      make(map[core.ID]*workflow.RunResult),
	}
}

// -----------------------------------------------------------------------------
// workflow.Store
// -----------------------------------------------------------------------------

func (m *Memory) LoadWorkflow(_ context.Context, id core.ID) (*workflow.Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.workflows[id]
	if !ok {
		return nil, core.Errorf(core.CodeInvalidWorkflow, "workflow %s not found", id)
	}
	return cfg, nil
}

func (m *Memory) GetTool(_ context.Context, id core.ID) (tool.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.tools[id]
	if !ok {
		return nil, core.Errorf(core.CodeToolNotFound, "tool %s not found", id)
	}
	return def, nil
}

func (m *Memory) GetPromptTemplate(_ context.Context, id core.ID) (*prompt.Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tpl, ok := m.templates[id]
	if !ok {
		return nil, core.Errorf(core.CodeTemplateNotFound, "template %s not found", id)
	}
	return tpl, nil
}

func (m *Memory) PersistRunResult(_ context.Context, result *workflow.RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := *result
	m.runs[result.RunID] = &snapshot
	return nil
}

// GetRunResult returns the latest persisted state of a run.
func (m *Memory) GetRunResult(_ context.Context, id core.ID) (*workflow.RunResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, nil
}

// -----------------------------------------------------------------------------
// prompt.FileSource
// -----------------------------------------------------------------------------

func (m *Memory) GetFile(_ context.Context, id core.ID) (*prompt.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	file, ok := m.files[id]
	if !ok {
		return nil, core.Errorf(core.CodeFileNotFound, "file %s not found", id)
	}
	return file, nil
}

func (m *Memory) GetFileImages(_ context.Context, id core.ID) ([]prompt.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.images[id], nil
}

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

func (m *Memory) PutWorkflow(cfg *workflow.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[cfg.ID] = cfg
}

func (m *Memory) PutTool(def tool.Definition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools[def.ID()] = def
}

func (m *Memory) PutPromptTemplate(tpl *prompt.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[tpl.ID] = tpl
}

func (m *Memory) PutFile(file *prompt.File, images []prompt.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[file.ID] = file
	if len(images) > 0 {
		m.images[file.ID] = images
	}
}
