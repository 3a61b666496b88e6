package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/prompt"
	"github.com/quillflow/quillflow/engine/tool"
	"github.com/quillflow/quillflow/engine/workflow"
	"github.com/quillflow/quillflow/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

const (
	defaultMaxConns    = 10
	defaultPingTimeout = 3 * time.Second
)

// PostgresConfig configures the durable store.
type PostgresConfig struct {
	DSN      string `json:"dsn"                 yaml:"dsn"                 koanf:"dsn"`
	MaxConns int32  `json:"max_conns,omitempty" yaml:"max_conns,omitempty" koanf:"max_conns"`
}

// Postgres is the durable store backed by a pgx pool. Definitions live as
// JSONB documents; runnable tools are built through the factory on read so
// they always see the current template state.
type Postgres struct {
	pool    *pgxpool.Pool
	factory *tool.Factory
}

// NewPostgres connects the pool, applies the schema, and verifies the
// connection. The factory may be attached later via SetFactory when tool
// construction depends on the store itself.
func NewPostgres(ctx context.Context, cfg *PostgresConfig) (*Postgres, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing dsn: %w", err)
	}
	poolCfg.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: applying schema: %w", err)
	}
	logger.FromContext(ctx).Info("postgres store ready", "max_conns", poolCfg.MaxConns)
	return &Postgres{pool: pool}, nil
}

// SetFactory attaches the tool factory used by GetTool.
func (p *Postgres) SetFactory(factory *tool.Factory) {
	p.factory = factory
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// -----------------------------------------------------------------------------
// workflow.Store
// -----------------------------------------------------------------------------

func (p *Postgres) LoadWorkflow(ctx context.Context, id core.ID) (*workflow.Config, error) {
	var cfg workflow.Config
	err := p.loadDefinition(ctx,
		"SELECT definition FROM workflows WHERE workflow_id = $1", id, &cfg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.Errorf(core.CodeInvalidWorkflow, "workflow %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p *Postgres) GetTool(ctx context.Context, id core.ID) (tool.Definition, error) {
	if p.factory == nil {
		return nil, fmt.Errorf("postgres: tool factory not attached")
	}
	var cfg tool.Config
	err := p.loadDefinition(ctx,
		"SELECT definition FROM tools WHERE tool_id = $1", id, &cfg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.Errorf(core.CodeToolNotFound, "tool %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return p.factory.Build(&cfg)
}

func (p *Postgres) GetPromptTemplate(ctx context.Context, id core.ID) (*prompt.Config, error) {
	var cfg prompt.Config
	err := p.loadDefinition(ctx,
		"SELECT definition FROM prompt_templates WHERE template_id = $1", id, &cfg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.Errorf(core.CodeTemplateNotFound, "template %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p *Postgres) PersistRunResult(ctx context.Context, result *workflow.RunResult) error {
	output, err := json.Marshal(result.Output)
	if err != nil {
		return fmt.Errorf("postgres: encoding run output: %w", err)
	}
	var errJSON []byte
	if result.Error != nil {
		if errJSON, err = json.Marshal(result.Error); err != nil {
			return fmt.Errorf("postgres: encoding run error: %w", err)
		}
	}
	var finishedAt *time.Time
	if !result.FinishedAt.IsZero() {
		finishedAt = &result.FinishedAt
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO runs (run_id, workflow_id, status, output, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE
		SET status = EXCLUDED.status,
		    output = EXCLUDED.output,
		    error = EXCLUDED.error,
		    finished_at = EXCLUDED.finished_at`,
		result.RunID, result.WorkflowID, result.Status, output, errJSON,
		result.StartedAt, finishedAt)
	if err != nil {
		return fmt.Errorf("postgres: persisting run %s: %w", result.RunID, err)
	}
	return nil
}

// GetRunResult returns the latest persisted state of a run.
func (p *Postgres) GetRunResult(ctx context.Context, id core.ID) (*workflow.RunResult, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT run_id, workflow_id, status, output, error, started_at, finished_at
		FROM runs WHERE run_id = $1`, id)
	var (
		result     workflow.RunResult
		output     []byte
		errJSON    []byte
		finishedAt *time.Time
	)
	err := row.Scan(&result.RunID, &result.WorkflowID, &result.Status,
		&output, &errJSON, &result.StartedAt, &finishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: loading run %s: %w", id, err)
	}
	if len(output) > 0 {
		if err := json.Unmarshal(output, &result.Output); err != nil {
			return nil, fmt.Errorf("postgres: decoding run output: %w", err)
		}
	}
	if len(errJSON) > 0 {
		if err := json.Unmarshal(errJSON, &result.Error); err != nil {
			return nil, fmt.Errorf("postgres: decoding run error: %w", err)
		}
	}
	if finishedAt != nil {
		result.FinishedAt = *finishedAt
	}
	return &result, nil
}

// -----------------------------------------------------------------------------
// prompt.FileSource
// -----------------------------------------------------------------------------

func (p *Postgres) GetFile(ctx context.Context, id core.ID) (*prompt.File, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT file_id, name, mime_type, COALESCE(extracted_text, ''), content
		FROM files WHERE file_id = $1`, id)
	var file prompt.File
	err := row.Scan(&file.ID, &file.Name, &file.MimeType, &file.ExtractedText, &file.Content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.Errorf(core.CodeFileNotFound, "file %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: loading file %s: %w", id, err)
	}
	return &file, nil
}

func (p *Postgres) GetFileImages(ctx context.Context, id core.ID) ([]prompt.Image, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT mime_type, data FROM file_images
		WHERE file_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: loading images for %s: %w", id, err)
	}
	defer rows.Close()
	var images []prompt.Image
	for rows.Next() {
		var img prompt.Image
		if err := rows.Scan(&img.MimeType, &img.Data); err != nil {
			return nil, fmt.Errorf("postgres: scanning image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// -----------------------------------------------------------------------------
// Writes
// -----------------------------------------------------------------------------

func (p *Postgres) PutWorkflow(ctx context.Context, cfg *workflow.Config) error {
	return p.putDefinition(ctx, `
		INSERT INTO workflows (workflow_id, definition, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (workflow_id) DO UPDATE
		SET definition = EXCLUDED.definition, updated_at = now()`, cfg.ID, cfg)
}

func (p *Postgres) PutToolConfig(ctx context.Context, cfg *tool.Config) error {
	return p.putDefinition(ctx, `
		INSERT INTO tools (tool_id, definition, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tool_id) DO UPDATE
		SET definition = EXCLUDED.definition, updated_at = now()`, cfg.ID, cfg)
}

func (p *Postgres) PutPromptTemplate(ctx context.Context, cfg *prompt.Config) error {
	return p.putDefinition(ctx, `
		INSERT INTO prompt_templates (template_id, definition, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (template_id) DO UPDATE
		SET definition = EXCLUDED.definition, updated_at = now()`, cfg.ID, cfg)
}

func (p *Postgres) loadDefinition(ctx context.Context, query string, id core.ID, out any) error {
	var data []byte
	if err := p.pool.QueryRow(ctx, query, id).Scan(&data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("postgres: decoding definition %s: %w", id, err)
	}
	return nil
}

func (p *Postgres) putDefinition(ctx context.Context, query string, id core.ID, definition any) error {
	data, err := json.Marshal(definition)
	if err != nil {
		return fmt.Errorf("postgres: encoding definition %s: %w", id, err)
	}
	if _, err := p.pool.Exec(ctx, query, id, data); err != nil {
		return fmt.Errorf("postgres: writing definition %s: %w", id, err)
	}
	return nil
}
