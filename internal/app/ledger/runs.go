package ledger

import (
	"context"
	"fmt"
	"time"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Run struct {
	ID           string        `json:"id"`
	Project      string        `json:"project"`
	Mode         string        `json:"mode"`
	Status       Status        `json:"status"`
	Stage        string        `json:"stage,omitempty"`
	Item         string        `json:"item,omitempty"`
	Error        string        `json:"error,omitempty"`
	Entries      int           `json:"entries"`
	Duration     time.Duration `json:"duration"`
	VideoPath    string        `json:"video_path,omitempty"`
	PublishedURL string        `json:"published_url,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at,omitzero"`
}

func (db *DB) CreateRun(ctx context.Context, run *Run) error {
	_, err := db.ExecContext(ctx, `
		insert into runs (id, project, mode, status, started_at)
		values ($1, $2, $3, $4, $5)
		`,
		run.ID,
		run.Project,
		run.Mode,
		string(run.Status),
		run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

func (db *DB) UpdateStage(ctx context.Context, id string, stage string) error {
	_, err := db.ExecContext(ctx, `update runs set stage = $1 where id = $2`, stage, id)
	if err != nil {
		return fmt.Errorf("failed to update run stage: %w", err)
	}

	return nil
}

// FinishRun stores the outcome of a run. Only the outcome columns are written.
func (db *DB) FinishRun(ctx context.Context, run *Run) error {
	_, err := db.ExecContext(ctx, `
		update runs set
			status = $1,
			stage = $2,
			item = $3,
			error = $4,
			entries = $5,
			duration_ms = $6,
			video_path = $7,
			published_url = $8,
			finished_at = $9
		where
			id = $10
		`,
		string(run.Status),
		run.Stage,
		run.Item,
		run.Error,
		run.Entries,
		run.Duration.Milliseconds(),
		run.VideoPath,
		run.PublishedURL,
		run.FinishedAt.UnixMilli(),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	return nil
}

const runColumns = `id, project, mode, status, stage, item, error, entries, duration_ms, video_path, published_url, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                   Run
		status                string
		durationMS            int64
		startedAt, finishedAt int64
	)

	err := row.Scan(
		&run.ID,
		&run.Project,
		&run.Mode,
		&status,
		&run.Stage,
		&run.Item,
		&run.Error,
		&run.Entries,
		&durationMS,
		&run.VideoPath,
		&run.PublishedURL,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = Status(status)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.StartedAt = time.UnixMilli(startedAt)
	if finishedAt != 0 {
		run.FinishedAt = time.UnixMilli(finishedAt)
	}

	return &run, nil
}

func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(db.QueryRowContext(ctx, `select `+runColumns+` from runs where id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", parseErr(err))
	}

	return run, nil
}

func (db *DB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := db.QueryContext(ctx, `select `+runColumns+` from runs order by started_at desc limit $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}
