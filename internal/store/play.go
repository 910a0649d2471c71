package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stitchflow.app/conductor/core/db"
	"stitchflow.app/conductor/internal/model"
)

type playStore struct {
	db *db.DB
}

func newPlayStore(database *db.DB) *playStore {
	return &playStore{db: database}
}

func (s *playStore) ListByPlaybook(ctx context.Context, playbookID string) ([]model.Play, error) {
	return listPlays(ctx, s.db.Pool(), playbookID)
}

func (s *playStore) ReplaceAll(ctx context.Context, playbookID string, plays []model.Play) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return replacePlays(ctx, tx, playbookID, plays)
	})
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listPlays(ctx context.Context, q querier, playbookID string) ([]model.Play, error) {
	rows, err := q.Query(ctx,
		`SELECT id, playbook_id, sequence, title, description, trigger, task_template,
		        assignment, dependencies, enabled, trigger_defaulted, created_by, created_at, updated_at
		 FROM plays WHERE playbook_id = $1 ORDER BY sequence`, playbookID)
	if err != nil {
		return nil, fmt.Errorf("listing plays: %w", err)
	}
	defer rows.Close()

	var plays []model.Play
	for rows.Next() {
		play, err := scanPlay(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning play: %w", err)
		}
		plays = append(plays, play)
	}
	return plays, rows.Err()
}

func scanPlay(row pgx.Row) (model.Play, error) {
	var play model.Play
	var trigger, task, assignment, deps []byte
	if err := row.Scan(&play.ID, &play.PlaybookID, &play.Sequence, &play.Title,
		&play.Description, &trigger, &task, &assignment, &deps,
		&play.Enabled, &play.TriggerDefaulted, &play.CreatedBy,
		&play.CreatedAt, &play.UpdatedAt); err != nil {
		return model.Play{}, err
	}

	if err := json.Unmarshal(trigger, &play.Trigger); err != nil {
		return model.Play{}, fmt.Errorf("decoding trigger: %w", err)
	}
	if err := json.Unmarshal(task, &play.TaskTemplate); err != nil {
		return model.Play{}, fmt.Errorf("decoding task template: %w", err)
	}
	if err := json.Unmarshal(assignment, &play.Assignment); err != nil {
		return model.Play{}, fmt.Errorf("decoding assignment: %w", err)
	}
	if err := json.Unmarshal(deps, &play.Dependencies); err != nil {
		return model.Play{}, fmt.Errorf("decoding dependencies: %w", err)
	}

	return play, nil
}

func replacePlays(ctx context.Context, tx pgx.Tx, playbookID string, plays []model.Play) error {
	if _, err := tx.Exec(ctx, `DELETE FROM plays WHERE playbook_id = $1`, playbookID); err != nil {
		return fmt.Errorf("clearing plays: %w", err)
	}

	for _, play := range plays {
		trigger, err := json.Marshal(play.Trigger)
		if err != nil {
			return fmt.Errorf("encoding trigger for play %s: %w", play.ID, err)
		}
		task, err := json.Marshal(play.TaskTemplate)
		if err != nil {
			return fmt.Errorf("encoding task template for play %s: %w", play.ID, err)
		}
		assignment, err := json.Marshal(play.Assignment)
		if err != nil {
			return fmt.Errorf("encoding assignment for play %s: %w", play.ID, err)
		}
		deps := play.Dependencies
		if deps == nil {
			deps = []model.PlayDependency{}
		}
		depsJSON, err := json.Marshal(deps)
		if err != nil {
			return fmt.Errorf("encoding dependencies for play %s: %w", play.ID, err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO plays (id, playbook_id, sequence, title, description, trigger, task_template,
			                    assignment, dependencies, enabled, trigger_defaulted, created_by, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			play.ID, playbookID, play.Sequence, play.Title, play.Description,
			trigger, task, assignment, depsJSON, play.Enabled, play.TriggerDefaulted,
			play.CreatedBy, play.CreatedAt, play.UpdatedAt); err != nil {
			return fmt.Errorf("inserting play %s: %w", play.ID, err)
		}
	}

	return nil
}
