package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stitchflow.app/conductor/core/db"
	"stitchflow.app/conductor/internal/model"
)

type playbookStore struct {
	db *db.DB
}

func newPlaybookStore(database *db.DB) *playbookStore {
	return &playbookStore{db: database}
}

const playbookColumns = `id, name, description, status, active, issues, created_by, created_at, updated_at`

func (s *playbookStore) GetByID(ctx context.Context, id string) (*model.Playbook, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+playbookColumns+` FROM playbooks WHERE id = $1`, id)

	pb, err := scanPlaybook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting playbook: %w", err)
	}

	plays, err := listPlays(ctx, s.db.Pool(), id)
	if err != nil {
		return nil, err
	}
	pb.Plays = plays

	return pb, nil
}

func (s *playbookStore) Create(ctx context.Context, pb *model.Playbook) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO playbooks (id, name, description, status, active, issues, created_by, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			pb.ID, pb.Name, pb.Description, pb.Status, pb.Active, issuesJSON(pb.Issues),
			pb.CreatedBy, pb.CreatedAt, pb.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting playbook: %w", err)
		}
		return replacePlays(ctx, tx, pb.ID, pb.Plays)
	})
}

// Update persists the playbook row and replaces its plays wholesale. The
// pipeline works copy-then-replace on the full aggregate, so a row-level
// diff buys nothing here.
func (s *playbookStore) Update(ctx context.Context, pb *model.Playbook) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE playbooks SET name = $2, description = $3, status = $4, active = $5, issues = $6, updated_at = $7
			 WHERE id = $1`,
			pb.ID, pb.Name, pb.Description, pb.Status, pb.Active, issuesJSON(pb.Issues), pb.UpdatedAt)
		if err != nil {
			return fmt.Errorf("updating playbook: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return replacePlays(ctx, tx, pb.ID, pb.Plays)
	})
}

func (s *playbookStore) UpdateStatus(ctx context.Context, id string, status model.PlaybookStatus, issues []string) error {
	tag, err := s.db.Pool().Exec(ctx,
		`UPDATE playbooks SET status = $2, issues = $3, updated_at = now() WHERE id = $1`,
		id, status, issuesJSON(issues))
	if err != nil {
		return fmt.Errorf("updating playbook status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *playbookStore) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := s.db.Pool().Exec(ctx,
		`UPDATE playbooks SET active = $2, updated_at = now() WHERE id = $1`,
		id, active)
	if err != nil {
		return fmt.Errorf("setting playbook active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *playbookStore) Delete(ctx context.Context, id string) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM plays WHERE playbook_id = $1`, id); err != nil {
			return fmt.Errorf("deleting plays: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM playbooks WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deleting playbook: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// List returns playbooks without their plays, newest first.
func (s *playbookStore) List(ctx context.Context, limit int32) ([]model.Playbook, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Pool().Query(ctx,
		`SELECT `+playbookColumns+` FROM playbooks ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing playbooks: %w", err)
	}
	defer rows.Close()

	var playbooks []model.Playbook
	for rows.Next() {
		pb, err := scanPlaybook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning playbook: %w", err)
		}
		playbooks = append(playbooks, *pb)
	}
	return playbooks, rows.Err()
}

func scanPlaybook(row pgx.Row) (*model.Playbook, error) {
	var pb model.Playbook
	var issues []byte
	if err := row.Scan(&pb.ID, &pb.Name, &pb.Description, &pb.Status, &pb.Active,
		&issues, &pb.CreatedBy, &pb.CreatedAt, &pb.UpdatedAt); err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		if err := json.Unmarshal(issues, &pb.Issues); err != nil {
			return nil, fmt.Errorf("decoding playbook issues: %w", err)
		}
	}
	return &pb, nil
}

func issuesJSON(issues []string) []byte {
	if issues == nil {
		issues = []string{}
	}
	b, _ := json.Marshal(issues)
	return b
}
