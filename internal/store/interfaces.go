package store

import (
	"context"
	"errors"

	"stitchflow.app/conductor/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// PlaybookStore defines the contract for playbook data access. A playbook is
// read and written with its plays: the pipeline always operates on the whole
// aggregate.
type PlaybookStore interface {
	GetByID(ctx context.Context, id string) (*model.Playbook, error)
	Create(ctx context.Context, pb *model.Playbook) error
	Update(ctx context.Context, pb *model.Playbook) error
	UpdateStatus(ctx context.Context, id string, status model.PlaybookStatus, issues []string) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit int32) ([]model.Playbook, error)
}

// PlayStore defines the contract for play data access within a playbook.
type PlayStore interface {
	ListByPlaybook(ctx context.Context, playbookID string) ([]model.Play, error)
	ReplaceAll(ctx context.Context, playbookID string, plays []model.Play) error
}
