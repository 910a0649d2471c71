package service_test

import (
	"context"

	"stitchflow.app/conductor/internal/model"
	"stitchflow.app/conductor/internal/queue"
)

type mockPlaybookStore struct {
	getByIDFn      func(ctx context.Context, id string) (*model.Playbook, error)
	createFn       func(ctx context.Context, pb *model.Playbook) error
	updateFn       func(ctx context.Context, pb *model.Playbook) error
	updateStatusFn func(ctx context.Context, id string, status model.PlaybookStatus, issues []string) error
	setActiveFn    func(ctx context.Context, id string, active bool) error
	deleteFn       func(ctx context.Context, id string) error
	listFn         func(ctx context.Context, limit int32) ([]model.Playbook, error)
	updateCalls    int
}

func (m *mockPlaybookStore) GetByID(ctx context.Context, id string) (*model.Playbook, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPlaybookStore) Create(ctx context.Context, pb *model.Playbook) error {
	if m.createFn != nil {
		return m.createFn(ctx, pb)
	}
	return nil
}

func (m *mockPlaybookStore) Update(ctx context.Context, pb *model.Playbook) error {
	m.updateCalls++
	if m.updateFn != nil {
		return m.updateFn(ctx, pb)
	}
	return nil
}

func (m *mockPlaybookStore) UpdateStatus(ctx context.Context, id string, status model.PlaybookStatus, issues []string) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status, issues)
	}
	return nil
}

func (m *mockPlaybookStore) SetActive(ctx context.Context, id string, active bool) error {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, id, active)
	}
	return nil
}

func (m *mockPlaybookStore) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockPlaybookStore) List(ctx context.Context, limit int32) ([]model.Playbook, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return nil, nil
}

type mockProducer struct {
	enqueueFn    func(ctx context.Context, task queue.GenerationTask) error
	enqueueCalls int
}

func (m *mockProducer) Enqueue(ctx context.Context, task queue.GenerationTask) error {
	m.enqueueCalls++
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, task)
	}
	return nil
}

func (m *mockProducer) Close() error { return nil }
