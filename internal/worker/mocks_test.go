package worker_test

import (
	"context"

	"stitchflow.app/conductor/common/llm"
	"stitchflow.app/conductor/internal/model"
	"stitchflow.app/conductor/internal/queue"
)

type mockConsumer struct {
	readFn       func(ctx context.Context) ([]queue.Message, error)
	ackCalls     []string
	requeueCalls []string
	dlqCalls     []string
}

func (m *mockConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	if m.readFn != nil {
		return m.readFn(ctx)
	}
	return nil, nil
}

func (m *mockConsumer) Ack(_ context.Context, msg queue.Message) error {
	m.ackCalls = append(m.ackCalls, msg.ID)
	return nil
}

func (m *mockConsumer) Requeue(_ context.Context, msg queue.Message, _ string) error {
	m.requeueCalls = append(m.requeueCalls, msg.ID)
	return nil
}

func (m *mockConsumer) SendDLQ(_ context.Context, msg queue.Message, _ string) error {
	m.dlqCalls = append(m.dlqCalls, msg.ID)
	return nil
}

type mockProcessor struct {
	processFn func(ctx context.Context, msg queue.Message) error
	calls     int
}

func (m *mockProcessor) Process(ctx context.Context, msg queue.Message) error {
	m.calls++
	if m.processFn != nil {
		return m.processFn(ctx, msg)
	}
	return nil
}

type mockLLM struct {
	completeFn func(ctx context.Context, req llm.Request) (*llm.Response, error)
}

func (m *mockLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return m.completeFn(ctx, req)
}

func (m *mockLLM) Model() string { return "mock-model" }

type mockPlaybookStore struct {
	getByIDFn      func(ctx context.Context, id string) (*model.Playbook, error)
	updateFn       func(ctx context.Context, pb *model.Playbook) error
	updateStatusFn func(ctx context.Context, id string, status model.PlaybookStatus, issues []string) error
}

func (m *mockPlaybookStore) GetByID(ctx context.Context, id string) (*model.Playbook, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPlaybookStore) Create(context.Context, *model.Playbook) error { return nil }

func (m *mockPlaybookStore) Update(ctx context.Context, pb *model.Playbook) error {
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

func (m *mockPlaybookStore) SetActive(context.Context, string, bool) error { return nil }
func (m *mockPlaybookStore) Delete(context.Context, string) error          { return nil }
func (m *mockPlaybookStore) List(context.Context, int32) ([]model.Playbook, error) {
	return nil, nil
}
