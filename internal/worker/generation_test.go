package worker_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"stitchflow.app/conductor/common/llm"
	"stitchflow.app/conductor/internal/model"
	"stitchflow.app/conductor/internal/queue"
	"stitchflow.app/conductor/internal/store"
	"stitchflow.app/conductor/internal/worker"
)

const proposalJSON = `{
	"name": "Fabric intake",
	"description": "Handle incoming fabric orders",
	"plays": [
		{
			"title": "Inspect fabric",
			"sequence": 1,
			"trigger": {"type": "order_accepted"},
			"taskTemplate": {"title": "Inspect fabric", "description": "Check incoming bolts for defects and shade variance", "priority": "high"},
			"assignment": {"type": "role_team", "mode": "team", "teamName": "Quality"}
		},
		{
			"title": "Reserve cutting slot",
			"sequence": 2,
			"trigger": {"type": "task_completion", "taskTitle": "Inspect fabric"},
			"taskTemplate": {"title": "Reserve cutting slot", "description": "Block a slot on the cutting table schedule", "priority": "medium"},
			"assignment": {"type": "role_team", "mode": "team", "teamName": "Cutting"},
			"dependencies": [{"playTitle": "Inspect fabric", "type": "completion"}]
		}
	]
}`

var _ = Describe("GenerationProcessor", func() {
	var (
		ctx       context.Context
		playbooks *mockPlaybookStore
		client    *mockLLM
	)

	msg := queue.Message{
		ID:          "1-0",
		TaskType:    queue.TaskTypeGeneration,
		PlaybookID:  "pb-1",
		Instruction: "When an order is accepted, inspect the fabric then reserve a cutting slot",
		CreatedBy:   "user-1",
		Attempt:     1,
	}

	draft := func() *model.Playbook {
		return &model.Playbook{
			ID:     "pb-1",
			Status: model.PlaybookStatusGenerating,
			Plays:  []model.Play{},
		}
	}

	newProcessor := func() *worker.GenerationProcessor {
		return worker.NewGenerationProcessor(client, playbooks, 0, time.Minute)
	}

	BeforeEach(func() {
		ctx = context.Background()
		playbooks = &mockPlaybookStore{}
		playbooks.getByIDFn = func(context.Context, string) (*model.Playbook, error) {
			return draft(), nil
		}
		client = &mockLLM{
			completeFn: func(_ context.Context, req llm.Request) (*llm.Response, error) {
				Expect(req.Schema).NotTo(BeNil())
				Expect(req.UserPrompt).To(ContainSubstring("order is accepted"))
				return &llm.Response{Content: proposalJSON}, nil
			},
		}
	})

	It("transforms the proposal and persists a draft playbook", func() {
		var persisted *model.Playbook
		playbooks.updateFn = func(_ context.Context, pb *model.Playbook) error {
			persisted = pb
			return nil
		}
		Expect(newProcessor().Process(ctx, msg)).To(Succeed())

		Expect(persisted).NotTo(BeNil())
		Expect(persisted.Name).To(Equal("Fabric intake"))
		Expect(persisted.Status).To(Equal(model.PlaybookStatusDraft))
		Expect(persisted.Plays).To(HaveLen(2))
		Expect(persisted.Plays[0].Title).To(Equal("Inspect fabric"))
		// Dependency resolved by title to the generated play id.
		Expect(persisted.Plays[1].Dependencies[0].PlayID).To(Equal(persisted.Plays[0].ID))
		Expect(persisted.Issues).To(BeEmpty())
	})

	It("carries transform diagnostics on the persisted playbook", func() {
		client.completeFn = func(context.Context, llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: `{
				"name": "Fabric intake",
				"plays": [
					{
						"title": "Inspect fabric",
						"sequence": 1,
						"trigger": {"type": "when_the_moon_is_full"},
						"taskTemplate": {"title": "Inspect delivery"},
						"assignment": {"type": "role_team", "mode": "team", "teamName": "Receiving"}
					}
				]
			}`}, nil
		}
		var persisted *model.Playbook
		playbooks.updateFn = func(_ context.Context, pb *model.Playbook) error {
			persisted = pb
			return nil
		}

		Expect(newProcessor().Process(ctx, msg)).To(Succeed())

		Expect(persisted).NotTo(BeNil())
		Expect(persisted.Issues).NotTo(BeEmpty())
		Expect(persisted.Issues[0]).To(ContainSubstring("when_the_moon_is_full"))
		Expect(persisted.Plays[0].TriggerDefaulted).To(BeTrue())
	})

	It("handles fenced proposal responses", func() {
		client.completeFn = func(context.Context, llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: "```json\n" + proposalJSON + "\n```"}, nil
		}
		var persisted *model.Playbook
		playbooks.updateFn = func(_ context.Context, pb *model.Playbook) error {
			persisted = pb
			return nil
		}

		Expect(newProcessor().Process(ctx, msg)).To(Succeed())
		Expect(persisted.Plays).To(HaveLen(2))
	})

	It("drops the task when the playbook was deleted", func() {
		playbooks.getByIDFn = func(context.Context, string) (*model.Playbook, error) {
			return nil, store.ErrNotFound
		}

		Expect(newProcessor().Process(ctx, msg)).To(Succeed())
	})

	It("skips a playbook that already has generated plays", func() {
		playbooks.getByIDFn = func(context.Context, string) (*model.Playbook, error) {
			pb := draft()
			pb.Status = model.PlaybookStatusDraft
			pb.Plays = []model.Play{{ID: "p1", Title: "Existing"}}
			return pb, nil
		}
		completionCalled := false
		client.completeFn = func(context.Context, llm.Request) (*llm.Response, error) {
			completionCalled = true
			return nil, nil
		}

		Expect(newProcessor().Process(ctx, msg)).To(Succeed())
		Expect(completionCalled).To(BeFalse())
	})

	It("errors on a proposal with no plays", func() {
		client.completeFn = func(context.Context, llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: `{"name": "Empty", "plays": []}`}, nil
		}

		Expect(newProcessor().Process(ctx, msg)).NotTo(Succeed())
	})

	It("marks the playbook failed on a timed-out completion", func() {
		client.completeFn = func(callCtx context.Context, _ llm.Request) (*llm.Response, error) {
			<-callCtx.Done()
			return nil, callCtx.Err()
		}
		var markedStatus model.PlaybookStatus
		playbooks.updateStatusFn = func(_ context.Context, _ string, status model.PlaybookStatus, _ []string) error {
			markedStatus = status
			return nil
		}

		processor := worker.NewGenerationProcessor(client, playbooks, 0, 10*time.Millisecond)
		Expect(processor.Process(ctx, msg)).To(Succeed())
		Expect(markedStatus).To(Equal(model.PlaybookStatusFailed))
	})
})
