package worker_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"stitchflow.app/conductor/internal/queue"
	"stitchflow.app/conductor/internal/worker"
)

var _ = Describe("Worker", func() {
	var (
		ctx       context.Context
		consumer  *mockConsumer
		processor *mockProcessor
		w         *worker.Worker
	)

	msg := queue.Message{
		ID:          "1-0",
		TaskType:    queue.TaskTypeGeneration,
		PlaybookID:  "pb-1",
		Instruction: "inspect fabric on arrival",
		Attempt:     1,
	}

	BeforeEach(func() {
		ctx = context.Background()
		consumer = &mockConsumer{}
		processor = &mockProcessor{}
		w = worker.New(consumer, processor, worker.Config{MaxAttempts: 3})
	})

	It("acks a successfully processed message", func() {
		Expect(w.ProcessMessage(ctx, msg)).To(Succeed())
		Expect(processor.calls).To(Equal(1))
		Expect(consumer.ackCalls).To(ConsistOf("1-0"))
	})

	It("does not ack when processing fails", func() {
		processor.processFn = func(context.Context, queue.Message) error {
			return errors.New("completion down")
		}

		Expect(w.ProcessMessage(ctx, msg)).NotTo(Succeed())
		Expect(consumer.ackCalls).To(BeEmpty())
	})
})
