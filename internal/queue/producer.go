package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// GenerationTask is the payload enqueued when a playbook draft needs plays
// generated (or refined) in the background.
type GenerationTask struct {
	TaskType    TaskType
	PlaybookID  string
	Instruction string
	CreatedBy   string
	TraceID     *string
	Attempt     int
}

type Producer interface {
	Enqueue(ctx context.Context, task GenerationTask) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, task GenerationTask) error {
	attempt := task.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	taskType := task.TaskType
	if taskType == "" {
		taskType = TaskTypeGeneration
	}

	fields := map[string]any{
		"task_type":   string(taskType),
		"playbook_id": task.PlaybookID,
		"instruction": task.Instruction,
		"attempt":     attempt,
	}

	if task.CreatedBy != "" {
		fields["created_by"] = task.CreatedBy
	}
	if task.TraceID != nil && *task.TraceID != "" {
		fields["trace_id"] = *task.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue generation task: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued generation task", "playbook_id", task.PlaybookID, "task_type", taskType, "attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
