package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stitchflow.app/conductor/common/id"
	"stitchflow.app/conductor/common/logger"
	"stitchflow.app/conductor/internal/enrich"
	"stitchflow.app/conductor/internal/gap"
	"stitchflow.app/conductor/internal/model"
	"stitchflow.app/conductor/internal/queue"
	"stitchflow.app/conductor/internal/store"
	"stitchflow.app/conductor/internal/transform"
	"stitchflow.app/conductor/internal/update"
	"stitchflow.app/conductor/internal/validate"
)

var (
	ErrPlaybookNotFound     = errors.New("playbook not found")
	ErrPlaybookNotReady     = errors.New("playbook is still generating")
	ErrBlockingGaps         = errors.New("playbook has blocking gaps")
	ErrMissingInstruction   = errors.New("instruction is required")
	ErrEmptyRefinementBatch = errors.New("refinement batch is empty")
)

type GenerateInput struct {
	Name        string
	Instruction string
	CreatedBy   string
	// TraceID links the queued generation job back to the originating
	// request trace. Empty means no trace to propagate.
	TraceID string
}

// ActivationResult reports the completeness verdict alongside whether the
// playbook was switched on.
type ActivationResult struct {
	Activated  bool
	Validation validate.Result
}

type PlaybookService interface {
	// Generate creates a draft playbook and enqueues background play
	// generation. The returned playbook has status "generating" and no plays.
	Generate(ctx context.Context, input GenerateInput) (*model.Playbook, error)
	Get(ctx context.Context, id string) (*model.Playbook, error)
	List(ctx context.Context, limit int32) ([]model.Playbook, error)
	Delete(ctx context.Context, id string) error

	// AnalyzeGaps recomputes gaps from the current playbook state.
	AnalyzeGaps(ctx context.Context, id string) ([]model.Gap, error)

	// GenerateQuestions analyzes the playbook and produces clarifying
	// questions for the blocking gaps. Questions are not persisted: the
	// client round-trips them to ApplyAnswers.
	GenerateQuestions(ctx context.Context, id string, instruction string) ([]model.EnrichmentQuestion, error)

	// ApplyAnswers folds answers into the playbook, persists it, and
	// returns the playbook with its remaining gaps.
	ApplyAnswers(ctx context.Context, id string, questions []model.EnrichmentQuestion, answers map[string]string) (*model.Playbook, []model.Gap, error)

	// Refine applies an add/edit/remove batch and persists the result.
	Refine(ctx context.Context, id string, ops []transform.Operation, actor string) (*transform.RefinementResult, error)

	// Activate validates completeness and switches the playbook on.
	// Blocking gaps refuse activation unless allowIncomplete is set.
	Activate(ctx context.Context, id string, allowIncomplete bool) (*ActivationResult, error)
}

type playbookService struct {
	playbooks   store.PlaybookStore
	producer    queue.Producer
	questions   *enrich.QuestionGenerator
	refiner     *transform.RefinementTransformer
	updater     *update.Updater
	questionTTL time.Duration
}

func NewPlaybookService(
	playbooks store.PlaybookStore,
	producer queue.Producer,
	questions *enrich.QuestionGenerator,
	refiner *transform.RefinementTransformer,
	questionTTL time.Duration,
) PlaybookService {
	if questionTTL <= 0 {
		questionTTL = 2 * time.Minute
	}
	return &playbookService{
		playbooks:   playbooks,
		producer:    producer,
		questions:   questions,
		refiner:     refiner,
		updater:     update.NewUpdater(),
		questionTTL: questionTTL,
	}
}

func (s *playbookService) Generate(ctx context.Context, input GenerateInput) (*model.Playbook, error) {
	if input.Instruction == "" {
		return nil, ErrMissingInstruction
	}

	now := time.Now().UTC()
	pb := &model.Playbook{
		ID:        id.NewString(),
		Name:      input.Name,
		Status:    model.PlaybookStatusGenerating,
		Plays:     []model.Play{},
		CreatedBy: input.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.playbooks.Create(ctx, pb); err != nil {
		return nil, fmt.Errorf("creating playbook draft: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{PlaybookID: logger.Ptr(pb.ID)})

	task := queue.GenerationTask{
		TaskType:    queue.TaskTypeGeneration,
		PlaybookID:  pb.ID,
		Instruction: input.Instruction,
		CreatedBy:   input.CreatedBy,
	}
	if input.TraceID != "" {
		task.TraceID = &input.TraceID
	}

	if err := s.producer.Enqueue(ctx, task); err != nil {
		// The draft row stays; marking it failed lets the client retry
		// without a dangling "generating" playbook.
		if statusErr := s.playbooks.UpdateStatus(ctx, pb.ID, model.PlaybookStatusFailed,
			[]string{"failed to enqueue generation"}); statusErr != nil {
			slog.ErrorContext(ctx, "failed to mark playbook failed after enqueue error", "error", statusErr)
		}
		return nil, fmt.Errorf("enqueueing generation: %w", err)
	}

	slog.InfoContext(ctx, "playbook generation requested", "created_by", input.CreatedBy)
	return pb, nil
}

func (s *playbookService) Get(ctx context.Context, playbookID string) (*model.Playbook, error) {
	pb, err := s.playbooks.GetByID(ctx, playbookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPlaybookNotFound
		}
		return nil, fmt.Errorf("getting playbook: %w", err)
	}
	return pb, nil
}

func (s *playbookService) List(ctx context.Context, limit int32) ([]model.Playbook, error) {
	return s.playbooks.List(ctx, limit)
}

func (s *playbookService) Delete(ctx context.Context, playbookID string) error {
	if err := s.playbooks.Delete(ctx, playbookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPlaybookNotFound
		}
		return fmt.Errorf("deleting playbook: %w", err)
	}
	return nil
}

func (s *playbookService) AnalyzeGaps(ctx context.Context, playbookID string) ([]model.Gap, error) {
	pb, err := s.Get(ctx, playbookID)
	if err != nil {
		return nil, err
	}
	return gap.Analyze(pb), nil
}

func (s *playbookService) GenerateQuestions(ctx context.Context, playbookID string, instruction string) ([]model.EnrichmentQuestion, error) {
	pb, err := s.Get(ctx, playbookID)
	if err != nil {
		return nil, err
	}
	if pb.Status == model.PlaybookStatusGenerating {
		return nil, ErrPlaybookNotReady
	}

	gaps := gap.Analyze(pb)
	if len(gaps) == 0 {
		return []model.EnrichmentQuestion{}, nil
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{PlaybookID: logger.Ptr(pb.ID)})
	genCtx, cancel := context.WithTimeout(ctx, s.questionTTL)
	defer cancel()

	return s.questions.Generate(genCtx, instruction, pb, gaps), nil
}

func (s *playbookService) ApplyAnswers(ctx context.Context, playbookID string, questions []model.EnrichmentQuestion, answers map[string]string) (*model.Playbook, []model.Gap, error) {
	pb, err := s.Get(ctx, playbookID)
	if err != nil {
		return nil, nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{PlaybookID: logger.Ptr(pb.ID)})

	updated, issues := s.updater.ApplyAnswers(*pb, questions, answers)
	for _, issue := range issues {
		slog.WarnContext(ctx, "answer did not apply", "issue", issue)
	}

	if err := s.playbooks.Update(ctx, &updated); err != nil {
		return nil, nil, fmt.Errorf("persisting enriched playbook: %w", err)
	}

	remaining := gap.Analyze(&updated)
	slog.InfoContext(ctx, "answers applied",
		"answered", len(answers),
		"skipped", len(issues),
		"remaining_gaps", len(remaining))

	return &updated, remaining, nil
}

func (s *playbookService) Refine(ctx context.Context, playbookID string, ops []transform.Operation, actor string) (*transform.RefinementResult, error) {
	if len(ops) == 0 {
		return nil, ErrEmptyRefinementBatch
	}

	pb, err := s.Get(ctx, playbookID)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{PlaybookID: logger.Ptr(pb.ID)})

	result := s.refiner.Apply(*pb, ops, actor)
	if err := s.playbooks.Update(ctx, &result.Playbook); err != nil {
		return nil, fmt.Errorf("persisting refined playbook: %w", err)
	}

	slog.InfoContext(ctx, "refinement applied",
		"operations", len(ops),
		"applied", len(result.Applied),
		"skipped", len(result.Skipped))

	return &result, nil
}

func (s *playbookService) Activate(ctx context.Context, playbookID string, allowIncomplete bool) (*ActivationResult, error) {
	pb, err := s.Get(ctx, playbookID)
	if err != nil {
		return nil, err
	}
	if pb.Status == model.PlaybookStatusGenerating {
		return nil, ErrPlaybookNotReady
	}

	gaps := gap.Analyze(pb)
	verdict := validate.IsComplete(gaps, allowIncomplete)
	result := &ActivationResult{Validation: verdict}

	if !verdict.Complete {
		return result, ErrBlockingGaps
	}

	if err := s.playbooks.SetActive(ctx, playbookID, true); err != nil {
		return nil, fmt.Errorf("activating playbook: %w", err)
	}

	result.Activated = true
	slog.InfoContext(ctx, "playbook activated",
		"playbook_id", playbookID,
		"warnings", len(verdict.Warnings),
		"allow_incomplete", allowIncomplete)

	return result, nil
}
