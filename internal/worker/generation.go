package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"stitchflow.app/conductor/common/llm"
	"stitchflow.app/conductor/internal/model"
	"stitchflow.app/conductor/internal/queue"
	"stitchflow.app/conductor/internal/store"
	"stitchflow.app/conductor/internal/transform"
)

// GenerationProcessor turns a queued instruction into persisted plays: one
// completion call for the proposal, the response transformer for everything
// after. Failures surface as errors so the worker's retry/DLQ policy applies;
// non-retryable completion errors mark the playbook failed instead.
type GenerationProcessor struct {
	llm         llm.Client
	playbooks   store.PlaybookStore
	transformer *transform.ResponseTransformer
	schema      any
	maxTokens   int
	timeout     time.Duration
}

func NewGenerationProcessor(client llm.Client, playbooks store.PlaybookStore, maxTokens int, timeout time.Duration) *GenerationProcessor {
	if maxTokens <= 0 {
		maxTokens = 16384
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &GenerationProcessor{
		llm:         client,
		playbooks:   playbooks,
		transformer: transform.NewResponseTransformer(),
		schema:      llm.GenerateSchema[transform.Proposal](),
		maxTokens:   maxTokens,
		timeout:     timeout,
	}
}

func (p *GenerationProcessor) Process(ctx context.Context, msg queue.Message) error {
	pb, err := p.playbooks.GetByID(ctx, msg.PlaybookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted while queued. Ack and move on.
			slog.WarnContext(ctx, "playbook gone, dropping generation task")
			return nil
		}
		return fmt.Errorf("loading playbook: %w", err)
	}

	if pb.Status == model.PlaybookStatusDraft && len(pb.Plays) > 0 {
		// Redelivered after a successful run. Processing is idempotent at
		// this point: nothing to do.
		slog.InfoContext(ctx, "playbook already generated, skipping")
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.llm.Complete(callCtx, llm.Request{
		SystemPrompt: generationSystemPrompt,
		UserPrompt:   buildGenerationPrompt(msg.Instruction, pb.Name),
		SchemaName:   "play_proposal",
		Schema:       p.schema,
		MaxTokens:    p.maxTokens,
		Temperature:  llm.Temp(0.2),
	})
	if err != nil {
		if llm.IsRetryable(ctx, err) {
			return fmt.Errorf("proposal completion: %w", err)
		}
		return p.markFailed(ctx, pb.ID, fmt.Sprintf("completion failed: %v", err))
	}

	proposal, err := decodeProposal(resp.Content)
	if err != nil {
		slog.ErrorContext(ctx, "unusable proposal response",
			"error", err,
			"content_prefix", resp.Content[:min(len(resp.Content), 200)])
		return fmt.Errorf("decoding proposal: %w", err)
	}

	result := p.transformer.Transform(*proposal, pb.ID, msg.CreatedBy)

	now := time.Now().UTC()
	if result.Name != "" {
		pb.Name = result.Name
	}
	if result.Description != "" {
		pb.Description = result.Description
	}
	pb.Plays = result.Plays
	pb.Status = model.PlaybookStatusDraft
	pb.Issues = result.Issues
	pb.UpdatedAt = now

	if err := p.playbooks.Update(ctx, pb); err != nil {
		return fmt.Errorf("persisting generated playbook: %w", err)
	}

	slog.InfoContext(ctx, "playbook generated",
		"plays", len(result.Plays),
		"issues", len(result.Issues),
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens)

	return nil
}

func (p *GenerationProcessor) markFailed(ctx context.Context, playbookID, reason string) error {
	if err := p.playbooks.UpdateStatus(ctx, playbookID, model.PlaybookStatusFailed, []string{reason}); err != nil {
		return fmt.Errorf("marking playbook failed: %w", err)
	}
	slog.ErrorContext(ctx, "playbook generation failed terminally", "reason", reason)
	return nil
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// decodeProposal parses the first balanced top-level JSON object out of the
// completion response. Structured outputs make this a straight decode on the
// OpenAI path; the Anthropic path may wrap the object in fences or prose.
func decodeProposal(content string) (*transform.Proposal, error) {
	content = strings.TrimSpace(content)
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}

	start := strings.IndexByte(content, '{')
	if start < 0 {
		return nil, fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	end := -1
	for i := start; i < len(content); i++ {
		ch := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end > 0 {
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("unbalanced JSON object in response")
	}

	var proposal transform.Proposal
	if err := json.Unmarshal([]byte(content[start:end]), &proposal); err != nil {
		return nil, fmt.Errorf("decoding proposal JSON: %w", err)
	}
	if len(proposal.Plays) == 0 {
		return nil, fmt.Errorf("proposal contains no plays")
	}

	return &proposal, nil
}
