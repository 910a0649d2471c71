package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"stitchflow.app/conductor/common/id"
	"stitchflow.app/conductor/common/llm"
	"stitchflow.app/conductor/internal/model"
)

// QuestionGenerator turns gap lists into clarifying questions. The primary
// path asks the completion service; any failure there (network, timeout,
// unparseable response, empty array) falls back to a deterministic generator
// that needs no network call, so the pipeline can always make forward
// progress.
type QuestionGenerator struct {
	llm llm.Client
}

func NewQuestionGenerator(client llm.Client) *QuestionGenerator {
	return &QuestionGenerator{llm: client}
}

// rawQuestion is the completion-service response item shape.
type rawQuestion struct {
	Question  string   `json:"question"`
	Type      string   `json:"type"`
	PlayIndex *int     `json:"playIndex"`
	PlayTitle string   `json:"playTitle"`
	PlayID    string   `json:"playId"`
	Field     string   `json:"field"`
	Options   []string `json:"options,omitempty"`
	Required  bool     `json:"required"`
	Priority  int      `json:"priority"`
}

// Generate produces clarifying questions for the given gaps. It never
// returns an error: parse and transport failures degrade to the fallback
// generator. Callers bound the completion call with a context timeout.
func (g *QuestionGenerator) Generate(ctx context.Context, instruction string, pb *model.Playbook, gaps []model.Gap) []model.EnrichmentQuestion {
	if len(gaps) == 0 {
		return []model.EnrichmentQuestion{}
	}

	questions, err := g.generateViaCompletion(ctx, instruction, pb, gaps)
	if err != nil {
		slog.WarnContext(ctx, "question generation falling back to deterministic generator",
			"error", err,
			"gap_count", len(gaps))
		return FallbackQuestions(gaps)
	}
	return questions
}

func (g *QuestionGenerator) generateViaCompletion(ctx context.Context, instruction string, pb *model.Playbook, gaps []model.Gap) ([]model.EnrichmentQuestion, error) {
	if g.llm == nil {
		return nil, fmt.Errorf("no completion client configured")
	}

	resp, err := g.llm.Complete(ctx, llm.Request{
		SystemPrompt: questionSystemPrompt,
		UserPrompt:   buildQuestionPrompt(instruction, pb, gaps),
		MaxTokens:    2000,
		Temperature:  llm.Temp(0.3),
	})
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	body, err := extractJSONArray(resp.Content)
	if err != nil {
		return nil, err
	}

	var raw []rawQuestion
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("decoding questions: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("completion returned no questions")
	}

	questions := make([]model.EnrichmentQuestion, 0, len(raw))
	for _, r := range raw {
		if r.Question == "" {
			continue
		}
		qType := model.QuestionType(r.Type)
		if qType != model.QuestionChoice {
			qType = model.QuestionFreeText
		}
		questions = append(questions, model.EnrichmentQuestion{
			ID:        id.NewString(),
			Question:  r.Question,
			Type:      qType,
			PlayIndex: r.PlayIndex,
			PlayID:    r.PlayID,
			PlayTitle: r.PlayTitle,
			Field:     r.Field,
			Options:   r.Options,
			Required:  r.Required,
			Priority:  r.Priority,
		})
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("completion returned only empty questions")
	}

	return questions, nil
}

// FallbackQuestions emits one question per critical or high gap, using the
// gap's own suggestion verbatim when it has one. Deterministic and offline:
// this is the guarantee that blocking gaps always yield questions even with
// the completion service down.
func FallbackQuestions(gaps []model.Gap) []model.EnrichmentQuestion {
	questions := []model.EnrichmentQuestion{}
	for _, g := range gaps {
		if !g.Blocking() {
			continue
		}
		text := g.Suggestion
		if text == "" {
			text = fmt.Sprintf("%s. Can you provide the missing information?", g.Message)
		}
		priority := 1
		if g.Severity == model.GapSeverityHigh {
			priority = 2
		}
		questions = append(questions, model.EnrichmentQuestion{
			ID:        id.NewString(),
			Question:  text,
			Type:      model.QuestionFreeText,
			PlayIndex: g.PlayIndex,
			PlayID:    g.PlayID,
			PlayTitle: g.PlayTitle,
			Field:     g.Field,
			Required:  true,
			Priority:  priority,
		})
	}
	return questions
}
