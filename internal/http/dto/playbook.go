package dto

import (
	"time"

	"stitchflow.app/conductor/internal/model"
	"stitchflow.app/conductor/internal/transform"
)

type GeneratePlaybookRequest struct {
	Name        string `json:"name" binding:"max=255"`
	Instruction string `json:"instruction" binding:"required,min=1"`
	CreatedBy   string `json:"created_by" binding:"max=255"`
}

type PlaybookResponse struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Status      string       `json:"status"`
	Active      bool         `json:"active"`
	Plays       []model.Play `json:"plays"`
	Issues      []string     `json:"issues,omitempty"`
	CreatedBy   string       `json:"created_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func ToPlaybookResponse(pb *model.Playbook) *PlaybookResponse {
	plays := pb.Plays
	if plays == nil {
		plays = []model.Play{}
	}
	return &PlaybookResponse{
		ID:          pb.ID,
		Name:        pb.Name,
		Description: pb.Description,
		Status:      string(pb.Status),
		Active:      pb.Active,
		Plays:       plays,
		Issues:      pb.Issues,
		CreatedBy:   pb.CreatedBy,
		CreatedAt:   pb.CreatedAt,
		UpdatedAt:   pb.UpdatedAt,
	}
}

type ListPlaybooksResponse struct {
	Playbooks []PlaybookBrief `json:"playbooks"`
}

type PlaybookBrief struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func ToPlaybookBrief(pb model.Playbook) PlaybookBrief {
	return PlaybookBrief{
		ID:        pb.ID,
		Name:      pb.Name,
		Status:    string(pb.Status),
		Active:    pb.Active,
		CreatedAt: pb.CreatedAt,
	}
}

type GapsResponse struct {
	Gaps     []model.Gap `json:"gaps"`
	Complete bool        `json:"complete"`
	Grouped  GroupedGaps `json:"grouped"`
}

type GroupedGaps struct {
	Critical []model.Gap `json:"critical"`
	High     []model.Gap `json:"high"`
	Medium   []model.Gap `json:"medium"`
	Low      []model.Gap `json:"low"`
}

type GenerateQuestionsRequest struct {
	Instruction string `json:"instruction"`
}

type QuestionsResponse struct {
	Questions []model.EnrichmentQuestion `json:"questions"`
}

type ApplyAnswersRequest struct {
	Questions []model.EnrichmentQuestion `json:"questions" binding:"required,min=1"`
	Answers   map[string]string          `json:"answers" binding:"required"`
}

type ApplyAnswersResponse struct {
	Playbook      *PlaybookResponse `json:"playbook"`
	RemainingGaps []model.Gap       `json:"remaining_gaps"`
}

type RefineRequest struct {
	Operations []transform.Operation `json:"operations" binding:"required,min=1"`
	Actor      string                `json:"actor" binding:"max=255"`
}

type RefineResponse struct {
	Playbook *PlaybookResponse            `json:"playbook"`
	Applied  []transform.AppliedOperation `json:"applied"`
	Skipped  []transform.SkippedOperation `json:"skipped"`
	Changes  []string                     `json:"changes"`
}

type ActivateRequest struct {
	AllowIncomplete bool `json:"allow_incomplete"`
}

type ActivateResponse struct {
	Activated    bool        `json:"activated"`
	BlockingGaps []model.Gap `json:"blocking_gaps"`
	Warnings     []model.Gap `json:"warnings"`
}
