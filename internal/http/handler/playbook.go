package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"stitchflow.app/conductor/internal/gap"
	"stitchflow.app/conductor/internal/http/dto"
	"stitchflow.app/conductor/internal/model"
	"stitchflow.app/conductor/internal/service"
)

type PlaybookHandler struct {
	playbooks   service.PlaybookService
	traceHeader string
}

func NewPlaybookHandler(playbooks service.PlaybookService, traceHeader string) *PlaybookHandler {
	return &PlaybookHandler{playbooks: playbooks, traceHeader: traceHeader}
}

// Generate creates a draft playbook and kicks off background generation.
func (h *PlaybookHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GeneratePlaybookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: instruction is required"})
		return
	}

	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
	}

	pb, err := h.playbooks.Generate(ctx, service.GenerateInput{
		Name:        req.Name,
		Instruction: req.Instruction,
		CreatedBy:   req.CreatedBy,
		TraceID:     traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrMissingInstruction) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "instruction is required"})
			return
		}
		slog.ErrorContext(ctx, "failed to start playbook generation", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start generation"})
		return
	}

	c.JSON(http.StatusAccepted, dto.ToPlaybookResponse(pb))
}

func (h *PlaybookHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	pb, err := h.playbooks.Get(ctx, c.Param("id"))
	if err != nil {
		h.renderError(c, err, "failed to get playbook")
		return
	}

	c.JSON(http.StatusOK, dto.ToPlaybookResponse(pb))
}

func (h *PlaybookHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	playbooks, err := h.playbooks.List(ctx, 100)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list playbooks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list playbooks"})
		return
	}

	resp := dto.ListPlaybooksResponse{
		Playbooks: make([]dto.PlaybookBrief, len(playbooks)),
	}
	for i, pb := range playbooks {
		resp.Playbooks[i] = dto.ToPlaybookBrief(pb)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *PlaybookHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.playbooks.Delete(ctx, c.Param("id")); err != nil {
		h.renderError(c, err, "failed to delete playbook")
		return
	}

	c.Status(http.StatusNoContent)
}

// Gaps recomputes the gap analysis for the current playbook state.
func (h *PlaybookHandler) Gaps(c *gin.Context) {
	ctx := c.Request.Context()

	gaps, err := h.playbooks.AnalyzeGaps(ctx, c.Param("id"))
	if err != nil {
		h.renderError(c, err, "failed to analyze gaps")
		return
	}

	if gaps == nil {
		gaps = []model.Gap{}
	}
	grouped := gap.GroupBySeverity(gaps)
	complete := true
	for _, g := range gaps {
		if g.Blocking() {
			complete = false
			break
		}
	}

	c.JSON(http.StatusOK, dto.GapsResponse{
		Gaps:     gaps,
		Complete: complete,
		Grouped: dto.GroupedGaps{
			Critical: grouped[model.GapSeverityCritical],
			High:     grouped[model.GapSeverityHigh],
			Medium:   grouped[model.GapSeverityMedium],
			Low:      grouped[model.GapSeverityLow],
		},
	})
}

// Questions generates clarifying questions for the playbook's gaps.
func (h *PlaybookHandler) Questions(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateQuestionsRequest
	// Body is optional: an empty instruction just means no extra context.
	_ = c.ShouldBindJSON(&req)

	questions, err := h.playbooks.GenerateQuestions(ctx, c.Param("id"), req.Instruction)
	if err != nil {
		h.renderError(c, err, "failed to generate questions")
		return
	}

	c.JSON(http.StatusOK, dto.QuestionsResponse{Questions: questions})
}

// Answers applies a batch of question answers to the playbook.
func (h *PlaybookHandler) Answers(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ApplyAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: questions and answers are required"})
		return
	}

	pb, remaining, err := h.playbooks.ApplyAnswers(ctx, c.Param("id"), req.Questions, req.Answers)
	if err != nil {
		h.renderError(c, err, "failed to apply answers")
		return
	}

	if remaining == nil {
		remaining = []model.Gap{}
	}
	c.JSON(http.StatusOK, dto.ApplyAnswersResponse{
		Playbook:      dto.ToPlaybookResponse(pb),
		RemainingGaps: remaining,
	})
}

// Refine applies a structured add/edit/remove operation batch.
func (h *PlaybookHandler) Refine(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: operations are required"})
		return
	}

	result, err := h.playbooks.Refine(ctx, c.Param("id"), req.Operations, req.Actor)
	if err != nil {
		if errors.Is(err, service.ErrEmptyRefinementBatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "operations are required"})
			return
		}
		h.renderError(c, err, "failed to refine playbook")
		return
	}

	c.JSON(http.StatusOK, dto.RefineResponse{
		Playbook: dto.ToPlaybookResponse(&result.Playbook),
		Applied:  result.Applied,
		Skipped:  result.Skipped,
		Changes:  result.Changes,
	})
}

// Activate validates completeness and switches the playbook on.
func (h *PlaybookHandler) Activate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ActivateRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.playbooks.Activate(ctx, c.Param("id"), req.AllowIncomplete)
	if err != nil && !errors.Is(err, service.ErrBlockingGaps) {
		h.renderError(c, err, "failed to activate playbook")
		return
	}

	resp := dto.ActivateResponse{
		Activated:    result.Activated,
		BlockingGaps: result.Validation.BlockingGaps,
		Warnings:     result.Validation.Warnings,
	}

	status := http.StatusOK
	if !result.Activated {
		status = http.StatusConflict
	}
	c.JSON(status, resp)
}

func (h *PlaybookHandler) renderError(c *gin.Context, err error, msg string) {
	ctx := c.Request.Context()

	switch {
	case errors.Is(err, service.ErrPlaybookNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "playbook not found"})
	case errors.Is(err, service.ErrPlaybookNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": "playbook is still generating"})
	default:
		slog.ErrorContext(ctx, msg, "error", err, "playbook_id", c.Param("id"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
