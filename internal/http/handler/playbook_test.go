package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"stitchflow.app/conductor/internal/http/handler"
	"stitchflow.app/conductor/internal/http/middleware"
	"stitchflow.app/conductor/internal/model"
	"stitchflow.app/conductor/internal/service"
	"stitchflow.app/conductor/internal/transform"
	"stitchflow.app/conductor/internal/validate"
)

var _ = Describe("PlaybookHandler", func() {
	var (
		router      *gin.Engine
		svc         *mockPlaybookService
		adminAPIKey string
	)

	draftPlaybook := func() *model.Playbook {
		return &model.Playbook{
			ID:        "pb-1",
			Name:      "Fabric receiving",
			Status:    model.PlaybookStatusDraft,
			Plays:     []model.Play{},
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockPlaybookService{}
		adminAPIKey = "test-admin-key"
		h := handler.NewPlaybookHandler(svc, "X-Trace-Id")

		pb := router.Group("/api/v1/playbooks")
		pb.POST("", h.Generate)
		pb.GET("", h.List)
		pb.GET("/:id", h.Get)
		pb.GET("/:id/gaps", h.Gaps)
		pb.POST("/:id/questions", h.Questions)
		pb.POST("/:id/answers", h.Answers)
		pb.POST("/:id/refine", h.Refine)
		pb.POST("/:id/activate", h.Activate)

		admin := pb.Group("")
		admin.Use(middleware.RequireAdminAPIKey(adminAPIKey))
		{
			admin.DELETE("/:id", h.Delete)
		}
	})

	doJSON := func(method, path string, payload any) *httptest.ResponseRecorder {
		var body *bytes.Buffer
		if payload != nil {
			raw, err := json.Marshal(payload)
			Expect(err).NotTo(HaveOccurred())
			body = bytes.NewBuffer(raw)
		} else {
			body = bytes.NewBuffer(nil)
		}
		req := httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("Generate", func() {
		It("returns 202 with the generating draft", func() {
			svc.generateFn = func(_ context.Context, input service.GenerateInput) (*model.Playbook, error) {
				Expect(input.Instruction).To(Equal("inspect every fabric delivery"))
				pb := draftPlaybook()
				pb.Status = model.PlaybookStatusGenerating
				return pb, nil
			}

			w := doJSON(http.MethodPost, "/api/v1/playbooks", map[string]string{
				"name":        "Fabric receiving",
				"instruction": "inspect every fabric delivery",
			})

			Expect(w.Code).To(Equal(http.StatusAccepted))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["status"]).To(Equal("generating"))
			Expect(resp["plays"]).To(BeEmpty())
		})

		It("forwards the trace header into the generation request", func() {
			var seenTraceID string
			svc.generateFn = func(_ context.Context, input service.GenerateInput) (*model.Playbook, error) {
				seenTraceID = input.TraceID
				return draftPlaybook(), nil
			}

			body, err := json.Marshal(map[string]string{"instruction": "inspect every fabric delivery"})
			Expect(err).NotTo(HaveOccurred())
			req := httptest.NewRequest(http.MethodPost, "/api/v1/playbooks", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Trace-Id", "4bf92f3577b34da6a3ce929d0e0e4736")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			Expect(seenTraceID).To(Equal("4bf92f3577b34da6a3ce929d0e0e4736"))
		})

		It("returns 400 when the instruction is missing", func() {
			w := doJSON(http.MethodPost, "/api/v1/playbooks", map[string]string{
				"name": "Fabric receiving",
			})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Get", func() {
		It("returns the playbook", func() {
			svc.getFn = func(_ context.Context, id string) (*model.Playbook, error) {
				Expect(id).To(Equal("pb-1"))
				return draftPlaybook(), nil
			}

			w := doJSON(http.MethodGet, "/api/v1/playbooks/pb-1", nil)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["id"]).To(Equal("pb-1"))
		})

		It("surfaces generation issues on the playbook", func() {
			svc.getFn = func(_ context.Context, _ string) (*model.Playbook, error) {
				pb := draftPlaybook()
				pb.Issues = []string{`play "Inspect fabric": unknown trigger type "manual", defaulted to order_accepted`}
				return pb, nil
			}

			w := doJSON(http.MethodGet, "/api/v1/playbooks/pb-1", nil)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Issues []string `json:"issues"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Issues).To(HaveLen(1))
			Expect(resp.Issues[0]).To(ContainSubstring("unknown trigger type"))
		})

		It("returns 404 for an unknown playbook", func() {
			svc.getFn = func(_ context.Context, _ string) (*model.Playbook, error) {
				return nil, service.ErrPlaybookNotFound
			}

			w := doJSON(http.MethodGet, "/api/v1/playbooks/missing", nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("List", func() {
		It("returns playbook summaries", func() {
			svc.listFn = func(_ context.Context, _ int32) ([]model.Playbook, error) {
				return []model.Playbook{*draftPlaybook()}, nil
			}

			w := doJSON(http.MethodGet, "/api/v1/playbooks", nil)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Playbooks []map[string]any `json:"playbooks"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Playbooks).To(HaveLen(1))
			Expect(resp.Playbooks[0]["name"]).To(Equal("Fabric receiving"))
		})
	})

	Describe("Delete", func() {
		It("returns 204 with the admin API key", func() {
			deleted := ""
			svc.deleteFn = func(_ context.Context, id string) error {
				deleted = id
				return nil
			}

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/playbooks/pb-1", nil)
			req.Header.Set("X-Admin-API-Key", adminAPIKey)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(deleted).To(Equal("pb-1"))
		})

		It("returns 401 without the admin API key", func() {
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/playbooks/pb-1", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("Gaps", func() {
		It("groups gaps by severity and reports completeness", func() {
			svc.analyzeGapsFn = func(_ context.Context, _ string) ([]model.Gap, error) {
				return []model.Gap{
					{Type: model.GapMissingTeamID, Severity: model.GapSeverityCritical, Message: "play references a team by name"},
					{Type: model.GapShortTaskDescription, Severity: model.GapSeverityLow, Message: "task description is thin"},
				}, nil
			}

			w := doJSON(http.MethodGet, "/api/v1/playbooks/pb-1/gaps", nil)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Gaps     []model.Gap `json:"gaps"`
				Complete bool        `json:"complete"`
				Grouped  struct {
					Critical []model.Gap `json:"critical"`
					Low      []model.Gap `json:"low"`
				} `json:"grouped"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Gaps).To(HaveLen(2))
			Expect(resp.Complete).To(BeFalse())
			Expect(resp.Grouped.Critical).To(HaveLen(1))
			Expect(resp.Grouped.Low).To(HaveLen(1))
		})

		It("reports complete when only warnings remain", func() {
			svc.analyzeGapsFn = func(_ context.Context, _ string) ([]model.Gap, error) {
				return []model.Gap{
					{Type: model.GapShortTaskDescription, Severity: model.GapSeverityLow, Message: "task description is thin"},
				}, nil
			}

			w := doJSON(http.MethodGet, "/api/v1/playbooks/pb-1/gaps", nil)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Complete bool `json:"complete"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Complete).To(BeTrue())
		})
	})

	Describe("Questions", func() {
		It("returns generated questions", func() {
			svc.generateQuestionsFn = func(_ context.Context, _ string, instruction string) ([]model.EnrichmentQuestion, error) {
				Expect(instruction).To(Equal("focus on the receiving team"))
				return []model.EnrichmentQuestion{
					{ID: "q1", Question: "Which team handles receiving?", Type: model.QuestionFreeText, Required: true, Priority: 1},
				}, nil
			}

			w := doJSON(http.MethodPost, "/api/v1/playbooks/pb-1/questions", map[string]string{
				"instruction": "focus on the receiving team",
			})

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Questions []model.EnrichmentQuestion `json:"questions"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Questions).To(HaveLen(1))
			Expect(resp.Questions[0].ID).To(Equal("q1"))
		})

		It("returns 409 while the playbook is still generating", func() {
			svc.generateQuestionsFn = func(_ context.Context, _ string, _ string) ([]model.EnrichmentQuestion, error) {
				return nil, service.ErrPlaybookNotReady
			}

			w := doJSON(http.MethodPost, "/api/v1/playbooks/pb-1/questions", nil)

			Expect(w.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("Answers", func() {
		It("applies answers and returns remaining gaps", func() {
			svc.applyAnswersFn = func(_ context.Context, _ string, questions []model.EnrichmentQuestion, answers map[string]string) (*model.Playbook, []model.Gap, error) {
				Expect(questions).To(HaveLen(1))
				Expect(answers).To(HaveKeyWithValue("q1", "team-7"))
				return draftPlaybook(), []model.Gap{}, nil
			}

			w := doJSON(http.MethodPost, "/api/v1/playbooks/pb-1/answers", map[string]any{
				"questions": []model.EnrichmentQuestion{
					{ID: "q1", Question: "Which team handles receiving?", Type: model.QuestionFreeText, Field: "trigger.teamId"},
				},
				"answers": map[string]string{"q1": "team-7"},
			})

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Playbook      map[string]any `json:"playbook"`
				RemainingGaps []model.Gap    `json:"remaining_gaps"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Playbook["id"]).To(Equal("pb-1"))
			Expect(resp.RemainingGaps).To(BeEmpty())
		})

		It("returns 400 when questions are missing", func() {
			w := doJSON(http.MethodPost, "/api/v1/playbooks/pb-1/answers", map[string]any{
				"answers": map[string]string{"q1": "team-7"},
			})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Refine", func() {
		It("applies the operation batch", func() {
			svc.refineFn = func(_ context.Context, _ string, ops []transform.Operation, actor string) (*transform.RefinementResult, error) {
				Expect(ops).To(HaveLen(1))
				Expect(ops[0].Action).To(Equal(transform.OpRemove))
				Expect(actor).To(Equal("ops@stitchflow.app"))
				return &transform.RefinementResult{
					Playbook: *draftPlaybook(),
					Applied:  []transform.AppliedOperation{{Operation: ops[0], Change: "removed play play-2"}},
					Changes:  []string{"removed play play-2"},
				}, nil
			}

			w := doJSON(http.MethodPost, "/api/v1/playbooks/pb-1/refine", map[string]any{
				"operations": []map[string]any{
					{"action": "remove", "target": "play-2"},
				},
				"actor": "ops@stitchflow.app",
			})

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Applied []transform.AppliedOperation `json:"applied"`
				Changes []string                     `json:"changes"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Applied).To(HaveLen(1))
			Expect(resp.Changes).To(ContainElement("removed play play-2"))
		})

		It("returns 400 on an empty batch", func() {
			w := doJSON(http.MethodPost, "/api/v1/playbooks/pb-1/refine", map[string]any{
				"operations": []map[string]any{},
			})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Activate", func() {
		It("returns 200 when the playbook activates", func() {
			svc.activateFn = func(_ context.Context, _ string, allowIncomplete bool) (*service.ActivationResult, error) {
				Expect(allowIncomplete).To(BeFalse())
				return &service.ActivationResult{
					Activated:  true,
					Validation: validate.Result{Complete: true},
				}, nil
			}

			w := doJSON(http.MethodPost, "/api/v1/playbooks/pb-1/activate", nil)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Activated bool `json:"activated"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Activated).To(BeTrue())
		})

		It("returns 409 with the blocking gaps when incomplete", func() {
			svc.activateFn = func(_ context.Context, _ string, _ bool) (*service.ActivationResult, error) {
				return &service.ActivationResult{
					Validation: validate.Result{
						BlockingGaps: []model.Gap{
							{Type: model.GapMissingTeamID, Severity: model.GapSeverityCritical, Message: "play references a team by name"},
						},
					},
				}, service.ErrBlockingGaps
			}

			w := doJSON(http.MethodPost, "/api/v1/playbooks/pb-1/activate", nil)

			Expect(w.Code).To(Equal(http.StatusConflict))

			var resp struct {
				Activated    bool        `json:"activated"`
				BlockingGaps []model.Gap `json:"blocking_gaps"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Activated).To(BeFalse())
			Expect(resp.BlockingGaps).To(HaveLen(1))
		})
	})
})
