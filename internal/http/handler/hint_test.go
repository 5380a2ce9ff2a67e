package handler_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/sandbox/internal/http/handler"
	"basegraph.app/sandbox/internal/service"
)

var _ = Describe("HintHandler", func() {
	var (
		router *gin.Engine
		svc    *mockHintService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockHintService{}
		h := handler.NewHintHandler(svc)
		router.POST("/hint", h.Generate)
		router.POST("/hint/explain-error", h.ExplainError)
	})

	Describe("Generate", func() {
		It("parses the workspace id and returns the hint with its context", func() {
			svc.generateFn = func(_ context.Context, req service.HintRequest) (*service.Hint, error) {
				Expect(req.WorkspaceID).To(Equal(int64(1855000000000000001)))
				Expect(req.Intent).To(Equal("count users per city"))
				Expect(req.Error).To(BeNil())
				return &service.Hint{
					Text:            "Think about GROUP BY.",
					TablesUsed:      []string{"users"},
					TablesAvailable: []string{"users", "cities"},
					HasIntent:       true,
				}, nil
			}

			w := perform(router, http.MethodPost, "/hint", map[string]any{
				"workspace_id": "1855000000000000001",
				"intent":       "count users per city",
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			data := dataOf(w)
			Expect(data["hint"]).To(Equal("Think about GROUP BY."))
			ctx := data["context"].(map[string]any)
			Expect(ctx["tables_available"]).To(ConsistOf("users", "cities"))
			Expect(ctx["has_intent"]).To(BeTrue())
			Expect(ctx["is_error_hint"]).To(BeFalse())
		})

		It("forwards the error the student got", func() {
			svc.generateFn = func(_ context.Context, req service.HintRequest) (*service.Hint, error) {
				Expect(req.Error).To(Equal(&service.QueryErrorContext{Type: "SYNTAX_ERROR", Message: "Syntax error near 'FORM'"}))
				return &service.Hint{Text: "Check the keyword after the column list.", IsErrorHint: true}, nil
			}

			w := perform(router, http.MethodPost, "/hint", map[string]any{
				"workspace_id": "9",
				"query":        "SELECT * FORM users",
				"error":        map[string]string{"type": "SYNTAX_ERROR", "message": "Syntax error near 'FORM'"},
			})

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("returns 400 without a workspace id", func() {
			w := perform(router, http.MethodPost, "/hint", map[string]any{"intent": "x"})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 503 when hints are disabled", func() {
			svc.generateFn = func(context.Context, service.HintRequest) (*service.Hint, error) {
				return nil, service.ErrHintsDisabled
			}

			w := perform(router, http.MethodPost, "/hint", map[string]any{"workspace_id": "9", "intent": "x"})

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(errorOf(w)["type"]).To(Equal(handler.ErrorTypeHintsUnavailable))
		})

		It("returns 503 when the provider is overloaded", func() {
			svc.generateFn = func(context.Context, service.HintRequest) (*service.Hint, error) {
				return nil, fmt.Errorf("%w: 429 too many requests", service.ErrHintsUnavailable)
			}

			w := perform(router, http.MethodPost, "/hint", map[string]any{"workspace_id": "9", "intent": "x"})

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	It("explains an error", func() {
		svc.explainErrorFn = func(_ context.Context, id int64, query string, queryErr service.QueryErrorContext) (*service.Hint, error) {
			Expect(id).To(Equal(int64(9)))
			Expect(query).To(Equal("SELECT agee FROM users"))
			Expect(queryErr.Type).To(Equal("COLUMN_NOT_FOUND"))
			return &service.Hint{Text: "The column name looks misspelled.", IsErrorHint: true}, nil
		}

		w := perform(router, http.MethodPost, "/hint/explain-error", map[string]any{
			"workspace_id": "9",
			"query":        "SELECT agee FROM users",
			"error":        map[string]string{"type": "COLUMN_NOT_FOUND", "message": "Column 'agee' does not exist"},
		})

		Expect(w.Code).To(Equal(http.StatusOK))
		data := dataOf(w)
		Expect(data["explanation"]).To(Equal("The column name looks misspelled."))
		Expect(data["error_type"]).To(Equal("COLUMN_NOT_FOUND"))
		Expect(data["original_error"]).To(Equal("Column 'agee' does not exist"))
	})
})
