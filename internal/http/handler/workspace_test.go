package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/sandbox/internal/http/handler"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/reconcile"
	"basegraph.app/sandbox/internal/schema"
	"basegraph.app/sandbox/internal/service"
	"basegraph.app/sandbox/internal/store"
)

var _ = Describe("WorkspaceHandler", func() {
	var (
		router *gin.Engine
		svc    *mockWorkspaceService
		ws     *model.Workspace
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockWorkspaceService{}
		h := handler.NewWorkspaceHandler(svc)
		router.POST("/workspace", h.Create)
		router.GET("/workspaces", h.List)
		router.GET("/workspace/:id", h.Get)
		router.PUT("/workspace/:id", h.Update)
		router.DELETE("/workspace/:id", h.Delete)
		router.POST("/workspace/:id/sync", h.Sync)

		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		ws = &model.Workspace{
			ID:        1855000000000000001,
			Name:      "Library",
			Namespace: "ws_1855000000000000001",
			Tables: []model.Table{{
				Name:    "books",
				Columns: []model.Column{{Name: "title", DataType: "TEXT"}},
				Rows:    []map[string]any{{"title": "Dune"}},
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}
	})

	Describe("Create", func() {
		It("returns 201 with the id encoded as a string", func() {
			svc.createFn = func(_ context.Context, name string) (*model.Workspace, error) {
				Expect(name).To(Equal("Library"))
				return ws, nil
			}

			w := perform(router, http.MethodPost, "/workspace", map[string]string{"name": "Library"})

			Expect(w.Code).To(Equal(http.StatusCreated))
			data := dataOf(w)
			Expect(data["id"]).To(Equal("1855000000000000001"))
			Expect(data["namespace"]).To(Equal("ws_1855000000000000001"))
			Expect(data["query_history"]).To(BeEmpty())
			tables := data["tables"].([]any)
			Expect(tables[0].(map[string]any)["row_count"]).To(BeEquivalentTo(1))
		})

		It("returns 400 when the name is missing", func() {
			w := perform(router, http.MethodPost, "/workspace", map[string]string{})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorOf(w)["type"]).To(Equal(handler.ErrorTypeInvalidRequest))
		})

		It("returns 400 with the validation messages", func() {
			svc.createFn = func(context.Context, string) (*model.Workspace, error) {
				return nil, schema.NewRequestError("Workspace name must be at most 100 characters")
			}

			w := perform(router, http.MethodPost, "/workspace", map[string]string{"name": "x"})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			body := errorOf(w)
			Expect(body["type"]).To(Equal(schema.KindValidation))
			Expect(body["stage"]).To(Equal("request"))
			Expect(body["errors"]).To(ConsistOf("Workspace name must be at most 100 characters"))
		})

		It("returns 500 when the service fails", func() {
			svc.createFn = func(context.Context, string) (*model.Workspace, error) {
				return nil, fmt.Errorf("creating namespace: %w", context.DeadlineExceeded)
			}

			w := perform(router, http.MethodPost, "/workspace", map[string]string{"name": "Library"})

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(errorOf(w)["type"]).To(Equal(handler.ErrorTypeInternal))
		})
	})

	Describe("Get", func() {
		It("rejects a malformed id without calling the service", func() {
			svc.getFn = func(context.Context, int64) (*service.WorkspaceDetails, error) {
				Fail("service must not be called")
				return nil, nil
			}

			w := perform(router, http.MethodGet, "/workspace/abc", nil)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown workspace", func() {
			svc.getFn = func(_ context.Context, id int64) (*service.WorkspaceDetails, error) {
				return nil, fmt.Errorf("loading workspace %d: %w", id, store.ErrNotFound)
			}

			w := perform(router, http.MethodGet, "/workspace/7", nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(errorOf(w)["type"]).To(Equal(handler.ErrorTypeWorkspaceNotFound))
		})

		It("includes the reconstruction report when tables were rebuilt", func() {
			svc.getFn = func(_ context.Context, id int64) (*service.WorkspaceDetails, error) {
				Expect(id).To(Equal(ws.ID))
				return &service.WorkspaceDetails{
					Workspace:      ws,
					PhysicalTables: []string{"books"},
					RecentQueries:  []model.QueryHistoryEntry{{Query: "SELECT 1", Status: model.QueryStatusSuccess}},
					Sync: &reconcile.SyncReport{
						Reconstructed:       true,
						ReconstructedTables: []reconcile.TableResult{{TableName: "books", ColumnCount: 1, RowCount: 1}},
						Errors:              []reconcile.TableFailure{},
						Summary:             reconcile.Summary{TotalTables: 1, SuccessfulTables: 1},
					},
				}, nil
			}

			w := perform(router, http.MethodGet, "/workspace/1855000000000000001", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			data := dataOf(w)
			sync := data["sync"].(map[string]any)
			Expect(sync["reconstructed"]).To(BeTrue())
			workspace := data["workspace"].(map[string]any)
			Expect(workspace["physical_tables"]).To(ConsistOf("books"))
			Expect(workspace["query_history"]).To(HaveLen(1))
		})

		It("answers a null sync report when nothing was rebuilt", func() {
			svc.getFn = func(context.Context, int64) (*service.WorkspaceDetails, error) {
				return &service.WorkspaceDetails{Workspace: ws}, nil
			}

			w := perform(router, http.MethodGet, "/workspace/1", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			data := dataOf(w)
			Expect(data).To(HaveKeyWithValue("sync", BeNil()))
		})
	})

	It("passes the limit to List", func() {
		svc.listFn = func(_ context.Context, limit int) ([]model.Workspace, error) {
			Expect(limit).To(Equal(5))
			return []model.Workspace{*ws}, nil
		}

		w := perform(router, http.MethodGet, "/workspaces?limit=5", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		resp := decode(w)
		items := resp["data"].([]any)
		Expect(items).To(HaveLen(1))
		Expect(items[0].(map[string]any)["table_count"]).To(BeEquivalentTo(1))
	})

	It("renames a workspace", func() {
		svc.updateFn = func(_ context.Context, id int64, name string) (*model.Workspace, error) {
			Expect(id).To(Equal(int64(9)))
			ws.Name = name
			return ws, nil
		}

		w := perform(router, http.MethodPut, "/workspace/9", map[string]string{"name": "Archive"})

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(dataOf(w)["name"]).To(Equal("Archive"))
	})

	It("deletes a workspace", func() {
		var deleted int64
		svc.deleteFn = func(_ context.Context, id int64) error {
			deleted = id
			return nil
		}

		w := perform(router, http.MethodDelete, "/workspace/9", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(deleted).To(Equal(int64(9)))
	})

	It("reports skipped tables after a sync", func() {
		svc.syncFn = func(context.Context, int64) (*service.SyncResult, error) {
			return &service.SyncResult{
				Workspace: ws,
				Skipped:   []reconcile.TableFailure{{TableName: "ghost", Kind: "ENGINE_ERROR", Errors: []string{"gone"}}},
			}, nil
		}

		w := perform(router, http.MethodPost, "/workspace/1/sync", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(dataOf(w)["skipped"]).To(HaveLen(1))
	})
})
