package service

import (
	"basegraph.app/sandbox/common/llm"
	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/reconcile"
)

type Services struct {
	stores     StoreProvider
	engine     *engine.Engine
	reconciler *reconcile.Reconciler
	extractor  *reconcile.Extractor
	hintLLM    llm.Client
}

// NewServices wires the services over one engine. hintLLM may be nil when
// no provider is configured.
func NewServices(stores StoreProvider, eng *engine.Engine, hintLLM llm.Client) *Services {
	return &Services{
		stores:     stores,
		engine:     eng,
		reconciler: reconcile.NewReconciler(eng),
		extractor:  reconcile.NewExtractor(eng),
		hintLLM:    hintLLM,
	}
}

func (s *Services) Workspaces() WorkspaceService {
	return NewWorkspaceService(s.stores.Workspaces(), s.engine, s.reconciler, s.extractor)
}

func (s *Services) Tables() TableService {
	return NewTableService(s.stores.Workspaces(), s.engine, s.extractor)
}

func (s *Services) Queries() QueryService {
	return NewQueryService(s.stores.Workspaces(), s.engine, s.extractor)
}

func (s *Services) Hints() HintService {
	return NewHintService(s.stores.Workspaces(), s.hintLLM)
}
