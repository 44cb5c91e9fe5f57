package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, cfg RouterConfig) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}
	if !cfg.SwaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerLeagueRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/leagues", RequireAuth(verifier, http.HandlerFunc(handler.ListMyLeagues)))
	mux.Handle("PUT /v1/leagues/{leagueKey}", RequireAuth(verifier, http.HandlerFunc(handler.RegisterLeague)))
	mux.Handle("POST /v1/leagues/{leagueKey}/sync", RequireAuth(verifier, http.HandlerFunc(handler.SyncLeague)))
	mux.Handle("GET /v1/leagues/{leagueKey}/sync", RequireAuth(verifier, http.HandlerFunc(handler.GetSyncStatus)))
	mux.Handle("POST /v1/leagues/{leagueKey}/chat/open", RequireAuth(verifier, http.HandlerFunc(handler.OpenChat)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/sync-sweep", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSyncSweepJob)))
	mux.Handle("GET /v1/internal/sync/runs/{runID}", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.GetSyncRun)))
}
