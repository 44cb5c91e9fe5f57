package httpapi

import "net/http"

func (h *Handler) RunSyncSweepJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSyncSweepJob")
	defer span.End()

	result, err := h.sweeper.Run(ctx)
	if err != nil {
		h.logFailure(ctx, "run sync sweep job failed", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) GetSyncRun(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSyncRun")
	defer span.End()

	runID := r.PathValue("runID")
	run, err := h.syncs.GetRun(ctx, runID)
	if err != nil {
		h.logFailure(ctx, "get sync run failed", err, "run_id", runID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, syncRunToDTO(run))
}
