package httpapi

import (
	"net/http"

	"github.com/riskibarqy/fantasy-hoops/internal/domain/leaguesync"
	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
)

type syncLeagueRequest struct {
	Force bool `json:"force"`
}

type chatOpenResponse struct {
	LeagueKey     string `json:"league_key"`
	SyncTriggered bool   `json:"sync_triggered"`
}

func (h *Handler) SyncLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SyncLeague")
	defer span.End()

	userID, err := requireUserID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req syncLeagueRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueKey := r.PathValue("leagueKey")
	result, err := h.syncs.SyncLeague(ctx, usecase.SyncLeagueInput{
		LeagueKey: leagueKey,
		UserID:    userID,
		Trigger:   leaguesync.TriggerManual,
		Force:     req.Force,
	})
	if err != nil {
		h.logFailure(ctx, "sync league failed", err, "league_key", leagueKey, "force", req.Force)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSyncStatus")
	defer span.End()

	userID, err := requireUserID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueKey := r.PathValue("leagueKey")
	status, err := h.syncs.GetSyncStatus(ctx, leagueKey, userID)
	if err != nil {
		h.logFailure(ctx, "get sync status failed", err, "league_key", leagueKey)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, syncStatusToDTO(status))
}

// OpenChat is called when a user opens a league chat. It only schedules a
// background refresh, so the chat never waits on the providers.
func (h *Handler) OpenChat(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.OpenChat")
	defer span.End()

	userID, err := requireUserID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueKey := r.PathValue("leagueKey")
	triggered, err := h.syncs.TriggerBackgroundSync(ctx, leagueKey, userID)
	if err != nil {
		h.logFailure(ctx, "trigger background sync failed", err, "league_key", leagueKey)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusAccepted, chatOpenResponse{
		LeagueKey:     leagueKey,
		SyncTriggered: triggered,
	})
}
