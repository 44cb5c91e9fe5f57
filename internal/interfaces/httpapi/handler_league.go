package httpapi

import (
	"net/http"

	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
)

type registerLeagueRequest struct {
	Name   string `json:"name" validate:"omitempty,max=120"`
	Season string `json:"season" validate:"required,numeric,len=4"`
}

func (h *Handler) ListMyLeagues(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyLeagues")
	defer span.End()

	userID, err := requireUserID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.leagues.ListByOwner(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "list leagues failed", err, "user_id", userID)
		writeError(ctx, w, err)
		return
	}

	out := make([]leagueDTO, 0, len(items))
	for _, item := range items {
		out = append(out, leagueToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) RegisterLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RegisterLeague")
	defer span.End()

	userID, err := requireUserID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req registerLeagueRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueKey := r.PathValue("leagueKey")
	item, err := h.leagues.Register(ctx, userID, usecase.RegisterLeagueInput{
		LeagueKey: leagueKey,
		Name:      req.Name,
		Season:    req.Season,
	})
	if err != nil {
		h.logFailure(ctx, "register league failed", err, "league_key", leagueKey, "user_id", userID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leagueToDTO(item))
}
