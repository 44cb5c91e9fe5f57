package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/league"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/leaguesync"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
)

const maxRequestBodyBytes = 64 << 10

type LeagueRegistry interface {
	ListByOwner(ctx context.Context, userID string) ([]league.League, error)
	Register(ctx context.Context, userID string, input usecase.RegisterLeagueInput) (league.League, error)
}

type LeagueSyncer interface {
	SyncLeague(ctx context.Context, input usecase.SyncLeagueInput) (usecase.SyncLeagueResult, error)
	TriggerBackgroundSync(ctx context.Context, leagueKey, userID string) (bool, error)
	GetSyncStatus(ctx context.Context, leagueKey, userID string) (usecase.SyncStatus, error)
	GetRun(ctx context.Context, runID string) (leaguesync.Run, error)
}

type SyncSweeper interface {
	Run(ctx context.Context) (usecase.SyncSweepResult, error)
}

type Handler struct {
	leagues   LeagueRegistry
	syncs     LeagueSyncer
	sweeper   SyncSweeper
	logger    *logging.Logger
	validator *validator.Validate
}

func NewHandler(leagues LeagueRegistry, syncs LeagueSyncer, sweeper SyncSweeper, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		leagues:   leagues,
		syncs:     syncs,
		sweeper:   sweeper,
		logger:    logger.Named("httpapi"),
		validator: validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeBody leaves dst untouched on an empty body.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := sonic.ConfigDefault.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON body: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func requireUserID(ctx context.Context) (string, error) {
	principal, ok := principalFromContext(ctx)
	if !ok || strings.TrimSpace(principal.UserID) == "" {
		return "", fmt.Errorf("%w: missing authenticated principal", usecase.ErrUnauthorized)
	}
	return principal.UserID, nil
}

// logFailure keeps client errors at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err)
	if mapError(err).HTTPStatus < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, args...)
		return
	}
	h.logger.ErrorContext(ctx, msg, args...)
}
