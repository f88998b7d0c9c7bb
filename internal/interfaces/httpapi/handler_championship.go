package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/antonahmetgaliev/skf/internal/usecase"
)

func (h *Handler) ListChampionships(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListChampionships")
	defer span.End()

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be a positive integer", usecase.ErrInvalidInput))
			return
		}
		limit = parsed
	}

	items, err := h.standingsService.ListChampionships(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list championships failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetChampionship(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetChampionship")
	defer span.End()

	championshipID, err := pathChampionshipID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	details, err := h.standingsService.GetChampionship(ctx, championshipID)
	if err != nil {
		h.logger.WarnContext(ctx, "get championship failed", "championship_id", championshipID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, details)
}

func (h *Handler) GetChampionshipStandings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetChampionshipStandings")
	defer span.End()

	championshipID, err := pathChampionshipID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	data, err := h.standingsService.GetStandings(ctx, championshipID)
	if err != nil {
		h.logger.WarnContext(ctx, "get standings failed", "championship_id", championshipID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, data)
}

func (h *Handler) RefreshStandings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshStandings")
	defer span.End()

	var req refreshStandingsRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.refreshService.Refresh(ctx, usecase.RefreshInput{
		ChampionshipIDs: req.ChampionshipIDs,
		MaxWorkers:      req.MaxWorkers,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "refresh standings failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

type refreshStandingsRequest struct {
	ChampionshipIDs []int64 `json:"championshipIds" validate:"required,min=1,dive,gt=0"`
	MaxWorkers      int     `json:"maxWorkers" validate:"gte=0,lte=16"`
}

func pathChampionshipID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("championshipID"))
	championshipID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || championshipID <= 0 {
		return 0, fmt.Errorf("%w: championship id must be a positive integer", usecase.ErrInvalidInput)
	}
	return championshipID, nil
}
