package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/antonahmetgaliev/skf/internal/domain/bwp"
	"github.com/antonahmetgaliev/skf/internal/usecase"
)

func (h *Handler) ListBWPDrivers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListBWPDrivers")
	defer span.End()

	drivers, err := h.bwpService.ListDrivers(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list bwp drivers failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]bwpDriverDTO, 0, len(drivers))
	for _, driver := range drivers {
		items = append(items, driverToDTO(driver))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) CreateBWPDriver(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateBWPDriver")
	defer span.End()

	var req createDriverRequest
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

	driver, err := h.bwpService.CreateDriver(ctx, req.Name)
	if err != nil {
		h.logger.WarnContext(ctx, "create bwp driver failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, driverToDTO(driver))
}

func (h *Handler) DeleteBWPDriver(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteBWPDriver")
	defer span.End()

	driverID := strings.TrimSpace(r.PathValue("driverID"))
	if err := h.bwpService.DeleteDriver(ctx, driverID); err != nil {
		h.logger.WarnContext(ctx, "delete bwp driver failed", "driver_id", driverID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"deleted": driverID})
}

func (h *Handler) AddBWPPoint(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AddBWPPoint")
	defer span.End()

	driverID := strings.TrimSpace(r.PathValue("driverID"))

	var req addPointRequest
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

	var issuedOn time.Time
	if strings.TrimSpace(req.IssuedOn) != "" {
		parsed, err := time.Parse(time.RFC3339, req.IssuedOn)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: issuedOn must be RFC3339: %v", usecase.ErrInvalidInput, err))
			return
		}
		issuedOn = parsed
	}

	point, err := h.bwpService.AddPoint(ctx, usecase.AddPointInput{
		DriverID: driverID,
		Points:   req.Points,
		IssuedOn: issuedOn,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "add bwp point failed", "driver_id", driverID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, pointToDTO(point))
}

func (h *Handler) DeleteBWPPoint(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteBWPPoint")
	defer span.End()

	pointID := strings.TrimSpace(r.PathValue("pointID"))
	if err := h.bwpService.DeletePoint(ctx, pointID); err != nil {
		h.logger.WarnContext(ctx, "delete bwp point failed", "point_id", pointID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"deleted": pointID})
}

func (h *Handler) ListBWPPenaltyRules(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListBWPPenaltyRules")
	defer span.End()

	rules, err := h.bwpService.ListPenaltyRules(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list penalty rules failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]penaltyRuleDTO, 0, len(rules))
	for _, rule := range rules {
		items = append(items, penaltyRuleToDTO(rule))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) CreateBWPPenaltyRule(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateBWPPenaltyRule")
	defer span.End()

	req, err := h.decodePenaltyRuleRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	rule, err := h.bwpService.CreatePenaltyRule(ctx, usecase.PenaltyRuleInput{
		Threshold: req.Threshold,
		Label:     req.Label,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create penalty rule failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, penaltyRuleToDTO(rule))
}

func (h *Handler) UpdateBWPPenaltyRule(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateBWPPenaltyRule")
	defer span.End()

	ruleID := strings.TrimSpace(r.PathValue("ruleID"))
	req, err := h.decodePenaltyRuleRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	rule, err := h.bwpService.UpdatePenaltyRule(ctx, ruleID, usecase.PenaltyRuleInput{
		Threshold: req.Threshold,
		Label:     req.Label,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update penalty rule failed", "rule_id", ruleID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, penaltyRuleToDTO(rule))
}

func (h *Handler) DeleteBWPPenaltyRule(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteBWPPenaltyRule")
	defer span.End()

	ruleID := strings.TrimSpace(r.PathValue("ruleID"))
	if err := h.bwpService.DeletePenaltyRule(ctx, ruleID); err != nil {
		h.logger.WarnContext(ctx, "delete penalty rule failed", "rule_id", ruleID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"deleted": ruleID})
}

func (h *Handler) SetBWPClearance(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetBWPClearance")
	defer span.End()

	driverID := strings.TrimSpace(r.PathValue("driverID"))
	ruleID := strings.TrimSpace(r.PathValue("ruleID"))

	clearance, err := h.bwpService.SetClearance(ctx, driverID, ruleID)
	if err != nil {
		h.logger.WarnContext(ctx, "set clearance failed", "driver_id", driverID, "rule_id", ruleID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, clearanceToDTO(clearance))
}

func (h *Handler) DeleteBWPClearance(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteBWPClearance")
	defer span.End()

	driverID := strings.TrimSpace(r.PathValue("driverID"))
	ruleID := strings.TrimSpace(r.PathValue("ruleID"))

	if err := h.bwpService.DeleteClearance(ctx, driverID, ruleID); err != nil {
		h.logger.WarnContext(ctx, "delete clearance failed", "driver_id", driverID, "rule_id", ruleID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"driverId": driverID, "ruleId": ruleID})
}

func (h *Handler) decodePenaltyRuleRequest(r *http.Request) (penaltyRuleRequest, error) {
	var req penaltyRuleRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return penaltyRuleRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	if err := h.validateRequest(r.Context(), req); err != nil {
		return penaltyRuleRequest{}, err
	}
	return req, nil
}

type createDriverRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type addPointRequest struct {
	Points   int    `json:"points" validate:"required,gt=0,lte=12"`
	IssuedOn string `json:"issuedOn"`
}

type penaltyRuleRequest struct {
	Threshold int    `json:"threshold" validate:"required,gt=0"`
	Label     string `json:"label" validate:"required,max=200"`
}

type bwpDriverDTO struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	CreatedAtUTC string            `json:"createdAtUtc"`
	ActivePoints int               `json:"activePoints"`
	Points       []bwpPointDTO     `json:"points"`
	Clearances   []bwpClearanceDTO `json:"clearances"`
}

type bwpPointDTO struct {
	ID        string `json:"id"`
	Points    int    `json:"points"`
	IssuedOn  string `json:"issuedOn"`
	ExpiresOn string `json:"expiresOn"`
	Expired   bool   `json:"expired"`
}

type penaltyRuleDTO struct {
	ID        string `json:"id"`
	Threshold int    `json:"threshold"`
	Label     string `json:"label"`
	SortOrder int    `json:"sortOrder"`
}

type bwpClearanceDTO struct {
	RuleID       string `json:"ruleId"`
	ClearedAtUTC string `json:"clearedAtUtc"`
}

func driverToDTO(driver bwp.Driver) bwpDriverDTO {
	now := time.Now().UTC()

	points := make([]bwpPointDTO, 0, len(driver.Points))
	active := 0
	for _, point := range driver.Points {
		expired := !point.ExpiresOn.After(now)
		if !expired {
			active += point.Points
		}
		points = append(points, bwpPointDTO{
			ID:        point.ID,
			Points:    point.Points,
			IssuedOn:  point.IssuedOn.UTC().Format(time.RFC3339),
			ExpiresOn: point.ExpiresOn.UTC().Format(time.RFC3339),
			Expired:   expired,
		})
	}

	clearances := make([]bwpClearanceDTO, 0, len(driver.Clearances))
	for _, clearance := range driver.Clearances {
		clearances = append(clearances, bwpClearanceDTO{
			RuleID:       clearance.PenaltyRuleID,
			ClearedAtUTC: clearance.ClearedAt.UTC().Format(time.RFC3339),
		})
	}

	return bwpDriverDTO{
		ID:           driver.ID,
		Name:         driver.Name,
		CreatedAtUTC: driver.CreatedAt.UTC().Format(time.RFC3339),
		ActivePoints: active,
		Points:       points,
		Clearances:   clearances,
	}
}

func pointToDTO(point bwp.Point) bwpPointDTO {
	return bwpPointDTO{
		ID:        point.ID,
		Points:    point.Points,
		IssuedOn:  point.IssuedOn.UTC().Format(time.RFC3339),
		ExpiresOn: point.ExpiresOn.UTC().Format(time.RFC3339),
	}
}

func penaltyRuleToDTO(rule bwp.PenaltyRule) penaltyRuleDTO {
	return penaltyRuleDTO{
		ID:        rule.ID,
		Threshold: rule.Threshold,
		Label:     rule.Label,
		SortOrder: rule.SortOrder,
	}
}

func clearanceToDTO(clearance bwp.Clearance) bwpClearanceDTO {
	return bwpClearanceDTO{
		RuleID:       clearance.PenaltyRuleID,
		ClearedAtUTC: clearance.ClearedAt.UTC().Format(time.RFC3339),
	}
}
