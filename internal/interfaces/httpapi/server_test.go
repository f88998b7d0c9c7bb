package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/antonahmetgaliev/skf/internal/domain/standings"
	"github.com/antonahmetgaliev/skf/internal/infrastructure/repository/memory"
	"github.com/antonahmetgaliev/skf/internal/platform/id"
	"github.com/antonahmetgaliev/skf/internal/platform/logging"
	"github.com/antonahmetgaliev/skf/internal/usecase"
)

const testAdminToken = "test-admin-token"

type fakeStandingsProvider struct {
	standingsErr error
}

func (p *fakeStandingsProvider) ListChampionships(_ context.Context, _ int) ([]standings.ChampionshipSummary, error) {
	return []standings.ChampionshipSummary{{ID: 42, Name: "SKF GT3 Sprint"}}, nil
}

func (p *fakeStandingsProvider) GetChampionship(_ context.Context, championshipID int64) (standings.ChampionshipDetails, error) {
	return standings.ChampionshipDetails{ID: championshipID, Name: "SKF GT3 Sprint"}, nil
}

func (p *fakeStandingsProvider) GetStandings(_ context.Context, _ int64) (standings.Data, error) {
	if p.standingsErr != nil {
		return standings.Data{}, p.standingsErr
	}
	pos := int64(1)
	return standings.Data{
		Entries: []standings.StandingEntry{
			{ID: 7, Position: &pos, DisplayName: "Mika Salo", Score: 42},
		},
		Races: []standings.StandingRace{{ID: 301, DisplayName: "Round 1"}},
	}, nil
}

func newTestRouter(t *testing.T, provider *fakeStandingsProvider) http.Handler {
	t.Helper()

	standingsSvc := usecase.NewStandingsService(provider, logging.NewNop(), usecase.StandingsServiceConfig{})
	bwpSvc := usecase.NewBWPService(memory.NewBWPRepository(), id.NewRandomGenerator(), 0)
	refreshSvc := usecase.NewRefreshService(standingsSvc, logging.NewNop())

	handler := NewHandler(standingsSvc, bwpSvc, refreshSvc, logging.NewNop())
	return NewRouter(handler, logging.NewNop(), []string{"*"}, testAdminToken)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestRouter_GetChampionshipStandings(t *testing.T) {
	router := newTestRouter(t, &fakeStandingsProvider{})

	req := httptest.NewRequest(http.MethodGet, "/v1/championships/42/standings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body["data"])
	}
	entries, ok := data["entries"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("expected one standings entry, got %v", data["entries"])
	}
}

func TestRouter_GetChampionshipStandings_BadID(t *testing.T) {
	router := newTestRouter(t, &fakeStandingsProvider{})

	req := httptest.NewRequest(http.MethodGet, "/v1/championships/nope/standings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_GetChampionshipStandings_UpstreamFailure(t *testing.T) {
	router := newTestRouter(t, &fakeStandingsProvider{
		standingsErr: errors.New("connection refused"),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/championships/42/standings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
}

func TestRouter_BWPDriverLifecycle(t *testing.T) {
	router := newTestRouter(t, &fakeStandingsProvider{})

	createReq := httptest.NewRequest(http.MethodPost, "/v1/bwp/drivers", strings.NewReader(`{"name":"Anton Virtanen"}`))
	createReq.Header.Set("X-Admin-Token", testAdminToken)
	createRec := httptest.NewRecorder()
	router.ServeHTTP(createRec, createReq)

	if createRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", createRec.Code, createRec.Body.String())
	}

	body := decodeEnvelope(t, createRec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body["data"])
	}
	driverID, _ := data["id"].(string)
	if driverID == "" {
		t.Fatal("expected generated driver id in response")
	}

	dupRec := httptest.NewRecorder()
	dupReq := httptest.NewRequest(http.MethodPost, "/v1/bwp/drivers", strings.NewReader(`{"name":"Anton Virtanen"}`))
	dupReq.Header.Set("X-Admin-Token", testAdminToken)
	router.ServeHTTP(dupRec, dupReq)
	if dupRec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for duplicate driver, got %d", dupRec.Code)
	}

	pointReq := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/v1/bwp/drivers/%s/points", driverID),
		strings.NewReader(`{"points":2}`))
	pointReq.Header.Set("X-Admin-Token", testAdminToken)
	pointRec := httptest.NewRecorder()
	router.ServeHTTP(pointRec, pointReq)
	if pointRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for point, got %d: %s", pointRec.Code, pointRec.Body.String())
	}

	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, httptest.NewRequest(http.MethodGet, "/v1/bwp/drivers", nil))
	if listRec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for list, got %d", listRec.Code)
	}
	listBody := decodeEnvelope(t, listRec)
	items, ok := listBody["data"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected one driver in list, got %v", listBody["data"])
	}

	deleteReq := httptest.NewRequest(http.MethodDelete, "/v1/bwp/drivers/"+driverID, nil)
	deleteReq.Header.Set("X-Admin-Token", testAdminToken)
	deleteRec := httptest.NewRecorder()
	router.ServeHTTP(deleteRec, deleteReq)
	if deleteRec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for delete, got %d", deleteRec.Code)
	}
}

func TestRouter_BWPMutationsRequireAdminToken(t *testing.T) {
	router := newTestRouter(t, &fakeStandingsProvider{})

	req := httptest.NewRequest(http.MethodPost, "/v1/bwp/drivers", strings.NewReader(`{"name":"Lea Koskinen"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without admin token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/bwp/drivers", strings.NewReader(`{"name":"Lea Koskinen"}`))
	req.Header.Set("X-Admin-Token", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 with wrong admin token, got %d", rec.Code)
	}
}

func TestRouter_RefreshStandings(t *testing.T) {
	router := newTestRouter(t, &fakeStandingsProvider{})

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/standings/refresh",
		strings.NewReader(`{"championshipIds":[42,43]}`))
	req.Header.Set("X-Admin-Token", testAdminToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body["data"])
	}
	if got, _ := data["success_count"].(float64); got != 2 {
		t.Fatalf("expected 2 successful refreshes, got %v", data["success_count"])
	}
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t, &fakeStandingsProvider{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}
