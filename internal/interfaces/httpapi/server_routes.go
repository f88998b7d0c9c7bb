package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerChampionshipRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/championships", handler.ListChampionships)
	mux.HandleFunc("GET /v1/championships/{championshipID}", handler.GetChampionship)
	mux.HandleFunc("GET /v1/championships/{championshipID}/standings", handler.GetChampionshipStandings)
}

func registerBWPRoutes(mux *http.ServeMux, handler *Handler, adminToken string) {
	mux.HandleFunc("GET /v1/bwp/drivers", handler.ListBWPDrivers)
	mux.HandleFunc("GET /v1/bwp/penalty-rules", handler.ListBWPPenaltyRules)

	mux.Handle("POST /v1/bwp/drivers", RequireAdminToken(adminToken, http.HandlerFunc(handler.CreateBWPDriver)))
	mux.Handle("DELETE /v1/bwp/drivers/{driverID}", RequireAdminToken(adminToken, http.HandlerFunc(handler.DeleteBWPDriver)))
	mux.Handle("POST /v1/bwp/drivers/{driverID}/points", RequireAdminToken(adminToken, http.HandlerFunc(handler.AddBWPPoint)))
	mux.Handle("DELETE /v1/bwp/points/{pointID}", RequireAdminToken(adminToken, http.HandlerFunc(handler.DeleteBWPPoint)))

	mux.Handle("POST /v1/bwp/penalty-rules", RequireAdminToken(adminToken, http.HandlerFunc(handler.CreateBWPPenaltyRule)))
	mux.Handle("PUT /v1/bwp/penalty-rules/{ruleID}", RequireAdminToken(adminToken, http.HandlerFunc(handler.UpdateBWPPenaltyRule)))
	mux.Handle("DELETE /v1/bwp/penalty-rules/{ruleID}", RequireAdminToken(adminToken, http.HandlerFunc(handler.DeleteBWPPenaltyRule)))

	mux.Handle("PUT /v1/bwp/drivers/{driverID}/clearances/{ruleID}", RequireAdminToken(adminToken, http.HandlerFunc(handler.SetBWPClearance)))
	mux.Handle("DELETE /v1/bwp/drivers/{driverID}/clearances/{ruleID}", RequireAdminToken(adminToken, http.HandlerFunc(handler.DeleteBWPClearance)))
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, adminToken string) {
	mux.Handle("POST /v1/internal/standings/refresh", RequireAdminToken(adminToken, http.HandlerFunc(handler.RefreshStandings)))
}
