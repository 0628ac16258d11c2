// Package api exposes the viewer core over a small JSON HTTP API.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	json "github.com/goccy/go-json"

	"eve-data-hub/internal/config"
	"eve-data-hub/internal/esi"
	"eve-data-hub/internal/history"
	"eve-data-hub/internal/logger"
	"eve-data-hub/internal/region"
	"eve-data-hub/internal/viewer"
)

// Server is the HTTP API server that connects the viewer controller, the
// region resolver, and the market services.
type Server struct {
	cfg *config.Config
	esi *esi.Client

	mu       sync.RWMutex
	ready    bool
	ctrl     *viewer.Controller
	state    *viewer.State
	resolver *region.Resolver
	orders   *esi.OrderService
	history  *history.Service
}

// NewServer creates a Server with the given config and market API client.
// The viewer core is attached later via SetCore, once the static data has
// loaded; until then every data route answers 503.
func NewServer(cfg *config.Config, esiClient *esi.Client) *Server {
	return &Server{cfg: cfg, esi: esiClient}
}

// SetCore is called when the static data finishes loading and the viewer
// core has been wired.
func (s *Server) SetCore(
	ctrl *viewer.Controller,
	state *viewer.State,
	resolver *region.Resolver,
	orders *esi.OrderService,
	historyService *history.Service,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl = ctrl
	s.state = state
	s.resolver = resolver
	s.orders = orders
	s.history = historyService
	s.ready = true
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the HTTP handler with all API routes and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/regions", s.handleRegions)
	mux.HandleFunc("GET /api/region", s.handleGetRegion)
	mux.HandleFunc("PUT /api/region", s.handleSetRegion)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("PUT /api/view", s.handleSetView)
	mux.HandleFunc("POST /api/items/{typeID}/select", s.handleSelect)
	mux.HandleFunc("GET /api/items/{typeID}/orders", s.handleOrders)
	mux.HandleFunc("GET /api/items/{typeID}/history", s.handleHistory)
	mux.HandleFunc("GET /api/items/{typeID}/breadcrumb", s.handleBreadcrumb)
	mux.HandleFunc("GET /api/quickbar", s.handleGetQuickbar)
	mux.HandleFunc("POST /api/quickbar", s.handleAddQuickbar)
	mux.HandleFunc("DELETE /api/quickbar/{typeID}", s.handleRemoveQuickbar)
	mux.HandleFunc("POST /api/quickbar/clear", s.handleClearQuickbar)
	mux.HandleFunc("GET /api/quickbar/export", s.handleExportQuickbar)
	mux.HandleFunc("POST /api/quickbar/import", s.handleImportQuickbar)
	mux.HandleFunc("GET /api/ticker", s.handleTicker)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// requireReady answers 503 and returns false until SetCore has run.
func (s *Server) requireReady(w http.ResponseWriter) bool {
	if !s.isReady() {
		writeError(w, http.StatusServiceUnavailable, "static data still loading")
		return false
	}
	return true
}

// pathTypeID parses the {typeID} path segment. Zero means invalid; the
// handler has already answered.
func pathTypeID(w http.ResponseWriter, r *http.Request) int32 {
	n, err := strconv.ParseInt(r.PathValue("typeID"), 10, 32)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "invalid typeID")
		return 0
	}
	return int32(n)
}

// errStatus maps service errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, esi.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, esi.ErrResourceUnavailable), errors.Is(err, esi.ErrMalformedPayload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"ready":  s.isReady(),
		"esi":    s.esi.HealthCheck(r.Context()),
	})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	writeJSON(w, map[string]interface{}{
		"regions": s.resolver.Regions(),
	})
}

func (s *Server) handleGetRegion(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	writeJSON(w, s.resolver.Selected())
}

func (s *Server) handleSetRegion(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	var req struct {
		Region string `json:"region"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.resolver.SetRegion(req.Region)
	writeJSON(w, s.resolver.Selected())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	results := s.ctrl.Search(r.URL.Query().Get("q"))
	writeJSON(w, map[string]interface{}{
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	writeJSON(w, map[string]interface{}{
		"selectedItem": s.state.SelectedItem(),
		"activeView":   s.state.ActiveView(),
		"region":       s.resolver.Selected(),
		"quickbar":     s.state.Quickbar(),
	})
}

func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	var req struct {
		View string `json:"view"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	v := viewer.View(req.View)
	if v != viewer.ViewMarket && v != viewer.ViewHistory {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown view %q", req.View))
		return
	}
	s.ctrl.SetView(r.Context(), v)
	writeJSON(w, map[string]string{"activeView": req.View})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	typeID := pathTypeID(w, r)
	if typeID == 0 {
		return
	}
	s.ctrl.SelectItem(r.Context(), typeID)
	selected := s.state.SelectedItem()
	if selected == nil || selected.TypeID != typeID {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown item %d", typeID))
		return
	}
	writeJSON(w, map[string]interface{}{
		"selectedItem": selected,
		"activeView":   s.state.ActiveView(),
	})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	typeID := pathTypeID(w, r)
	if typeID == 0 {
		return
	}
	regionRef := r.URL.Query().Get("region")
	if regionRef == "" {
		regionRef = s.resolver.SelectedRef()
	}
	set, err := s.orders.FetchOrders(r.Context(), typeID, regionRef)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, set)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	typeID := pathTypeID(w, r)
	if typeID == 0 {
		return
	}
	regionRef := r.URL.Query().Get("region")
	if regionRef == "" {
		regionRef = s.resolver.SelectedRef()
	}
	points, err := s.history.Fetch(r.Context(), typeID, regionRef)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	// Optional start/end indices scope the stats to a chart slice.
	start, end := 0, len(points)
	if v := r.URL.Query().Get("start"); v != "" {
		start, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("end"); v != "" {
		end, _ = strconv.Atoi(v)
	}
	resp := map[string]interface{}{
		"points": points,
		"stats":  history.Stats(points, start, end),
	}
	if p := r.URL.Query().Get("ma"); p != "" {
		period, err := strconv.Atoi(p)
		if err != nil || period <= 0 {
			writeError(w, http.StatusBadRequest, "invalid ma period")
			return
		}
		resp["movingAverage"] = history.MovingAverage(points, period)
	}
	writeJSON(w, resp)
}

func (s *Server) handleBreadcrumb(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	typeID := pathTypeID(w, r)
	if typeID == 0 {
		return
	}
	writeJSON(w, map[string]interface{}{
		"typeID": typeID,
		"path":   s.ctrl.Breadcrumb(typeID),
	})
}

func (s *Server) handleGetQuickbar(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	writeJSON(w, map[string]interface{}{"items": s.state.Quickbar()})
}

func (s *Server) handleAddQuickbar(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	var req struct {
		TypeID int32 `json:"type_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TypeID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid type_id")
		return
	}
	added := s.ctrl.QuickbarAdd(req.TypeID)
	writeJSON(w, map[string]interface{}{
		"added": added,
		"items": s.state.Quickbar(),
	})
}

func (s *Server) handleRemoveQuickbar(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	typeID := pathTypeID(w, r)
	if typeID == 0 {
		return
	}
	removed := s.ctrl.QuickbarRemove(typeID)
	writeJSON(w, map[string]interface{}{
		"removed": removed,
		"items":   s.state.Quickbar(),
	})
}

func (s *Server) handleClearQuickbar(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	s.ctrl.QuickbarClear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportQuickbar(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, s.ctrl.QuickbarExport())
}

func (s *Server) handleImportQuickbar(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	added := s.ctrl.QuickbarImport(req.Text)
	logger.Info("API", fmt.Sprintf("Quickbar import added %d items", added))
	writeJSON(w, map[string]interface{}{
		"added": added,
		"items": s.state.Quickbar(),
	})
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w) {
		return
	}
	stats, err := s.ctrl.Ticker(r.Context(), s.cfg.TickerTypeID)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, stats)
}
