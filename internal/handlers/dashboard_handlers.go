package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"

	"air-quality-platform/internal/models"
	"air-quality-platform/internal/services"
	"air-quality-platform/pkg/logging"
	"air-quality-platform/pkg/metrics"
)

// Query defaults
const (
	DefaultMeasure   = models.MeasurePM25
	DefaultCovariate = models.MeasureTemp
)

// DashboardHandler handles the air quality API endpoints
type DashboardHandler struct {
	service *services.DashboardService
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	clock   clockwork.Clock
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	service *services.DashboardService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	clock clockwork.Clock,
) *DashboardHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DashboardHandler{
		service: service,
		logger:  logger,
		metrics: metricsCollector,
		clock:   clock,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// StationsResponse lists the stations of the dataset
type StationsResponse struct {
	Stations []string `json:"stations"`
	Count    int      `json:"count"`
}

// RankingResponse is a station series ordered by mean
type RankingResponse struct {
	models.AggregateSeries
	Order models.SortOrder `json:"order"`
}

// CategoriesResponse is the category distribution of one measure
type CategoriesResponse struct {
	Measure    string                 `json:"measure"`
	Total      int                    `json:"total"`
	Categories []models.CategoryCount `json:"categories"`
}

// HealthResponse reports liveness and dataset state
type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  string                 `json:"timestamp"`
	Dataset    services.DatasetStatus `json:"dataset"`
	AgeSeconds float64                `json:"dataset_age_seconds,omitempty"`
}

// GetStations handles GET /api/stations
func (h *DashboardHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.service.Stations(r.Context())
	if err != nil {
		h.handleError(w, r, "[API_GET_STATIONS_ERROR] Failed to list stations", err)
		return
	}
	h.sendJSON(w, r, StationsResponse{Stations: stations, Count: len(stations)}, http.StatusOK)
}

// GetSummary handles GET /api/summary
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseFilter(q)
	if err != nil {
		h.handleError(w, r, "[API_GET_SUMMARY_ERROR] Invalid filter", err)
		return
	}

	summary, err := h.service.Summary(r.Context(), filter, param(q, "measure", DefaultMeasure))
	if err != nil {
		h.handleError(w, r, "[API_GET_SUMMARY_ERROR] Failed to compute summary", err)
		return
	}
	h.sendJSON(w, r, summary, http.StatusOK)
}

// GetAggregate handles GET /api/aggregates/{group}
func (h *DashboardHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	groupBy, err := models.ParseGroupBy(mux.Vars(r)["group"])
	if err != nil {
		h.handleError(w, r, "[API_GET_AGGREGATE_ERROR] Invalid group", err)
		return
	}
	filter, err := parseFilter(q)
	if err != nil {
		h.handleError(w, r, "[API_GET_AGGREGATE_ERROR] Invalid filter", err)
		return
	}

	series, err := h.service.Aggregate(r.Context(), filter, groupBy, param(q, "measure", DefaultMeasure))
	if err != nil {
		h.handleError(w, r, "[API_GET_AGGREGATE_ERROR] Failed to aggregate", err)
		return
	}
	h.sendJSON(w, r, series, http.StatusOK)
}

// GetRankings handles GET /api/rankings
func (h *DashboardHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order, err := models.ParseSortOrder(q.Get("order"))
	if err != nil {
		h.handleError(w, r, "[API_GET_RANKINGS_ERROR] Invalid order", err)
		return
	}
	filter, err := parseFilter(q)
	if err != nil {
		h.handleError(w, r, "[API_GET_RANKINGS_ERROR] Invalid filter", err)
		return
	}

	series, err := h.service.Ranking(r.Context(), filter, param(q, "measure", DefaultMeasure), order)
	if err != nil {
		h.handleError(w, r, "[API_GET_RANKINGS_ERROR] Failed to rank stations", err)
		return
	}
	h.sendJSON(w, r, RankingResponse{AggregateSeries: series, Order: order}, http.StatusOK)
}

// GetCategories handles GET /api/categories
func (h *DashboardHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseFilter(q)
	if err != nil {
		h.handleError(w, r, "[API_GET_CATEGORIES_ERROR] Invalid filter", err)
		return
	}

	measure := param(q, "measure", DefaultMeasure)
	counts, err := h.service.Distribution(r.Context(), filter, measure)
	if err != nil {
		h.handleError(w, r, "[API_GET_CATEGORIES_ERROR] Failed to categorize", err)
		return
	}

	total := 0
	for _, c := range counts {
		total += c.Count
	}
	h.sendJSON(w, r, CategoriesResponse{Measure: measure, Total: total, Categories: counts}, http.StatusOK)
}

// GetCorrelation handles GET /api/correlation
func (h *DashboardHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseFilter(q)
	if err != nil {
		h.handleError(w, r, "[API_GET_CORRELATION_ERROR] Invalid filter", err)
		return
	}

	corr, err := h.service.Correlation(r.Context(), filter, param(q, "x", DefaultCovariate), param(q, "y", DefaultMeasure))
	if err != nil {
		h.handleError(w, r, "[API_GET_CORRELATION_ERROR] Failed to correlate", err)
		return
	}
	h.sendJSON(w, r, corr, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *DashboardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now().UTC()
	status := HealthResponse{
		Status:    "healthy",
		Timestamp: now.Format(time.RFC3339),
		Dataset:   h.service.Status(),
	}
	if status.Dataset.Loaded {
		status.AgeSeconds = h.service.Age(now).Seconds()
	}

	h.logger.Debug(r.Context(), "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, r, status, http.StatusOK)
}

// handleError maps err to a status code, logs and responds
func (h *DashboardHandler) handleError(w http.ResponseWriter, r *http.Request, logMessage string, err error) {
	status, errorType := classify(err)

	fields := logging.Fields{"path": r.URL.Path, "status": status}
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), logMessage, fields, err)
	} else {
		h.logger.Warn(r.Context(), logMessage, fields)
	}

	endpoint := r.URL.Path
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, tmplErr := route.GetPathTemplate(); tmplErr == nil {
			endpoint = tmpl
		}
	}
	h.metrics.RecordAPIError(errorType, endpoint)

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	h.sendError(w, r, message, status)
}

func classify(err error) (int, string) {
	var validation *models.ValidationError
	var parse *models.ParseError
	var missing *models.MissingFileError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &parse):
		return http.StatusBadRequest, "parse_error"
	case errors.As(err, &missing):
		return http.StatusServiceUnavailable, "missing_dataset"
	}
	return http.StatusInternalServerError, "internal_error"
}

// sendJSON sends a JSON response
func (h *DashboardHandler) sendJSON(w http.ResponseWriter, r *http.Request, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn(r.Context(), "[API_ENCODE_ERROR] Failed to encode response", logging.Fields{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
	}
}

// sendError sends an error response
func (h *DashboardHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, r, response, statusCode)
}

// RegisterRoutes registers all dashboard API routes
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stations", h.GetStations).Methods("GET")
	api.HandleFunc("/summary", h.GetSummary).Methods("GET")
	api.HandleFunc("/aggregates/{group}", h.GetAggregate).Methods("GET")
	api.HandleFunc("/rankings", h.GetRankings).Methods("GET")
	api.HandleFunc("/categories", h.GetCategories).Methods("GET")
	api.HandleFunc("/correlation", h.GetCorrelation).Methods("GET")

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/docs/openapi.json", OpenAPISpec).Methods("GET")
}

// NewRouter builds the full HTTP router including /metrics
func NewRouter(h *DashboardHandler, metricsHandler http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestID, Instrument(h.logger, h.metrics, h.clock))
	h.RegisterRoutes(router)
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods("GET")
	}
	return router
}
