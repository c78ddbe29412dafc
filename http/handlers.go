package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"forestcover/db"
	"forestcover/ml"
	"forestcover/monitoring"
)

const (
	metricPredictions   = "forestcover_predictions_total"
	metricCoverTypes    = "forestcover_predicted_cover_types_total"
	metricHistoryErrors = "forestcover_history_errors_total"
	metricCacheEntries  = "forestcover_cache_entries"

	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeError   = "error"

	routeForm = "form"
	routeAPI  = "api"
	routeLive = "live"
)

type handlers struct {
	predictor *ml.Predictor
	history   History
	metrics   *monitoring.MetricsCollector
	logger    *zap.Logger
	page      *page
	upgrader  websocket.Upgrader
}

func describeMetrics(mc *monitoring.MetricsCollector) {
	mc.Describe(metricPredictions, monitoring.MetricTypeCounter, "Predictions requested, by route and outcome.")
	mc.Describe(metricCoverTypes, monitoring.MetricTypeCounter, "Successful predictions, by cover type.")
	mc.Describe(metricHistoryErrors, monitoring.MetricTypeCounter, "Predictions that could not be written to history.")
	mc.Describe(metricCacheEntries, monitoring.MetricTypeGauge, "Predictions held in the cache.")
}

func (h *handlers) observe(route, outcome string, p *ml.Prediction) {
	h.metrics.IncrCounter(metricPredictions, map[string]string{"route": route, "outcome": outcome})
	if p != nil {
		h.metrics.IncrCounter(metricCoverTypes, map[string]string{"cover_type": p.CoverType})
	}
}

func (h *handlers) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /predict", h.handlePredictForm)
	mux.Handle("GET /static/", h.page.static)

	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/predict", h.handleAPIPredict)
	mux.HandleFunc("GET /api/schema", handleSchema)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("GET /api/predictions", h.handlePredictions)
	mux.HandleFunc("GET /metrics", h.handleMetrics)
}

type errorResponse struct {
	Error   string        `json:"error"`
	Details []fieldDetail `json:"details,omitempty"`
}

type fieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func details(errs []*ml.FieldError) []fieldDetail {
	out := make([]fieldDetail, 0, len(errs))
	for _, fe := range errs {
		out = append(out, fieldDetail{Field: fe.Field, Message: fe.Error()})
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already out; an encode failure only means the client went away.
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, errs []*ml.FieldError) {
	resp := errorResponse{Error: message}
	if len(errs) > 0 {
		resp.Details = details(errs)
	}
	respondJSON(w, status, resp)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, h.page.data(ml.DefaultInput(), nil, nil, nil))
}

func (h *handlers) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	if err := h.page.render(w, status, data); err != nil {
		h.logger.Error("render page failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// parseForm reads the submitted fields over the widget defaults. Values that
// are not numbers are reported as field errors.
func parseForm(r *http.Request) (ml.Input, []*ml.FieldError, error) {
	if err := r.ParseForm(); err != nil {
		return ml.Input{}, nil, err
	}
	in := ml.DefaultInput()
	var errs []*ml.FieldError

	names := make([]string, 0, ml.ContinuousCount+2)
	for _, f := range ml.ContinuousFields {
		names = append(names, f.Name)
	}
	names = append(names, ml.WildernessAreas.Name, ml.SoilTypes.Name)

	for _, name := range names {
		raw, ok := r.PostForm[name]
		if !ok || len(raw) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(raw[0], 64)
		if err != nil {
			errs = append(errs, &ml.FieldError{Field: name, Value: math.NaN(), Err: ml.ErrNotFinite})
			continue
		}
		var fe *ml.FieldError
		if err := in.SetField(name, v); errors.As(err, &fe) {
			errs = append(errs, fe)
		} else if err != nil {
			return ml.Input{}, nil, err
		}
	}
	return in, errs, nil
}

func (h *handlers) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	in, errs, err := parseForm(r)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.renderPage(w, r, status, h.page.data(ml.DefaultInput(), nil, nil, []string{"could not read form: " + err.Error()}))
		return
	}
	if len(errs) > 0 {
		h.observe(routeForm, outcomeInvalid, nil)
		h.renderPage(w, r, http.StatusBadRequest, h.page.data(in, nil, errs, nil))
		return
	}

	prediction, err := h.predictor.Predict(in)
	if fieldErrs := ml.FieldErrors(err); len(fieldErrs) > 0 {
		h.observe(routeForm, outcomeInvalid, nil)
		h.renderPage(w, r, http.StatusBadRequest, h.page.data(in, nil, fieldErrs, nil))
		return
	}
	if err != nil {
		h.observe(routeForm, outcomeError, nil)
		h.logger.Error("prediction failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		h.renderPage(w, r, http.StatusInternalServerError, h.page.data(in, nil, nil, []string{"prediction failed"}))
		return
	}

	h.observe(routeForm, outcomeOK, &prediction)
	h.record(r.Context(), in, prediction)
	h.renderPage(w, r, http.StatusOK, h.page.data(in, &prediction, nil, nil))
}

func (h *handlers) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	var in ml.Input
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), nil)
		return
	}

	prediction, err := h.predictor.Predict(in)
	if fieldErrs := ml.FieldErrors(err); len(fieldErrs) > 0 {
		h.observe(routeAPI, outcomeInvalid, nil)
		writeError(w, http.StatusBadRequest, "invalid input", fieldErrs)
		return
	}
	if err != nil {
		h.observe(routeAPI, outcomeError, nil)
		h.logger.Error("prediction failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "prediction failed", nil)
		return
	}

	h.observe(routeAPI, outcomeOK, &prediction)
	h.record(r.Context(), in, prediction)
	respondJSON(w, http.StatusOK, prediction)
}

// record appends a served prediction to history. Failures are logged only.
func (h *handlers) record(ctx context.Context, in ml.Input, p ml.Prediction) {
	if h.history == nil {
		return
	}
	if err := h.history.Save(ctx, db.NewRecord(in, p)); err != nil {
		h.metrics.IncrCounter(metricHistoryErrors, nil)
		h.logger.Warn("save prediction history failed", zap.String("request_id", GetRequestID(ctx)), zap.Error(err))
	}
}

type selectorSchema struct {
	ml.Selector
	Options []string `json:"options,omitempty"`
}

type schemaResponse struct {
	Fields         []ml.Field         `json:"fields"`
	WildernessArea selectorSchema     `json:"wilderness_area"`
	SoilType       selectorSchema     `json:"soil_type"`
	CoverTypes     []ml.CoverTypeInfo `json:"cover_types"`
	FeatureNames   []string           `json:"feature_names"`
}

func handleSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, schemaResponse{
		Fields:         ml.ContinuousFields[:],
		WildernessArea: selectorSchema{Selector: ml.WildernessAreas, Options: ml.WildernessOptions()},
		SoilType:       selectorSchema{Selector: ml.SoilTypes},
		CoverTypes:     ml.CoverTypes(),
		FeatureNames:   ml.FeatureNames(),
	})
}

func (h *handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.SetGauge(metricCacheEntries, float64(h.predictor.Info().CacheSize), nil)
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(h.metrics.ExportPrometheus()))
}

func (h *handlers) handleModel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.predictor.Info())
}

func (h *handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "prediction history is disabled", nil)
		return
	}

	limit := db.DefaultRecentLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", s), nil)
			return
		}
		limit = l
	}

	records, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("query prediction history failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history unavailable", nil)
		return
	}
	counts, err := h.history.CountByCoverType(r.Context())
	if err != nil {
		h.logger.Error("count prediction history failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history unavailable", nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": records,
		"count":       len(records),
		"by_cover":    counts,
	})
}
