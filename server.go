package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bsaid97/go-border-snapper/boundary"
	"github.com/bsaid97/go-border-snapper/country"
	"github.com/bsaid97/go-border-snapper/export"
	"github.com/bsaid97/go-border-snapper/handlers"
	"github.com/bsaid97/go-border-snapper/loader"
	"github.com/bsaid97/go-border-snapper/logger"
	"github.com/bsaid97/go-border-snapper/metrics"
	"github.com/bsaid97/go-border-snapper/pipeline"
	"github.com/bsaid97/go-border-snapper/utils"
)

const maxUploadBytes = 64 << 20

type server struct {
	runner *pipeline.Runner
}

func newRouter(runner *pipeline.Runner) http.Handler {
	s := &server{runner: runner}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/reconcile", s.reconcileHandler)
	r.Get("/export/{format}", s.exportHandler)
	r.Post("/reset", s.resetHandler)
	r.Post("/dissolve", dissolveHandler)
	r.Post("/check-geometry", checkGeometryHandler)
	r.Handle("/metrics", metrics.Handler())
	return r
}

type reconcileResponse struct {
	Result   json.RawMessage  `json:"result"`
	Report   handlers.Report  `json:"report"`
	Country  string           `json:"country"`
	Level    int              `json:"level"`
	Strategy country.Strategy `json:"strategy"`
	Cached   bool             `json:"cached"`
}

func (s *server) reconcileHandler(w http.ResponseWriter, r *http.Request) {
	form, err := utils.ReadMultiPartForm(r, "file", maxUploadBytes)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	req, err := reconcileRequest(form)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.runner.Run(r.Context(), req)
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	body, err := export.GeoJSON(result.Collection)
	if err != nil {
		sendError(w, http.StatusInternalServerError, err)
		return
	}
	sendJSON(w, http.StatusOK, reconcileResponse{
		Result:   body,
		Report:   result.Report,
		Country:  result.Key.Country,
		Level:    result.Key.Level,
		Strategy: result.Strategy,
		Cached:   result.Cached,
	})
}

// reconcileRequest maps form fields onto a pipeline request. Unset parameter
// fields keep their defaults.
func reconcileRequest(form utils.MultipartResult) (pipeline.Request, error) {
	req := pipeline.Request{
		Upload:      form.File,
		Country:     form.Values.String("country"),
		CountryCode: form.Values.String("country_code"),
		Release:     form.Values.String("release"),
		Params:      handlers.DefaultSnapParameters(),
	}

	var err error
	if name := form.Values.String("format"); name != "" {
		req.Format, err = loader.ParseFormat(name)
	} else {
		req.Format, err = loader.DetectFormat(form.Filename)
	}
	if err != nil {
		return req, err
	}
	if req.Level, err = form.Values.Int("level", 0); err != nil {
		return req, err
	}
	if req.Fidelity, err = boundary.ParseFidelity(form.Values.String("fidelity")); err != nil {
		return req, err
	}

	for key, dst := range map[string]*float64{
		"tolerance_m":      &req.Params.ToleranceM,
		"island_radius_m":  &req.Params.IslandRadiusM,
		"simplify_m":       &req.Params.SimplifyM,
		"precision_grid_m": &req.Params.PrecisionGridM,
		"search_radius_m":  &req.Params.SearchRadiusM,
	} {
		if err := form.Values.Float(key, dst); err != nil {
			return req, err
		}
	}
	if policy := form.Values.String("contiguity"); policy != "" {
		req.Params.Contiguity = handlers.ContiguityPolicy(policy)
	}
	return req, nil
}

func (s *server) exportHandler(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	result, ok := s.runner.Last()
	if !ok {
		sendError(w, http.StatusNotFound, errors.New("no result to export; run /reconcile first"))
		return
	}

	name := fmt.Sprintf("%s_adm%d", strings.ToLower(result.Key.Country), result.Key.Level)
	data, err := export.Write(format, result.Collection, name)
	if err != nil {
		sendError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+format.Extension()))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *server) resetHandler(w http.ResponseWriter, _ *http.Request) {
	s.runner.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// dissolveHandler merges a posted GeoJSON collection into one feature.
// precision_grid_m in the query quantizes the result.
func dissolveHandler(w http.ResponseWriter, r *http.Request) {
	fc, err := readGeoJSONBody(r)
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	precision := 0.0
	if v := r.URL.Query().Get("precision_grid_m"); v != "" {
		precision, err = strconv.ParseFloat(v, 64)
		if err != nil || precision < 0 {
			sendError(w, http.StatusBadRequest, fmt.Errorf("invalid precision_grid_m %q", v))
			return
		}
	}

	dissolved, err := handlers.Dissolve(fc, precision)
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	body, err := export.GeoJSON(dissolved)
	if err != nil {
		sendError(w, http.StatusInternalServerError, err)
		return
	}
	sendResponse(w, body)
}

type checkResponse struct {
	Errors   []handlers.ValidityError `json:"errors"`
	Coverage *handlers.CoverageReport `json:"coverage,omitempty"`
}

// checkGeometryHandler reports invalid features. coverage_tolerance_m in the
// query adds a gap and overlap check between features.
func checkGeometryHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	fc, err := loader.Load(body, loader.GeoJSON)
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}

	response := checkResponse{Errors: handlers.CheckGeometry(fc)}
	if response.Errors == nil {
		response.Errors = []handlers.ValidityError{}
	}
	if v := r.URL.Query().Get("coverage_tolerance_m"); v != "" {
		tolerance, err := strconv.ParseFloat(v, 64)
		if err != nil || tolerance < 0 {
			sendError(w, http.StatusBadRequest, fmt.Errorf("invalid coverage_tolerance_m %q", v))
			return
		}
		if fc.CRS == handlers.WGS84 {
			tolerance = utils.CalculateWGS84ToleranceFromMeters(tolerance)
		}
		coverage := handlers.CheckCoverage(fc, tolerance)
		response.Coverage = &coverage
	}
	sendJSON(w, http.StatusOK, response)
}

// readGeoJSONBody loads the request body as GeoJSON, keeps polygon features
// and brings them to WGS84.
func readGeoJSONBody(r *http.Request) (handlers.FeatureCollection, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		return handlers.FeatureCollection{}, err
	}
	fc, err := loader.Load(body, loader.GeoJSON)
	if err != nil {
		return fc, err
	}
	fc, err = handlers.PolygonFeatures(fc)
	if err != nil {
		return fc, err
	}
	if fc.CRS != handlers.WGS84 {
		fc, _ = handlers.ReprojectCollection(fc, handlers.WGS84)
	}
	return fc, nil
}

func statusFor(err error) int {
	switch pipeline.Class(err) {
	case "input":
		return http.StatusBadRequest
	case "resolution":
		return http.StatusUnprocessableEntity
	case "fetch":
		return http.StatusBadGateway
	case "cancelled":
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func sendResponse(w http.ResponseWriter, response []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(response)
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Warn("encode_response_failed", "err", err)
	}
}

func sendError(w http.ResponseWriter, status int, err error) {
	logger.L().Info("request_failed", "status", status, "err", err)
	sendJSON(w, status, map[string]string{"error": err.Error()})
}
