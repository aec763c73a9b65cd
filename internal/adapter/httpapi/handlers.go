package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/couchcryptid/river-watch/internal/domain"
)

const defaultRadiusMiles = 10

var siteIDPattern = regexp.MustCompile(`^\d{8,15}$`)

// errorBody is the JSON error envelope returned for every failure.
type errorBody struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

type nearbyResponse struct {
	Rivers []domain.Station `json:"rivers"`
}

// parseLatLng validates the coordinate path segments, collecting one
// violation per bad field.
func parseLatLng(vars map[string]string) (float64, float64, []string) {
	var violations []string
	lat, err := strconv.ParseFloat(vars["lat"], 64)
	if err != nil {
		violations = append(violations, "lat must be a number")
	} else if lat < -90 || lat > 90 {
		violations = append(violations, "lat must be between -90 and 90")
	}
	lng, err := strconv.ParseFloat(vars["lng"], 64)
	if err != nil {
		violations = append(violations, "lng must be a number")
	} else if lng < -180 || lng > 180 {
		violations = append(violations, "lng must be between -180 and 180")
	}
	return lat, lng, violations
}

func (s *Server) handleNearbyRivers(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	lat, lng, violations := parseLatLng(vars)
	radius := float64(defaultRadiusMiles)
	if raw, ok := vars["radius"]; ok {
		var err error
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			violations = append(violations, "radius must be a number")
		}
	}
	if len(violations) > 0 {
		s.writeError(w, "nearby", domain.NewValidationError(violations...))
		return
	}

	stations, err := s.svc.NearbyRivers(r.Context(), lat, lng, radius)
	if err != nil {
		s.writeError(w, "nearby", err)
		return
	}
	if stations == nil {
		stations = []domain.Station{}
	}
	s.writeJSON(w, "nearby", http.StatusOK, nearbyResponse{Rivers: stations})
}

func (s *Server) handleFloodStage(w http.ResponseWriter, r *http.Request) {
	siteID := mux.Vars(r)["siteId"]
	if !siteIDPattern.MatchString(siteID) {
		s.writeError(w, "flood_stage", domain.NewValidationError("siteId must be 8-15 digits"))
		return
	}

	status, err := s.svc.FloodStage(r.Context(), siteID)
	if err != nil {
		s.writeError(w, "flood_stage", err)
		return
	}
	s.writeJSON(w, "flood_stage", http.StatusOK, status)
}

func (s *Server) handleCurrentWeather(w http.ResponseWriter, r *http.Request) {
	lat, lng, violations := parseLatLng(mux.Vars(r))
	if len(violations) > 0 {
		s.writeError(w, "weather", domain.NewValidationError(violations...))
		return
	}

	wx, err := s.svc.CurrentWeather(r.Context(), lat, lng)
	if err != nil {
		s.writeError(w, "weather", err)
		return
	}
	s.writeJSON(w, "weather", http.StatusOK, wx)
}

func (s *Server) writeJSON(w http.ResponseWriter, endpoint string, status int, body any) {
	s.metrics.RequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", "endpoint", endpoint, "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses and a machine
// readable code.
func (s *Server) writeError(w http.ResponseWriter, endpoint string, err error) {
	status := http.StatusInternalServerError
	outcome := "error"
	body := errorBody{Error: "internal error", Code: "internal"}

	var ve *domain.ValidationError
	var ue *domain.UpstreamError
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		outcome = "validation"
		body = errorBody{Error: "invalid request", Code: "validation_failed", Details: ve.Violations}
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
		outcome = "rate_limited"
		body = errorBody{Error: "rate limit exceeded, retry shortly", Code: "rate_limited"}
	case errors.Is(err, domain.ErrUpstreamTimeout):
		status = http.StatusRequestTimeout
		outcome = "timeout"
		body = errorBody{Error: "upstream request timed out", Code: "upstream_timeout"}
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		outcome = "not_found"
		body = errorBody{Error: "station not found", Code: "not_found"}
	case errors.As(err, &ue):
		status = http.StatusBadGateway
		outcome = "upstream"
		if ue.Retryable {
			body = errorBody{Error: "upstream provider unavailable", Code: "upstream_unavailable"}
		} else {
			body = errorBody{Error: "upstream provider rejected the request", Code: "upstream_rejected"}
		}
	default:
		s.logger.Error("request failed", "endpoint", endpoint, "error", err)
	}

	s.metrics.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
