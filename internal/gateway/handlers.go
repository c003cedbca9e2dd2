package gateway

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/urls"
	"github.com/terradetect/terradetect/internal/version"
	"github.com/terradetect/terradetect/internal/weather"
)

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	ThingSpeak  bool   `json:"thingspeak"`
	Weather     bool   `json:"weather"`
	Prediction  bool   `json:"prediction"`
	Subscribers int    `json:"subscribers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Version:     version.Version,
		ThingSpeak:  s.channel != nil,
		Weather:     s.env.WeatherAPIKey != "",
		Prediction:  s.env.PredictionURL != "",
		Subscribers: s.hub.Subscribers(),
	})
}

// handlePredict forwards the form's request to the prediction service
// untouched so its answer (including error bodies) reaches the form as is.
// PREDICTION_URL is the endpoint itself; a bare host gets /predict.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if s.env.PredictionURL == "" {
		writeError(w, http.StatusServiceUnavailable, "Prediction service not configured")
		return
	}
	target, err := url.Parse(s.env.PredictionURL)
	if err != nil {
		logging.Error("Invalid PREDICTION_URL", zap.String("url", s.env.PredictionURL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Prediction service misconfigured")
		return
	}

	if target.Path == "" || target.Path == "/" {
		target.Path = urls.Predict
	}

	start := time.Now()
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			out := *target
			pr.Out.URL = &out
			pr.Out.Host = ""
			pr.SetXForwarded()
		},
	}
	proxy.ModifyResponse = func(resp *http.Response) error {
		logging.LogUpstreamCall("prediction", r.Method, target.String(), resp.StatusCode, time.Since(start), nil)
		return nil
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logging.LogUpstreamCall("prediction", r.Method, target.String(), 0, time.Since(start), err)
		writeError(w, http.StatusBadGateway, "Prediction service unavailable")
	}
	proxy.ServeHTTP(w, r)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(q.Get("lat")), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(q.Get("lon")), 64)
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "lat and lon query parameters are required")
		return
	}
	at := weather.Coordinates{Latitude: lat, Longitude: lon}
	if err := at.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cond, err := s.weather.Current(r.Context(), at)
	switch {
	case errors.Is(err, weather.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "Weather service not configured")
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, cond)
	}
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Latest(r.Context(), r.URL.Query().Get("device_id"))
	if errors.Is(err, sensor.ErrNoReadings) {
		writeError(w, http.StatusNotFound, "No sensor data available")
		return
	}
	if err != nil {
		logging.Error("Failed to read latest reading", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to read sensor data")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleHistory pages through stored readings. Unparseable paging values
// fall back to the defaults.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		page = 1
	}
	perPage, err := strconv.Atoi(q.Get("per_page"))
	if err != nil {
		perPage = 10
	}

	out, err := s.store.History(r.Context(), q.Get("device_id"), page, perPage)
	if err != nil {
		logging.Error("Failed to read reading history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to read sensor data")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
