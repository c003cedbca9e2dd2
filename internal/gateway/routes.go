package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/urls"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the ID assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.env.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get(urls.Health, s.handleHealth)
	r.Post(urls.Predict, s.handlePredict)

	r.Post(urls.SensorTrigger, s.handleTrigger)
	r.Get(urls.SensorFetch, s.handleFetch)
	r.Get(urls.SensorLatest, s.handleLatest)
	r.Get(urls.SensorHistory, s.handleHistory)
	r.Post(urls.SensorIngest, s.handleIngest)
	r.Get(urls.Weather, s.handleWeather)
	r.Handle(urls.SensorStream, s.hub)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.LogHTTPRequest(RequestID(r.Context()), r.RemoteAddr, r.Method, r.URL.Path, status, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to write response", zap.Error(err))
	}
}

// writeError answers with {"error": msg}, the shape every client checks.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sensorStatus is the {status, message, data} envelope of the sensor
// endpoints.
type sensorStatus struct {
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	Data      any        `json:"data,omitempty"`
	EntryID   int        `json:"entry_id,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Response  string     `json:"response,omitempty"`
}

func writeSensorError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, sensorStatus{Status: "error", Message: msg})
}
