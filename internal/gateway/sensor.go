package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/backend"
	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/thingspeak"
)

// DeviceKeyHeader carries a field device's API key on ingest.
const DeviceKeyHeader = "X-API-Key"

// deviceKeyValid reports whether key is the registered key of deviceID.
func deviceKeyValid(keys map[string]string, deviceID, key string) bool {
	want, ok := keys[deviceID]
	if !ok || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(key)) == 1
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if s.channel == nil {
		writeSensorError(w, http.StatusServiceUnavailable, "ThingSpeak is not configured")
		return
	}

	entry, err := s.channel.Trigger(r.Context())
	if err != nil {
		logging.Warn("Sensor trigger failed", zap.Error(err))
		writeSensorError(w, http.StatusBadGateway, "Failed to trigger sensor: "+err.Error())
		return
	}

	id, _ := strconv.Atoi(entry)
	logging.Info("Sensor triggered", zap.Int("entry_id", id))
	s.startWatch(id)

	writeJSON(w, http.StatusOK, sensorStatus{Status: "triggered", Response: entry})
}

// handleFetch returns the newest channel entry. Entries not seen before are
// stored and pushed to subscribers. Without a channel it answers from the
// store.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	if s.channel == nil {
		rec, err := s.store.Latest(r.Context(), "")
		if err != nil {
			if !errors.Is(err, sensor.ErrNoReadings) {
				logging.Error("Failed to read latest reading", zap.Error(err))
			}
			writeSensorError(w, http.StatusNotFound, "No sensor data available")
			return
		}
		ts := rec.Timestamp
		writeJSON(w, http.StatusOK, sensorStatus{
			Status:    "ok",
			Message:   "Data fetched from store",
			Data:      rec.Values,
			Timestamp: &ts,
		})
		return
	}

	feed, err := s.channel.LastFeed(r.Context())
	if errors.Is(err, sensor.ErrNoReadings) {
		writeSensorError(w, http.StatusNotFound, "No data found in ThingSpeak channel")
		return
	}
	if err != nil {
		logging.Warn("ThingSpeak fetch failed", zap.Error(err))
		writeSensorError(w, http.StatusBadGateway, "Error fetching ThingSpeak data: "+err.Error())
		return
	}

	s.recordFeed(r.Context(), feed)

	ts := feed.CreatedAt
	writeJSON(w, http.StatusOK, sensorStatus{
		Status:    "ok",
		Message:   "Data fetched from ThingSpeak",
		Data:      feed.Reading(),
		EntryID:   feed.EntryID,
		Timestamp: &ts,
	})
}

// recordFeed stores a channel entry newer than any seen so far and
// publishes it. It reports whether the entry was new.
func (s *Server) recordFeed(ctx context.Context, feed *thingspeak.Feed) bool {
	s.mu.Lock()
	if feed.EntryID <= s.lastEntry {
		s.mu.Unlock()
		return false
	}
	s.lastEntry = feed.EntryID
	s.mu.Unlock()

	at := feed.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	rec := sensor.NewRecord("", sensor.SourceThingSpeak, feed.Reading(), at)
	if err := s.store.Save(ctx, rec); err != nil {
		logging.Error("Failed to store channel entry", zap.Int("entry_id", feed.EntryID), zap.Error(err))
	}
	s.hub.Publish(rec)
	return true
}

// startWatch polls the channel in the background until an entry newer than
// the trigger's own entry shows up, so push subscribers hear about it
// without fetching. A new trigger replaces the running watch.
func (s *Server) startWatch(triggerEntry int) {
	s.mu.Lock()
	if s.watchCancel != nil {
		s.watchCancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.WatchTimeout)
	s.watchCancel = cancel
	if triggerEntry > s.lastEntry {
		// The trigger entry carries no measurement.
		s.lastEntry = triggerEntry
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.watch(ctx, triggerEntry)
	}()
}

func (s *Server) watch(ctx context.Context, after int) {
	ticker := time.NewTicker(s.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logging.Warn("No sensor reading after trigger", zap.Int("entry_id", after))
			}
			return
		case <-ticker.C:
		}

		feed, err := s.channel.LastFeed(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logging.Debug("Channel watch fetch failed", zap.Error(err))
			}
			continue
		}
		if feed.EntryID <= after {
			continue
		}
		if s.recordFeed(ctx, feed) {
			logging.Info("Sensor reading received", zap.Int("entry_id", feed.EntryID))
		}
		return
	}
}

func (s *Server) stopWatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
}

// ingestRequest is what a field device posts. Values may be numbers or
// numeric strings.
type ingestRequest struct {
	DeviceID    string          `json:"device_id"`
	Temperature *backend.Number `json:"temperature"`
	Humidity    *backend.Number `json:"humidity"`
	PH          *backend.Number `json:"ph"`
	EC          *backend.Number `json:"ec"`
	N           *backend.Number `json:"N"`
	P           *backend.Number `json:"P"`
	K           *backend.Number `json:"K"`
	Moisture    *backend.Number `json:"moisture"`
}

func numberOr(n *backend.Number, def float64) float64 {
	if n == nil || n.Raw == "" {
		return def
	}
	return n.Value
}

func present(n *backend.Number) bool {
	return n != nil && n.Raw != ""
}

// handleIngest accepts a reading pushed directly by a field device.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&req); err != nil {
		writeSensorError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	req.DeviceID = strings.TrimSpace(req.DeviceID)

	if len(s.env.DeviceKeys) > 0 {
		if req.DeviceID == "" {
			writeSensorError(w, http.StatusBadRequest, "Missing device_id")
			return
		}
		if !deviceKeyValid(s.env.DeviceKeys, req.DeviceID, r.Header.Get(DeviceKeyHeader)) {
			logging.Warn("Rejected device reading", zap.String("device_id", req.DeviceID))
			writeSensorError(w, http.StatusUnauthorized, "Unauthorized: Invalid API key for device_id")
			return
		}
	}

	if !present(req.Temperature) || !present(req.PH) || !present(req.Humidity) {
		writeSensorError(w, http.StatusBadRequest, "Missing required sensor fields")
		return
	}

	values := sensor.Reading{
		sensor.Temperature: req.Temperature.Value,
		sensor.Humidity:    req.Humidity.Value,
		sensor.PH:          req.PH.Value,
		sensor.EC:          numberOr(req.EC, sensor.DefaultEC),
		sensor.Nitrogen:    numberOr(req.N, 0),
		sensor.Phosphorus:  numberOr(req.P, 0),
		sensor.Potassium:   numberOr(req.K, 0),
		sensor.Moisture:    numberOr(req.Moisture, sensor.DefaultMoisture),
	}

	rec := sensor.NewRecord(req.DeviceID, sensor.SourceDevice, values, time.Now())
	if err := s.store.Save(r.Context(), rec); err != nil {
		logging.Error("Failed to store device reading", zap.String("device_id", req.DeviceID), zap.Error(err))
		writeSensorError(w, http.StatusInternalServerError, "Failed to store sensor data")
		return
	}
	s.hub.Publish(rec)

	logging.Info("Device reading stored",
		zap.String("device_id", req.DeviceID),
		zap.String("record_id", rec.ID),
	)
	writeJSON(w, http.StatusOK, sensorStatus{Status: "success", Message: "Sensor data received", Data: rec})
}
