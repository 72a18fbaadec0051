package http

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/noise-trust-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	maxBatchIDs  = 200
	maxBodyBytes = 64 << 10
)

func (s *Server) handleLocationNoise(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "location id is required")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.predictor.Predict(r.Context(), id))
}

func (s *Server) handleNoiseBatch(w http.ResponseWriter, r *http.Request) {
	ids := parseIDs(r.URL.Query().Get("ids"))
	switch {
	case len(ids) == 0:
		writeError(w, http.StatusBadRequest, "ids query parameter is required")
		return
	case len(ids) > maxBatchIDs:
		writeError(w, http.StatusBadRequest, "too many ids")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.predictor.PredictMany(r.Context(), ids))
}

func (s *Server) handleLocationMeasurements(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	ms, err := s.store.Measurements(r.Context(), id)
	if err != nil {
		s.logger.Error("list measurements failed", "location_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read measurements")
		return
	}
	if ms == nil {
		ms = []domain.Measurement{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, ms)
}

func (s *Server) handleCreateMeasurement(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	event, err := domain.ParseMeasurement(body, "", time.Time{})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.AppendBatch(r.Context(), []domain.MeasurementEvent{event}); err != nil {
		s.logger.Error("store measurement failed", "location_id", event.LocationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store measurement")
		return
	}

	s.logger.Info("measurement stored", "id", event.ID, "location_id", event.LocationID)
	sharedobs.WriteJSON(w, http.StatusCreated, event)
}

// parseIDs splits a comma-separated list, dropping blanks and duplicates
// while keeping first-seen order.
func parseIDs(raw string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
