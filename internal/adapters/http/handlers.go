package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jobrunner/atlas/internal/application"
	"github.com/jobrunner/atlas/internal/domain"
)

// maxBodyBytes limits request bodies of the mutating endpoints.
const maxBodyBytes = 1 << 20

// LayerUpdate is the body of a layer PATCH request.
type LayerUpdate struct {
	Alpha *float64 `json:"alpha"`
	Show  *bool    `json:"show"`
}

// LayerOrder is the body of a layer reorder request.
type LayerOrder struct {
	IDs []string `json:"ids"`
}

// SelectionRequest is the body of selection and click requests.
type SelectionRequest struct {
	IDs      []string `json:"ids"`
	Additive bool     `json:"additive"`
}

// ClusteringRequest is the body of a clustering update. Omitted fields keep
// their current value.
type ClusteringRequest struct {
	Enabled         *bool    `json:"enabled"`
	ThresholdMeters *float64 `json:"threshold_meters"`
}

// HoverRequest is the body of a hover event; an empty id clears the hover.
type HoverRequest struct {
	ID string `json:"id"`
}

// PointerRequest is a simulated pointer position.
type PointerRequest struct {
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Shift bool    `json:"shift"`
}

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":         boolToStatus(details.Healthy),
		"ready":          details.Ready,
		"engine_ready":   details.EngineReady,
		"active_results": details.ActiveResults,
		"layers_loaded":  details.LayersLoaded,
		"components":     details.Components,
		"render_error":   details.RenderError,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleScene returns the current scene snapshot.
func (s *Server) handleScene(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.scene.Snapshot())
}

// handleListLayers returns the imagery layers bottom to top.
func (s *Server) handleListLayers(w http.ResponseWriter, _ *http.Request) {
	layers := s.layers.List()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"layers": layers,
		"count":  len(layers),
	})
}

// handleUpdateLayer changes alpha and visibility of one layer.
func (s *Server) handleUpdateLayer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body LayerUpdate
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if body.Alpha == nil && body.Show == nil {
		s.writeError(w, http.StatusBadRequest, "alpha or show is required")
		return
	}

	if err := s.layers.Update(id, body.Alpha, body.Show); err != nil {
		s.handleServiceError(w, err)
		return
	}

	for _, l := range s.layers.List() {
		if l.ID == id {
			s.writeJSON(w, http.StatusOK, l)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "Layer not found")
}

// handleReorderLayers applies a new bottom-to-top layer order.
func (s *Server) handleReorderLayers(w http.ResponseWriter, r *http.Request) {
	var body LayerOrder
	if !s.decodeJSON(w, r, &body) {
		return
	}

	if err := s.layers.Reorder(body.IDs); err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.handleListLayers(w, r)
}

// handleSelect replaces or toggles the selection.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var body SelectionRequest
	if !s.decodeJSON(w, r, &body) {
		return
	}

	s.scene.Select(body.IDs, body.Additive)
	s.writeSelection(w)
}

// handleClearSelection deselects everything.
func (s *Server) handleClearSelection(w http.ResponseWriter, _ *http.Request) {
	s.scene.ClearSelection()
	s.writeSelection(w)
}

// handleClustering toggles clustering and changes its threshold.
func (s *Server) handleClustering(w http.ResponseWriter, r *http.Request) {
	var body ClusteringRequest
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if body.Enabled == nil && body.ThresholdMeters == nil {
		s.writeError(w, http.StatusBadRequest, "enabled or threshold_meters is required")
		return
	}

	if body.ThresholdMeters != nil {
		if err := s.scene.SetThreshold(r.Context(), *body.ThresholdMeters); err != nil {
			s.handleServiceError(w, err)
			return
		}
	}
	if body.Enabled != nil {
		if err := s.scene.SetClustering(r.Context(), *body.Enabled); err != nil {
			s.handleServiceError(w, err)
			return
		}
	}

	scene := s.scene.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":          scene.Clustering,
		"threshold_meters": scene.Threshold,
		"clusters":         len(scene.Clusters),
	})
}

// handleHoverEvent reports the result under the pointer.
func (s *Server) handleHoverEvent(w http.ResponseWriter, r *http.Request) {
	var body HoverRequest
	if !s.decodeJSON(w, r, &body) {
		return
	}

	s.scene.Hover(body.ID)
	w.WriteHeader(http.StatusNoContent)
}

// handleClickEvent handles a click on result ids as if it came from the engine.
func (s *Server) handleClickEvent(w http.ResponseWriter, r *http.Request) {
	var body SelectionRequest
	if !s.decodeJSON(w, r, &body) {
		return
	}

	s.scene.Click(body.IDs, body.Additive)
	s.writeSelection(w)
}

// handlePointerHover moves the simulated pointer.
func (s *Server) handlePointerHover(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodePointer(w, r)
	if !ok {
		return
	}

	s.opts.Pointer.Hover(body.Lon, body.Lat)
	w.WriteHeader(http.StatusNoContent)
}

// handlePointerClick clicks the simulated pointer at a position.
func (s *Server) handlePointerClick(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodePointer(w, r)
	if !ok {
		return
	}

	s.opts.Pointer.Click(body.Lon, body.Lat, body.Shift)
	s.writeSelection(w)
}

// handleReload reloads the result set.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	result, err := s.opts.Reload.TriggerReload(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrRateLimited) {
			w.Header().Set("Retry-After", "30")
			s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again in 30 seconds.")
			return
		}
		s.logger.Error("reload failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Reload failed")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := getOpenAPIJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// decodePointer reads and validates a pointer position.
func (s *Server) decodePointer(w http.ResponseWriter, r *http.Request) (PointerRequest, bool) {
	var body PointerRequest
	if !s.decodeJSON(w, r, &body) {
		return body, false
	}
	if err := domain.NewCoordinate(body.Lon, body.Lat).Validate(); err != nil {
		s.handleServiceError(w, err)
		return body, false
	}
	return body, true
}

// decodeJSON decodes a size-limited JSON body into v. It writes a 400 response
// and returns false on malformed input.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// writeSelection responds with the current selection.
func (s *Server) writeSelection(w http.ResponseWriter) {
	selected := s.scene.Snapshot().Selected
	if selected == nil {
		selected = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"selected": selected,
	})
}

// handleServiceError maps application errors to HTTP responses.
func (s *Server) handleServiceError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		s.writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupported):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrLayerNotFound):
		s.writeError(w, http.StatusNotFound, "Layer not found")
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
