package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/fruitsort-simulator/internal/config"
	"github.com/sebastiankruger/fruitsort-simulator/internal/stages"
	"github.com/sebastiankruger/fruitsort-simulator/internal/telemetry"
)

// StageSource exposes the stage file and the last table loaded from it
type StageSource interface {
	Path() string
	Table() *stages.Table
	LastError() error
	LoadedAt() time.Time
	MarkDirty()
}

// Handler handles REST API requests for the simulator
type Handler struct {
	simulatorName string
	store         *telemetry.Store
	stages        StageSource
	runtime       *config.RuntimeConfig
}

// NewHandler creates an API handler
func NewHandler(name string, store *telemetry.Store, source StageSource, rc *config.RuntimeConfig) *Handler {
	return &Handler{
		simulatorName: name,
		store:         store,
		stages:        source,
		runtime:       rc,
	}
}

// Register mounts the API routes on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.HandleStatus)
	mux.HandleFunc("/api/stages", h.HandleStages)
	mux.HandleFunc("/api/config", h.HandleConfig)
}

// HandleStatus handles GET /api/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := StatusResponse{SimulatorName: h.simulatorName}
	if snap, ok := h.store.Latest(); ok {
		resp.Ready = true
		resp.Snapshot = &snap
		resp.Panel = telemetry.RenderPanel(snap)
	}

	h.writeJSON(w, resp)
}

// HandleStages handles GET and POST /api/stages
func (h *Handler) HandleStages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleStagesGet(w, r)
	case http.MethodPost:
		h.handleStagesUpdate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleStagesGet(w http.ResponseWriter, r *http.Request) {
	table := h.stages.Table()
	if table == nil {
		http.Error(w, "Stage table not loaded", http.StatusServiceUnavailable)
		return
	}

	resp := StagesResponse{
		Path:     h.stages.Path(),
		Declared: table.Declared(),
		Stages:   make([]StageInfo, 0, table.Len()),
	}
	if t := h.stages.LoadedAt(); !t.IsZero() {
		resp.LoadedAt = t.UTC().Format(time.RFC3339)
	}
	if err := h.stages.LastError(); err != nil {
		resp.LastError = err.Error()
	}

	for _, st := range table.Stages() {
		info := StageInfo{
			ID:           st.ID,
			Next:         st.Next,
			Halt:         table.IsHalt(st.ID),
			Requirements: make(map[string]int, len(st.Requirements)),
			DelaySeconds: st.DelaySeconds,
		}
		for b, n := range st.Requirements {
			info.Requirements[string(b)] = n
		}
		resp.Stages = append(resp.Stages, info)
	}

	h.writeJSON(w, resp)
}

func (h *Handler) handleStagesUpdate(w http.ResponseWriter, r *http.Request) {
	var req StagesUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	written, err := stages.WriteFile(h.stages.Path(), req.Input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.stages.MarkDirty()

	log.Info().Str("path", h.stages.Path()).Str("stages", written).Msg("Stage file written via API")
	h.writeJSON(w, StagesUpdateResponse{Path: h.stages.Path(), Written: written})
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// HandleConfig handles GET and POST /api/config
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, h.configResponse())
	case http.MethodPost:
		h.handleConfigUpdate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	var req ConfigUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.runtime.Update(req.ConveyorSpeed, req.TimeScale); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, h.configResponse())
}

func (h *Handler) configResponse() ConfigResponse {
	snapshot := h.runtime.Snapshot()
	return ConfigResponse{
		ConveyorSpeed: snapshot.ConveyorSpeed,
		TimeScale:     snapshot.TimeScale,
	}
}
