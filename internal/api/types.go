package api

import "github.com/sebastiankruger/fruitsort-simulator/internal/telemetry"

// StatusResponse is returned by GET /api/status
type StatusResponse struct {
	SimulatorName string              `json:"simulatorName"`
	Ready         bool                `json:"ready"`
	Snapshot      *telemetry.Snapshot `json:"snapshot,omitempty"`
	Panel         string              `json:"panel,omitempty"`
}

// StageInfo describes one stage of the table
type StageInfo struct {
	ID           int            `json:"id"`
	Next         int            `json:"next"`
	Halt         bool           `json:"halt"`
	Requirements map[string]int `json:"requirements"`
	DelaySeconds int            `json:"delaySeconds"`
}

// StagesResponse is returned by GET /api/stages
type StagesResponse struct {
	Path      string      `json:"path"`
	Declared  int         `json:"declared"`
	LoadedAt  string      `json:"loadedAt,omitempty"`
	LastError string      `json:"lastError,omitempty"`
	Stages    []StageInfo `json:"stages"`
}

// StagesUpdateRequest is used for POST /api/stages
type StagesUpdateRequest struct {
	Input string `json:"input"`
}

// StagesUpdateResponse is returned by POST /api/stages
type StagesUpdateResponse struct {
	Path    string `json:"path"`
	Written string `json:"written"`
}

// ConfigResponse is returned by GET /api/config
type ConfigResponse struct {
	ConveyorSpeed float64 `json:"conveyorSpeed"`
	TimeScale     float64 `json:"timeScale"`
}

// ConfigUpdateRequest is used for POST /api/config
type ConfigUpdateRequest struct {
	ConveyorSpeed *float64 `json:"conveyorSpeed,omitempty"`
	TimeScale     *float64 `json:"timeScale,omitempty"`
}
