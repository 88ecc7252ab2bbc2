package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sebastiankruger/fruitsort-simulator/internal/config"
	"github.com/sebastiankruger/fruitsort-simulator/internal/stages"
	"github.com/sebastiankruger/fruitsort-simulator/internal/telemetry"
)

func newTestHandler(t *testing.T) (*Handler, *telemetry.Store, *stages.Loader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fsa_message.json")
	require.NoError(t, os.WriteFile(path, []byte("2, (1,G1,1,O1,0), (2,G2,0,O2,3)"), 0o644))

	loader := stages.NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)

	store := telemetry.NewStore()
	rc := config.NewRuntimeConfig(&config.Config{ConveyorSpeed: 0.15, TimeScale: 1})
	return NewHandler("cell-1", store, loader, rc), store, loader
}

func serve(h *Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewReader(body)))
	return rec
}

func TestHandleStatus(t *testing.T) {
	h, store, _ := newTestHandler(t)

	rec := serve(h, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "cell-1", resp.SimulatorName)
	require.False(t, resp.Ready)
	require.Nil(t, resp.Snapshot)

	store.Publish(telemetry.Snapshot{Stage: 1, StageCount: 2, Step: "Waiting", Held: "None"})
	rec = serve(h, http.MethodGet, "/api/status", nil)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp.Ready)
	require.Equal(t, 1, resp.Snapshot.Stage)
	require.Contains(t, resp.Panel, "State: 1|3")

	rec = serve(h, http.MethodPost, "/api/status", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleStages_Get(t *testing.T) {
	h, _, loader := newTestHandler(t)

	rec := serve(h, http.MethodGet, "/api/stages", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StagesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, loader.Path(), resp.Path)
	require.Equal(t, 2, resp.Declared)
	require.Len(t, resp.Stages, 3)
	require.Equal(t, map[string]int{"bin_green2": 2, "bin_orange2": 0}, resp.Stages[1].Requirements)
	require.Equal(t, 3, resp.Stages[1].DelaySeconds)
	require.True(t, resp.Stages[2].Halt)
	require.Empty(t, resp.LastError)
}

func TestHandleStages_Post(t *testing.T) {
	h, _, loader := newTestHandler(t)

	body, _ := json.Marshal(StagesUpdateRequest{Input: " 1 , ( 3, g2 ,1,o1, 0)"})
	rec := serve(h, http.MethodPost, "/api/stages", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StagesUpdateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "1, (3,G2,1,O1,0)", resp.Written)

	table, changed, err := loader.Poll()
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 1, table.Declared())

	body, _ = json.Marshal(StagesUpdateRequest{Input: "2, (1,G1,1,O1,0)"})
	rec = serve(h, http.MethodPost, "/api/stages", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleConfig(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(h, http.MethodGet, "/api/config", nil)
	var cfg ConfigResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cfg))
	require.Equal(t, ConfigResponse{ConveyorSpeed: 0.15, TimeScale: 1}, cfg)

	rec = serve(h, http.MethodPost, "/api/config", []byte(`{"conveyorSpeed":0.3,"timeScale":4}`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cfg))
	require.Equal(t, ConfigResponse{ConveyorSpeed: 0.3, TimeScale: 4}, cfg)

	rec = serve(h, http.MethodPost, "/api/config", []byte(`{"conveyorSpeed":5}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// a bad value rejects the whole update
	rec = serve(h, http.MethodPost, "/api/config", []byte(`{"conveyorSpeed":0.5,"timeScale":100}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = serve(h, http.MethodGet, "/api/config", nil)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cfg))
	require.Equal(t, ConfigResponse{ConveyorSpeed: 0.3, TimeScale: 4}, cfg)

	rec = serve(h, http.MethodPost, "/api/config", []byte(`not json`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodOptions, "/api/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}
