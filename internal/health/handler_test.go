package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleLive(t *testing.T) {
	h := NewHandler()
	rec := httptest.NewRecorder()
	h.HandleLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var st Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	require.Equal(t, "alive", st.Status)
}

func TestHandleReady(t *testing.T) {
	var stagesLoaded, opcuaUp atomic.Bool
	h := NewHandler()
	h.AddCheck("stage_table", stagesLoaded.Load)
	h.AddCheck("opcua_server", opcuaUp.Load)

	rec := httptest.NewRecorder()
	h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var st Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	require.Equal(t, "not_ready", st.Status)
	require.Equal(t, "not_ready", st.Checks["stage_table"])

	stagesLoaded.Store(true)
	opcuaUp.Store(true)
	rec = httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	require.Equal(t, "ready", st.Status)
	require.Equal(t, map[string]string{"stage_table": "healthy", "opcua_server": "healthy"}, st.Checks)
}
