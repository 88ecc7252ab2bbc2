package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sebastiankruger/fruitsort-simulator/internal/controller"
	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
	"github.com/sebastiankruger/fruitsort-simulator/internal/telemetry"
)

func gatherValue(t *testing.T, reg *prom.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestRecorder_Observe(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewRecorder(reg)

	r.Observe(controller.Event{Kind: controller.EventDetection, Fruit: core.FruitApple})
	r.Observe(controller.Event{Kind: controller.EventDetection, Fruit: core.FruitApple})
	r.Observe(controller.Event{Kind: controller.EventDetection, Fruit: core.FruitOrange})
	r.Observe(controller.Event{Kind: controller.EventDeposit, Bin: core.BinGreen2})
	r.Observe(controller.Event{Kind: controller.EventReject})
	r.Observe(controller.Event{Kind: controller.EventStageEntered, Stage: 2})
	r.Observe(controller.Event{Kind: controller.EventReloadFailed, Reason: "bad"})
	r.Observe(controller.Event{Kind: controller.EventHalted})

	require.Equal(t, 2.0, gatherValue(t, reg, "fruitsort_detections_total", map[string]string{"fruit": "Apple"}))
	require.Equal(t, 1.0, gatherValue(t, reg, "fruitsort_detections_total", map[string]string{"fruit": "Orange"}))
	require.Equal(t, 1.0, gatherValue(t, reg, "fruitsort_deposits_total", map[string]string{"bin": "bin_green2"}))
	require.Equal(t, 1.0, gatherValue(t, reg, "fruitsort_rejects_total", nil))
	require.Equal(t, 1.0, gatherValue(t, reg, "fruitsort_stage_transitions_total", nil))
	require.Equal(t, 1.0, gatherValue(t, reg, "fruitsort_config_reload_failures_total", nil))
	require.Equal(t, 1.0, gatherValue(t, reg, "fruitsort_halts_total", nil))
}

func TestRecorder_Update(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewRecorder(reg)

	r.Update(telemetry.Snapshot{
		Stage:         3,
		ConveyorSpeed: 0.15,
		Halted:        true,
		Bins:          []telemetry.BinStatus{{Bin: core.BinOrange1, Filled: 2}},
	})

	require.Equal(t, 1.0, gatherValue(t, reg, "fruitsort_ticks_total", nil))
	require.Equal(t, 3.0, gatherValue(t, reg, "fruitsort_current_stage", nil))
	require.Equal(t, 0.15, gatherValue(t, reg, "fruitsort_conveyor_speed_mps", nil))
	require.Equal(t, 1.0, gatherValue(t, reg, "fruitsort_halted", nil))
	require.Equal(t, 2.0, gatherValue(t, reg, "fruitsort_stage_bin_fill", map[string]string{"bin": "bin_orange1"}))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	require.NotPanics(t, func() {
		r.Observe(controller.Event{Kind: controller.EventDeposit})
		r.Update(telemetry.Snapshot{})
	})
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewRecorder(reg)
	r.Observe(controller.Event{Kind: controller.EventReject})

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "fruitsort_rejects_total 1")
}
