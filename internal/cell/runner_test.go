package cell

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebastiankruger/fruitsort-simulator/internal/config"
	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
	"github.com/sebastiankruger/fruitsort-simulator/internal/report"
)

func testConfig(t *testing.T, stagesText string) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fsa_message.json")
	require.NoError(t, os.WriteFile(path, []byte(stagesText), 0o644))
	return config.Config{
		SimulatorName:       "test-cell",
		StageFile:           path,
		Timestep:            32 * time.Millisecond,
		TimeScale:           1,
		Seed:                42,
		ConveyorSpeed:       0.15,
		ArmVelocity:         2,
		PickCooldownTicks:   8,
		DropCooldownTicks:   4,
		FeederStart:         0,
		FeederIntervalTicks: 120,
		FeederMaxPerType:    42,
		RottenRate:          0.1,
	}
}

func TestNewRunner_BadStageFile(t *testing.T) {
	cfg := testConfig(t, "2, (1,G1,1,O1,0)")
	_, err := NewRunner(cfg)
	require.Error(t, err)

	cfg.StageFile = filepath.Join(t.TempDir(), "missing")
	_, err = NewRunner(cfg)
	require.Error(t, err)
}

func TestRunner_StepPublishesSnapshot(t *testing.T) {
	r, err := NewRunner(testConfig(t, "1, (1,G1,1,O1,0)"))
	require.NoError(t, err)
	require.NoError(t, r.SetupOPCUA(0, "test-cell"))

	_, ok := r.Store().Latest()
	require.False(t, ok)

	r.Step()
	snap, ok := r.Store().Latest()
	require.True(t, ok)
	require.Equal(t, r.RunID(), snap.RunID)
	require.Equal(t, 1, snap.Stage)
	require.Equal(t, 1, snap.StageCount)
	require.Equal(t, "Waiting", snap.Step)
	require.Equal(t, uint64(1), snap.Ticks)

	v, ok := r.OPCUAServer().GetNamespaceValue(core.NamespaceCell, "CurrentStage")
	require.True(t, ok)
	require.Equal(t, int32(1), v)
}

func TestRunner_TickIntervalFollowsTimeScale(t *testing.T) {
	r, err := NewRunner(testConfig(t, "1, (1,G1,1,O1,0)"))
	require.NoError(t, err)
	require.Equal(t, 32*time.Millisecond, r.TickInterval())

	require.NoError(t, r.RuntimeConfig().SetTimeScale(4))
	require.Equal(t, 8*time.Millisecond, r.TickInterval())
}

func TestRunner_SortsToHaltAndReports(t *testing.T) {
	var (
		mu      sync.Mutex
		reports []report.StageReport
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var rep report.StageReport
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&rep))
		mu.Lock()
		reports = append(reports, rep)
		mu.Unlock()
	}))
	defer srv.Close()

	cfg := testConfig(t, "2, (1,G1,1,O1,0), (1,G2,1,O2,1)")
	cfg.ReportEndpoint = srv.URL
	cfg.ReportPath = "/reports"

	r, err := NewRunner(cfg)
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))

	for i := 0; i < 20000 && !r.Controller().Halted(); i++ {
		r.Step()
	}
	require.True(t, r.Controller().Halted())
	require.NoError(t, r.Stop(context.Background()))

	snap, ok := r.Store().Latest()
	require.True(t, ok)
	require.True(t, snap.Halted)
	require.Equal(t, 2, snap.Stage)
	for _, bs := range snap.Bins {
		require.GreaterOrEqual(t, bs.Total, 1, "bin %s", bs.Bin)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reports, 2)
	sort.Slice(reports, func(i, j int) bool { return reports[i].Stage < reports[j].Stage })
	require.Equal(t, 1, reports[0].Stage)
	require.False(t, reports[0].Final)
	require.Equal(t, 2, reports[1].Stage)
	require.True(t, reports[1].Final)
	require.Equal(t, r.RunID(), reports[1].RunID)
}
