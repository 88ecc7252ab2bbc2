package report

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/fruitsort-simulator/internal/controller"
	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

// Sender delivers a stage report
type Sender interface {
	SendStageReport(ctx context.Context, r *StageReport) error
}

// Reporter implements controller.Observer. It captures the stage fill when
// quotas are met and sends a report once the stage completes: on entering
// the next stage or on halt.
type Reporter struct {
	sender Sender
	runID  string
	state  func() controller.State
	ctx    context.Context

	pending *StageReport
	wg      sync.WaitGroup
}

// NewReporter creates a reporter. state must be safe to call from the tick
// goroutine.
func NewReporter(ctx context.Context, sender Sender, runID string, state func() controller.State) *Reporter {
	return &Reporter{
		sender: sender,
		runID:  runID,
		state:  state,
		ctx:    ctx,
	}
}

// Observe handles controller events
func (r *Reporter) Observe(ev controller.Event) {
	switch ev.Kind {
	case controller.EventDelayArmed:
		r.pending = r.capture(ev)
	case controller.EventStageEntered:
		if r.pending != nil {
			r.send(r.pending)
			r.pending = nil
		}
	case controller.EventHalted:
		rep := r.pending
		if rep == nil || rep.Stage != ev.Stage {
			rep = r.capture(ev)
		}
		rep.Final = true
		rep.Reason = ev.Reason
		rep.SimTime = ev.At.Seconds()
		r.send(rep)
		r.pending = nil
	}
}

func (r *Reporter) capture(ev controller.Event) *StageReport {
	st := r.state()
	rep := &StageReport{
		ReportID:     uuid.NewString(),
		RunID:        r.runID,
		Stage:        ev.Stage,
		SimTime:      ev.At.Seconds(),
		Requirements: make(map[core.Bin]int, len(st.Requirements)),
		Fill:         st.Stage.Fill.Clone(),
		Deposits:     st.Counters.Deposits.Clone(),
		Rejects:      st.Counters.Rejects,
		Cycles:       st.Counters.CompletedCycles,
	}
	for b, n := range st.Requirements {
		rep.Requirements[b] = n
	}
	return rep
}

func (r *Reporter) send(rep *StageReport) {
	rep.Timestamp = time.Now()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.sender.SendStageReport(r.ctx, rep); err != nil {
			log.Error().Err(err).Int("stage", rep.Stage).Msg("Failed to send stage report")
		}
	}()
}

// Wait blocks until every report in flight has been sent
func (r *Reporter) Wait() {
	r.wg.Wait()
}
