package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// StatusJob periodically logs a summary of the latest snapshot
type StatusJob struct {
	scheduler gocron.Scheduler
	store     *Store
	interval  time.Duration
	jobID     string
}

// NewStatusJob creates a status job reading from store every interval
func NewStatusJob(store *Store, interval time.Duration) (*StatusJob, error) {
	if store == nil {
		return nil, errors.New("snapshot store is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("invalid status interval %s", interval)
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	job, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { LogStatus(store) }),
		gocron.WithName("cell-status"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create status job: %w", err)
	}

	return &StatusJob{
		scheduler: s,
		store:     store,
		interval:  interval,
		jobID:     job.ID().String(),
	}, nil
}

// ID returns the scheduler job id
func (j *StatusJob) ID() string { return j.jobID }

// Start begins the scheduler
func (j *StatusJob) Start() {
	log.Info().Dur("interval", j.interval).Msg("Starting status job")
	j.scheduler.Start()
}

// Stop shuts the scheduler down
func (j *StatusJob) Stop() error {
	return j.scheduler.Shutdown()
}

// LogStatus writes one summary line for the latest snapshot. It returns
// false when nothing has been published yet.
func LogStatus(store *Store) bool {
	snap, ok := store.Latest()
	if !ok {
		log.Debug().Msg("No snapshot published yet")
		return false
	}

	ev := log.Info().
		Str("run_id", snap.RunID).
		Dur("sim_time", snap.SimTime).
		Int("stage", snap.Stage).
		Int("stages", snap.StageCount).
		Str("step", snap.Step).
		Int("cycles", snap.CompletedCycles).
		Int("rejects", snap.Rejects).
		Float64("conveyor_speed", snap.ConveyorSpeed)
	for _, bs := range snap.Bins {
		ev = ev.Str(bs.Label, fmt.Sprintf("%d|%d", bs.Filled, bs.Required))
	}
	if snap.Halted {
		ev.Msg("Cell halted")
		return true
	}
	ev.Msg("Cell status")
	return true
}
