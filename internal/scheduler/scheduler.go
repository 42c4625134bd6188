// Package scheduler triggers the ingest pipeline on a cron expression.
package scheduler

import (
	"github.com/robfig/cron/v3"

	"mmnews/internal/logger"
)

type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// AddJob registers fn under a standard 5-field cron expression.
func (s *Scheduler) AddJob(spec string, fn func()) error {
	_, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return err
	}
	logger.Info("job scheduled", "cron", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
