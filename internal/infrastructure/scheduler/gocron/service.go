package scheduler

import (
	"fmt"
	"time"

	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/go-co-op/gocron"
)

type service struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	// a slow relay round must not pile up refreshes
	svc.SingletonModeAll()
	return &service{svc}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
}

func (s *service) ScheduleTask(interval time.Duration, immediate bool, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}

	job := s.scheduler.Every(interval)
	if !immediate {
		job = job.WaitForSchedule()
	}
	if _, err := job.Do(task); err != nil {
		return fmt.Errorf("failed to schedule task: %w", err)
	}
	return nil
}
