// Package scheduler runs the payout sweep on a cron schedule.
package scheduler

import (
	"context"
	"sync"
	"time"

	"happyinvest/internal/services/payout"

	"github.com/pkg/errors"
	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
)

// ErrSweepRunning is returned when a sweep is requested while one is in progress.
var ErrSweepRunning = errors.New("sweep already running")

// Sweeper is the part of the payout service the scheduler drives.
type Sweeper interface {
	RunSweep(ctx context.Context) (*payout.SweepResult, error)
}

type Scheduler struct {
	sweeper  Sweeper
	cron     *cron.Cron
	timeout  time.Duration
	running  sync.Mutex
	lastRun  *payout.SweepResult
	lastLock sync.RWMutex
}

// New builds a scheduler whose schedule is evaluated in loc. timeout bounds
// one sweep; zero means no bound.
func New(sweeper Sweeper, loc *time.Location, timeout time.Duration) *Scheduler {
	if sweeper == nil {
		panic("sweeper is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		sweeper: sweeper,
		cron:    cron.NewWithLocation(loc),
		timeout: timeout,
	}
}

// Start registers the sweep under schedule (six fields, seconds first) and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return errors.Wrapf(err, "invalid sweep schedule %q", schedule)
	}
	s.cron.Start()
	log.WithField("schedule", schedule).Info("payout sweep scheduled")
	return nil
}

// Stop halts the cron loop. A sweep already running finishes on its own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) tick() {
	if _, err := s.RunOnce(context.Background()); err != nil {
		log.WithError(err).Warn("scheduled sweep did not run")
	}
}

// RunOnce runs a sweep now. Overlapping runs are refused with ErrSweepRunning.
func (s *Scheduler) RunOnce(ctx context.Context) (*payout.SweepResult, error) {
	if !s.running.TryLock() {
		return nil, ErrSweepRunning
	}
	defer s.running.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.sweeper.RunSweep(ctx)
	if err != nil {
		return nil, err
	}

	s.lastLock.Lock()
	s.lastRun = result
	s.lastLock.Unlock()

	log.WithFields(log.Fields{
		"distributed": result.TotalDistributed.StringFixed(2),
		"users":       result.UsersPaid,
		"investments": result.InvestmentsPaid,
		"failures":    result.Failures,
		"duration":    result.Duration,
	}).Info("payout sweep finished")
	return result, nil
}

// LastRun returns the result of the most recent successful sweep, or nil.
func (s *Scheduler) LastRun() *payout.SweepResult {
	s.lastLock.RLock()
	defer s.lastLock.RUnlock()
	return s.lastRun
}
