package services

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// SweeperService runs the scheduled maintenance jobs: expired-session
// cleanup every hour and the dues reconciliation sweep daily. Readers
// never depend on the sweeps; lazy evaluation already hides stale
// state, the sweeps just persist it and write the audit trail.
type SweeperService struct {
	auth       *AuthService
	membership *MembershipService
	cron       *cron.Cron
}

// NewSweeperService creates a new sweeper service
func NewSweeperService(auth *AuthService, membership *MembershipService) *SweeperService {
	return &SweeperService{
		auth:       auth,
		membership: membership,
		cron:       cron.New(),
	}
}

// Start registers the jobs and launches the scheduler
func (s *SweeperService) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.sweepSessions); err != nil {
		return err
	}
	// Daily at 03:00 server time, off the traffic peak
	if _, err := s.cron.AddFunc("0 3 * * *", s.sweepDues); err != nil {
		return err
	}

	s.cron.Start()
	log.Println("🚀 SweeperService started")
	return nil
}

// Stop halts the scheduler, waiting for running jobs to finish
func (s *SweeperService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 SweeperService stopped")
}

func (s *SweeperService) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.auth.SweepSessions(ctx, time.Now()); err != nil {
		log.Printf("❌ Session sweep error: %v", err)
	}
}

func (s *SweeperService) sweepDues() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	now := time.Now()
	if _, err := s.membership.SweepExpired(ctx, now); err != nil {
		log.Printf("❌ Expiry sweep error: %v", err)
	}
	if _, err := s.membership.EscalateLapsed(ctx, now); err != nil {
		log.Printf("❌ Grace escalation error: %v", err)
	}
}

// RunDuesSweepNow triggers the dues sweep outside the schedule
func (s *SweeperService) RunDuesSweepNow(ctx context.Context) (int, int, error) {
	now := time.Now()
	expired, err := s.membership.SweepExpired(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	suspended, err := s.membership.EscalateLapsed(ctx, now)
	if err != nil {
		return expired, 0, err
	}
	return expired, suspended, nil
}
