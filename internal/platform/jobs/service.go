package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	JobNotifyDecision = "notify_decision"
	JobReplayPurge    = "sso_replay_purge"
)

// Recorder receives job outcome counters.
type Recorder interface {
	Inc(name string)
}

type Service struct {
	Metrics Recorder
	queue   chan job
	wg      sync.WaitGroup
}

type job struct {
	Type string
	Key  string
	Run  func(context.Context) (any, error)
}

func New(queueSize int, metrics Recorder) *Service {
	if queueSize <= 0 {
		queueSize = 128
	}
	return &Service{
		Metrics: metrics,
		queue:   make(chan job, queueSize),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
}

// Wait blocks until the worker and every scheduler have returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Enqueue hands work to the background worker. It never blocks; when the queue is
// full the job is dropped and false is returned.
func (s *Service) Enqueue(jobType, key string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, Key: key, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType, "key", key)
		s.inc("job_dropped")
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, key string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Key: key, Run: run})
}

// Every enqueues run on each tick until ctx is done.
func (s *Service) Every(ctx context.Context, jobType string, interval time.Duration, run func(context.Context) (any, error)) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Enqueue(jobType, "", run)
			}
		}
	}()
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "key", j.Key, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (details any, err error) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panicked", "jobType", j.Type, "key", j.Key, "panic", r)
			s.inc("job_failed")
			details, err = nil, errPanicked
		}
	}()

	details, err = j.Run(ctx)
	if err != nil {
		s.inc("job_failed")
		return details, err
	}
	s.inc("job_completed")
	slog.Debug("job completed", "jobType", j.Type, "key", j.Key, "duration", time.Since(started))
	return details, nil
}

func (s *Service) inc(name string) {
	if s.Metrics != nil {
		s.Metrics.Inc(name)
	}
}
