package monitoring

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// CYCLE SCHEDULER & SESSIONS
// Runs one monitoring cycle immediately at startup, then on a fixed
// interval. The initial-immediate-check-then-ticker shape follows the
// teacher's HealthMonitor.monitorLoop; overlap suppression is added on top,
// and per-cycle fan-out is rewritten from a sequential per-node loop to one
// errgroup-joined goroutine per service.
// =============================================================================

// Dispatcher is the subset of the Auto-Detection Dispatcher the scheduler
// calls after persisting a degraded or down result.
type Dispatcher interface {
	AnalyzeSingle(ctx context.Context, serviceID string)
}

// Scheduler owns the probe/classify/persist pipeline for one registry and
// runs it on a fixed interval.
type Scheduler struct {
	registry   *Registry
	prober     *Prober
	repository *Repository
	dispatcher Dispatcher
	metrics    *Metrics
	log        *logrus.Logger

	running int32 // atomic: 1 while a cycle is in flight

	mu       sync.Mutex
	lastSess *MonitoringSession
}

// NewScheduler wires the components a cycle needs.
func NewScheduler(registry *Registry, prober *Prober, repository *Repository, dispatcher Dispatcher, metrics *Metrics, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		registry:   registry,
		prober:     prober,
		repository: repository,
		dispatcher: dispatcher,
		metrics:    metrics,
		log:        log,
	}
}

// Run starts the scheduler: one cycle immediately, then one every interval,
// until ctx is cancelled. Each cycle runs in its own goroutine so a tick
// arriving while the previous cycle is still in flight can be detected and
// skipped rather than buffered and run late. Blocks until ctx.Done() and the
// in-flight cycle unwinds.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	var wg sync.WaitGroup
	defer wg.Wait()

	s.startCycle(ctx, &wg)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
				s.metrics.CyclesSkipped.Inc()
				s.log.Warn("skipping cycle: previous cycle still running")
				continue
			}
			s.startCycle(ctx, &wg)
		}
	}
}

// startCycle marks a cycle in flight and runs it on its own goroutine,
// clearing the flag when it completes. The initial call from Run forces
// s.running to 1 directly since there is no prior tick to CAS against.
func (s *Scheduler) startCycle(ctx context.Context, wg *sync.WaitGroup) {
	atomic.StoreInt32(&s.running, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer atomic.StoreInt32(&s.running, 0)
		s.runCycle(ctx)
	}()
}

// TriggerManualProbe forces an out-of-cycle probe of one service,
// persisting its result the same way a scheduled cycle would. Supplemented
// feature: does not participate in overlap suppression against scheduled
// cycles.
func (s *Scheduler) TriggerManualProbe(ctx context.Context, serviceID string) (ProbeResult, error) {
	svc, ok := s.registry.Get(serviceID)
	if !ok {
		return ProbeResult{}, fmt.Errorf("service not found: %s", serviceID)
	}

	sessionID := newSessionID()
	result := s.prober.Probe(ctx, svc)
	result.SessionID = sessionID

	s.persistAndDispatch(ctx, result)
	return result, nil
}

// runCycle performs one probe/classify/persist pass over the registry.
// Overlap suppression (the running flag) is owned by the caller (Run via
// startCycle), not by runCycle itself.
func (s *Scheduler) runCycle(ctx context.Context) {
	s.metrics.CyclesTotal.Inc()

	services := s.registry.Load()
	sessionID := newSessionID()
	started := time.Now().UTC()

	results := make([]ProbeResult, len(services))

	g, gctx := errgroup.WithContext(ctx)
	for i, svc := range services {
		i, svc := i, svc
		g.Go(func() error {
			start := time.Now()
			result := s.prober.Probe(gctx, svc)
			result.SessionID = sessionID
			results[i] = result

			s.metrics.ProbeDuration.WithLabelValues(svc.ID).Observe(time.Since(start).Seconds())
			s.metrics.ProbesTotal.WithLabelValues(svc.ID, string(result.Status)).Inc()

			s.persistAndDispatch(ctx, result)
			return nil
		})
	}

	// Every task recovers its own errors internally (Persistence errors are
	// WARN-logged, not propagated); g.Wait() never returns an error from a
	// well-behaved task, but is still awaited to join the fan-out.
	_ = g.Wait()

	ended := time.Now().UTC()
	session := &MonitoringSession{
		ID:        sessionID,
		StartedAt: started,
		EndedAt:   ended,
		Results:   results,
	}

	s.mu.Lock()
	s.lastSess = session
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"services":   len(services),
		"duration":   ended.Sub(started),
	}).Info("monitoring cycle complete")
}

func (s *Scheduler) persistAndDispatch(ctx context.Context, result ProbeResult) {
	errorType, bucket := Classify(result)

	if err := s.repository.PersistResult(ctx, result, errorType, bucket); err != nil {
		s.metrics.PersistenceError.WithLabelValues("persist_result").Inc()
		s.log.WithFields(logrus.Fields{
			"service_id": result.ServiceID,
			"session_id": result.SessionID,
		}).WithError(err).Warn("failed to persist probe result, continuing")
		return
	}

	if err := s.repository.UpdateServiceStatus(ctx, result.ServiceID, result.Status); err != nil {
		s.log.WithField("service_id", result.ServiceID).WithError(err).Warn("failed to update service status")
	}

	if result.Status == ServiceStatusDegraded || result.Status == ServiceStatusDown {
		if s.dispatcher != nil {
			s.dispatcher.AnalyzeSingle(ctx, result.ServiceID)
		}
	}
}

// LastSession returns the most recently completed cycle's session, or nil
// if no cycle has completed yet.
func (s *Scheduler) LastSession() *MonitoringSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSess
}

func newSessionID() string {
	return fmt.Sprintf("session-%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}
