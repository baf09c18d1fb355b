package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// JobFunc is the function invoked on each accepted firing. Tenant identity
// travels by value; the scheduler itself never touches tenant state. A
// returned error is recorded on the job state, so failures are never
// swallowed between firings.
type JobFunc func(ctx context.Context, tenantID, kind string) error

// Service owns the in-memory table of trigger definitions and fires them.
//
// Firing policy: each occurrence either starts a new execution (when the
// job's live-execution count is below the cap) or is dropped and counted
// as rejected. Missed occurrences are never coalesced or queued.
type Service struct {
	OnJob        JobFunc
	MaxInstances int
	Grace        time.Duration

	mu      sync.RWMutex
	jobs    map[string]*Job
	running bool

	stopChan chan struct{}
	cancel   context.CancelFunc
	baseCtx  context.Context
	wg       sync.WaitGroup
}

// NewService creates a scheduler invoking onJob with the default
// per-job concurrency cap of 3.
func NewService(onJob JobFunc) *Service {
	return &Service{
		OnJob:        onJob,
		MaxInstances: 3,
		Grace:        10 * time.Second,
		jobs:         make(map[string]*Job),
		stopChan:     make(chan struct{}),
	}
}

// Upsert registers or replaces the trigger definition for (tenant, kind)
// and re-arms it against the new trigger. Returns the deterministic job id.
func (s *Service) Upsert(tenantID, kind string, trigger Trigger) (string, error) {
	next, err := trigger.Next(time.Now())
	if err != nil {
		return "", err
	}

	id := JobID(tenantID, kind)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[id]; ok {
		existing.Trigger = trigger
		existing.State.NextRunAt = next
		existing.UpdatedAt = now
		log.Printf("scheduler: replaced job %s, next run %s", id, next.Format(time.RFC3339))
		return id, nil
	}

	s.jobs[id] = &Job{
		ID:        id,
		TenantID:  tenantID,
		Kind:      kind,
		Trigger:   trigger,
		State:     JobState{NextRunAt: next},
		CreatedAt: now,
		UpdatedAt: now,
	}
	log.Printf("scheduler: registered job %s, next run %s", id, next.Format(time.RFC3339))
	return id, nil
}

// Remove deletes a trigger definition. In-flight executions finish on
// their own; only future firings stop.
func (s *Service) Remove(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return false
	}
	delete(s.jobs, jobID)
	log.Printf("scheduler: removed job %s", jobID)
	return true
}

// RemoveForTenant deletes every job owned by a tenant and returns how many
// were removed.
func (s *Service) RemoveForTenant(tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.TenantID == tenantID {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// ListForTenant returns copies of the tenant's job descriptors, ordered by
// job id.
func (s *Service) ListForTenant(tenantID string) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Job
	for _, job := range s.jobs {
		if job.TenantID == tenantID {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a copy of one job descriptor.
func (s *Service) Get(jobID string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Start launches the scheduler loop. A stopped service can be started
// again.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	stop := s.stopChan
	s.mu.Unlock()

	go s.loop(stop)
	log.Printf("scheduler: started")
}

// Stop cancels in-flight executions and waits for them up to the grace
// timeout, then abandons the remainder. Best-effort drain, not a
// guarantee.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Printf("scheduler: stopped, all executions drained")
	case <-time.After(s.Grace):
		log.Printf("scheduler: stopped, drain grace expired with executions still in flight")
	}
}

func (s *Service) loop(stop <-chan struct{}) {
	for {
		delay := s.nextWake()
		select {
		case <-stop:
			return
		case <-time.After(delay):
			s.fireDue()
		}
	}
}

// nextWake returns how long to sleep before the earliest due job, capped
// so newly upserted jobs are noticed promptly.
func (s *Service) nextWake() time.Duration {
	const maxSleep = 10 * time.Second

	s.mu.RLock()
	defer s.mu.RUnlock()

	var earliest time.Time
	for _, job := range s.jobs {
		if earliest.IsZero() || job.State.NextRunAt.Before(earliest) {
			earliest = job.State.NextRunAt
		}
	}
	if earliest.IsZero() {
		return maxSleep
	}
	delay := time.Until(earliest)
	if delay < 0 {
		return 0
	}
	if delay > maxSleep {
		return maxSleep
	}
	return delay
}

// fireDue dispatches every due job and re-arms it from the current time,
// so occurrences missed while asleep or stopped are dropped, not replayed.
func (s *Service) fireDue() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.State.NextRunAt.After(now) {
			continue
		}

		next, err := job.Trigger.Next(now)
		if err != nil {
			// Trigger was validated at upsert; keep the job parked.
			job.State.LastStatus = "error"
			job.State.LastError = err.Error()
			job.State.NextRunAt = now.Add(time.Hour)
			continue
		}
		job.State.NextRunAt = next

		if job.State.Live >= s.MaxInstances {
			job.State.Rejected++
			job.State.LastStatus = "rejected"
			log.Printf("scheduler: rejected firing of %s, %d executions already live", job.ID, job.State.Live)
			continue
		}

		job.State.Live++
		s.wg.Add(1)
		go s.execute(job.ID, job.TenantID, job.Kind)
	}
}

// execute runs one accepted firing. A panic escaping the job function is
// recovered so it can never take the scheduler loop down.
func (s *Service) execute(jobID, tenantID, kind string) {
	defer s.wg.Done()
	started := time.Now()

	status, errText := "ok", ""
	func() {
		defer func() {
			if r := recover(); r != nil {
				status = "error"
				errText = fmt.Sprintf("panic: %v", r)
				log.Printf("scheduler: panic in job %s: %v", jobID, r)
			}
		}()
		if err := s.OnJob(s.baseCtx, tenantID, kind); err != nil {
			status = "error"
			errText = err.Error()
			log.Printf("scheduler: job %s failed: %v", jobID, err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	job.State.Live--
	job.State.LastRunAt = started
	job.State.LastStatus = status
	job.State.LastError = errText
}
