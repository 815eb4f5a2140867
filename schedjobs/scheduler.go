// Package schedjobs runs the app's periodic maintenance jobs on a minute clock.
package schedjobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zeptools/gw-invoice/locks/keyonlylocks"
	"github.com/zeptools/gw-invoice/svc"
)

type Scheduler struct {
	Ctx     context.Context    // Service Context
	cancel  context.CancelFunc // Service Context CancelFunc
	state   int                // internal service state
	done    chan error         // Shutdown Error Channel
	mu      sync.Mutex
	wg      sync.WaitGroup
	jobs    []*CronJob
	running keyonlylocks.Set // by job ID. a job never overlaps itself
	// Scheduler-level callback
	OnCronJobFinished func(job *CronJob, err error)
}

// Ensure Scheduler implements svc.Service
var _ svc.Service = (*Scheduler)(nil)

func NewScheduler(parentCtx context.Context) *Scheduler {
	svcCtx, svcCancel := context.WithCancel(parentCtx)
	return &Scheduler{
		Ctx:    svcCtx,
		cancel: svcCancel,
		state:  svc.StateREADY,
		done:   make(chan error, 1),
	}
}

func (s *Scheduler) Name() string {
	return "JobScheduler"
}

func (s *Scheduler) Start() error {
	if s.state == svc.StateRUNNING {
		return fmt.Errorf("already started")
	}
	if s.state != svc.StateREADY {
		return fmt.Errorf("cannot start. not ready")
	}
	s.state = svc.StateRUNNING
	go s.loop()
	log.Printf("[INFO][Sched] job scheduler started with %d jobs", len(s.CronJobs()))
	return nil
}

func (s *Scheduler) Stop() {
	if s.state != svc.StateRUNNING {
		log.Println("[ERROR][Sched] cannot stop. not running")
		return
	}
	s.cancel()
	s.state = svc.StateSTOPPED
}

func (s *Scheduler) Done() <-chan error {
	return s.done
}

func (s *Scheduler) loop() {
	// first tick on the next minute boundary
	now := time.Now()
	timer := time.NewTimer(now.Truncate(time.Minute).Add(time.Minute).Sub(now))
	defer timer.Stop()
	for {
		select {
		case <-s.Ctx.Done():
			s.wg.Wait() // wait for running tasks
			log.Println("[INFO][Sched] job scheduler stopped")
			s.done <- nil
			return
		case now := <-timer.C:
			s.RunDue(now)
			timer.Reset(now.Truncate(time.Minute).Add(time.Minute).Sub(time.Now()))
		}
	}
}

// RunDue starts every job matching now, skipping jobs still running from an earlier minute.
// Returns how many were started.
func (s *Scheduler) RunDue(now time.Time) int {
	started := 0
	for _, job := range s.CronJobs() {
		if !job.Matches(now) {
			continue
		}
		release, ok := s.running.TryAcquire(job.ID)
		if !ok {
			log.Printf("[WARN][Sched] job %s still running. skipped", job.ID)
			continue
		}
		started++
		s.wg.Add(1)
		go func(job *CronJob) {
			defer s.wg.Done()
			defer release()
			err := s.runTask(job)
			if err != nil {
				log.Printf("[ERROR][Sched] job %s: %v", job.ID, err)
			}
			if job.OnFinished != nil {
				job.OnFinished(err)
			}
			if s.OnCronJobFinished != nil {
				s.OnCronJobFinished(job, err)
			}
		}(job)
	}
	return started
}

func (s *Scheduler) runTask(job *CronJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PANIC] recovered in job %s: %v", job.ID, r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.Task(s.Ctx)
}

// Wait blocks until the jobs started so far have finished
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) AddCronJob(job *CronJob) {
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	log.Printf("[INFO][Sched] cron job %s added", job.ID)
}

// CronJobs returns a copy of all registered cron jobs
func (s *Scheduler) CronJobs() []*CronJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*CronJob(nil), s.jobs...)
}

// DeleteCronJob removes a cron job by its ID
func (s *Scheduler) DeleteCronJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.jobs[:0] // reuse underlying array
	for _, job := range s.jobs {
		if job.ID != jobID {
			kept = append(kept, job)
		}
	}
	s.jobs = kept
}
