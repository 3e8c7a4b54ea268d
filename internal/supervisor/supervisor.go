// Package supervisor implements the Supervisor (C7): a named registry of
// long-running tasks, each restarted with capped exponential backoff if
// its function returns an error, plus a cron-scheduled consistency sweep
// and a status view over the other components.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flair-helper/flairhelper/internal/actionstore"
	"github.com/flair-helper/flairhelper/internal/configstore"
	"github.com/flair-helper/flairhelper/pkg/logger"
)

var log = logger.New("supervisor")

const (
	// DefaultInitialBackoff is the delay before a task's first restart.
	DefaultInitialBackoff = time.Second
	// DefaultMaxBackoff caps the exponential backoff between restarts.
	DefaultMaxBackoff = 5 * time.Minute
	// DefaultMinColdStartSpacing is the minimum time Start must wait since
	// the previous Start call on the same Service. The last cold start is
	// held in memory only, so the spacing does not carry across process
	// restarts.
	DefaultMinColdStartSpacing = 10 * time.Second
)

// Notifier is the out-of-band sink a task's terminal errors are reported
// to, alongside the routine log line.
type Notifier interface {
	Status(ctx context.Context, line string) error
}

// TaskFunc is one long-running unit of work. It must return promptly once
// ctx is cancelled.
type TaskFunc func(ctx context.Context) error

type runningTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Service owns the named task registry and the consistency-sweep cron.
type Service struct {
	Notifier Notifier
	Actions  *actionstore.Store
	Configs  *configstore.Store

	InitialBackoff      time.Duration
	MaxBackoff          time.Duration
	MinColdStartSpacing time.Duration

	mu            sync.Mutex
	tasks         map[string]*runningTask
	lastColdStart time.Time

	cron *cron.Cron
}

// New constructs a Service with the documented defaults.
func New(notif Notifier, actions *actionstore.Store, configs *configstore.Store) *Service {
	return &Service{
		Notifier:            notif,
		Actions:             actions,
		Configs:             configs,
		InitialBackoff:      DefaultInitialBackoff,
		MaxBackoff:          DefaultMaxBackoff,
		MinColdStartSpacing: DefaultMinColdStartSpacing,
		tasks:               make(map[string]*runningTask),
	}
}

// Start marks a process cold start, delaying the caller if one happened
// too recently. It does not itself launch any task; callers follow it with
// AddTask calls.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	spacing := s.MinColdStartSpacing
	if spacing <= 0 {
		spacing = DefaultMinColdStartSpacing
	}
	wait := spacing - time.Since(s.lastColdStart)
	s.lastColdStart = time.Now()
	s.mu.Unlock()

	if wait > 0 {
		log.Printf("cold start throttled, waiting %s", wait)
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
}

// AddTask cancels and awaits any prior task registered under name, then
// starts fn under a supervising wrapper: on error, it reports to the
// notifier, sleeps a capped exponential backoff, and restarts fn. The
// backoff resets once fn has run long enough to be considered stable.
func (s *Service) AddTask(ctx context.Context, name string, fn TaskFunc) {
	s.mu.Lock()
	if prior, ok := s.tasks[name]; ok {
		prior.cancel()
		s.mu.Unlock()
		<-prior.done
		s.mu.Lock()
	}

	taskCtx, cancel := context.WithCancel(ctx)
	rt := &runningTask{cancel: cancel, done: make(chan struct{})}
	s.tasks[name] = rt
	s.mu.Unlock()

	go s.supervise(taskCtx, name, fn, rt)
}

// stableAfter is how long a task must run before failing for its backoff
// to reset to InitialBackoff: a task that fails instantly keeps doubling
// its delay up to MaxBackoff, while a task that ran for hours before one
// transient failure restarts after the initial delay.
const stableAfter = time.Minute

func (s *Service) supervise(ctx context.Context, name string, fn TaskFunc, rt *runningTask) {
	defer close(rt.done)

	backoff := s.InitialBackoff
	if backoff <= 0 {
		backoff = DefaultInitialBackoff
	}
	maxBackoff := s.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}

	for {
		if ctx.Err() != nil {
			return
		}

		started := time.Now()
		err := s.runOnce(ctx, name, fn)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			log.Printf("task %s exited cleanly", name)
			return
		}

		if time.Since(started) >= stableAfter {
			backoff = s.InitialBackoff
			if backoff <= 0 {
				backoff = DefaultInitialBackoff
			}
		}

		line := fmt.Sprintf("task %s failed: %v (restarting in %s)", name, err, backoff)
		log.Print(line)
		s.notifyStatus(ctx, line)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runOnce recovers a panic inside fn and turns it into an error, so one
// broken task can never take the process down.
func (s *Service) runOnce(ctx context.Context, name string, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in task %s: %v", name, r)
		}
	}()
	return fn(ctx)
}

func (s *Service) notifyStatus(ctx context.Context, line string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Status(ctx, line); err != nil {
		log.Printf("status notify failed: %v", err)
	}
}

// StartConsistencySweep schedules fn on the given cron expression (standard
// five-field, e.g. "0 * * * *" for hourly) until ctx is cancelled. Only one
// sweep schedule runs at a time; a second call replaces the first.
func (s *Service) StartConsistencySweep(ctx context.Context, schedule string, fn func(context.Context)) error {
	s.mu.Lock()
	if s.cron != nil {
		s.cron.Stop()
	}
	c := cron.New()
	s.cron = c
	s.mu.Unlock()

	_, err := c.AddFunc(schedule, func() { fn(ctx) })
	if err != nil {
		return fmt.Errorf("schedule consistency sweep %q: %w", schedule, err)
	}
	c.Start()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.cron == c {
			c.Stop()
			s.cron = nil
		}
	}()
	return nil
}

// Status is the operator-facing snapshot: names of currently running
// tasks, the count of not-yet-completed action rows, and the communities
// the config store currently caches.
type Status struct {
	RunningTasks         []string
	PendingActions       int
	MonitoredCommunities []string
}

// Status builds a Status snapshot. Store errors are logged and leave the
// corresponding field empty rather than failing the whole view.
func (s *Service) Status(ctx context.Context) Status {
	s.mu.Lock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	s.mu.Unlock()

	var st Status
	st.RunningTasks = names

	if s.Actions != nil {
		jobs, err := s.Actions.ListPendingJobs(ctx)
		if err != nil {
			log.Printf("status: list_pending_jobs failed: %v", err)
		} else {
			for _, j := range jobs {
				kinds, err := s.Actions.PendingActions(ctx, j.SubmissionID)
				if err != nil {
					log.Printf("status: pending_actions %s failed: %v", j.SubmissionID, err)
					continue
				}
				st.PendingActions += len(kinds)
			}
		}
	}

	if s.Configs != nil {
		communities, err := s.Configs.ListCommunities(ctx)
		if err != nil {
			log.Printf("status: list_communities failed: %v", err)
		} else {
			st.MonitoredCommunities = communities
		}
	}

	return st
}

// StopAll cancels and awaits every registered task and any running cron
// schedule, used on graceful shutdown.
func (s *Service) StopAll() {
	s.mu.Lock()
	tasks := make([]*runningTask, 0, len(s.tasks))
	for _, rt := range s.tasks {
		tasks = append(tasks, rt)
	}
	s.tasks = make(map[string]*runningTask)
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	for _, rt := range tasks {
		rt.cancel()
	}
	for _, rt := range tasks {
		<-rt.done
	}
	if c != nil {
		c.Stop()
	}
}
