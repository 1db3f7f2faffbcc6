package usecase

import (
	"context"
	"sync"
	"time"

	drepo "MarketPulse/internal/domain/repository"
	applogger "MarketPulse/pkg/logger"
)

// Task is one periodic unit of the pipeline.
type Task interface {
	Name() string
	RunCycle(ctx context.Context) CycleReport
}

type scheduled struct {
	task     Task
	interval time.Duration
}

// Scheduler runs each task on its own ticker. Tasks never wait on each
// other; a slow cycle only delays the next tick of the same task.
type Scheduler struct {
	tasks      []scheduled
	logger     *applogger.Logger
	metrics    drepo.Metrics
	runOnStart bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	reports chan<- CycleReport
}

func NewScheduler(logger *applogger.Logger, metrics drepo.Metrics) *Scheduler {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &Scheduler{logger: logger, metrics: metrics, runOnStart: true}
}

// Add registers a task. It must be called before Start.
func (s *Scheduler) Add(task Task, interval time.Duration) *Scheduler {
	s.tasks = append(s.tasks, scheduled{task: task, interval: interval})
	return s
}

// RunOnStart controls whether every task runs once immediately on Start.
func (s *Scheduler) RunOnStart(v bool) *Scheduler {
	s.runOnStart = v
	return s
}

// Reports mirrors every cycle report onto ch without blocking. Tests use it
// to observe cycles.
func (s *Scheduler) Reports(ch chan<- CycleReport) *Scheduler {
	s.reports = ch
	return s
}

// Start launches one goroutine per task. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	for _, st := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, st)
	}
	s.logger.Info("scheduler started", applogger.Int("tasks", len(s.tasks)))
}

// Stop cancels every loop and waits for in-flight cycles to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, st scheduled) {
	defer s.wg.Done()

	if s.runOnStart {
		s.cycle(ctx, st.task)
	}
	ticker := time.NewTicker(st.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx, st.task)
		}
	}
}

// cycle runs one task cycle and applies the log-and-continue policy. A
// panicking task is logged and the loop keeps going, except for store
// corruption in strict mode.
func (s *Scheduler) cycle(ctx context.Context, task Task) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if isCorruption(r) {
				panic(r)
			}
			s.metrics.RecordError("task_panic")
			s.logger.Error("task panicked", applogger.String("task", task.Name()), applogger.Any("panic", r))
		}
	}()

	rep := task.RunCycle(ctx)
	done, skipped, failed := rep.Counts()
	s.metrics.RecordCycle(rep.Task, rep.Duration.Seconds(), done, skipped, failed)

	for _, it := range rep.Items {
		switch it.Status {
		case ItemFailed:
			s.metrics.RecordError(rep.Task)
			s.logger.Warn("task item failed",
				applogger.String("task", rep.Task),
				applogger.String("item", it.Key),
				applogger.Error(it.Err),
			)
		case ItemSkipped:
			s.logger.Debug("task item skipped",
				applogger.String("task", rep.Task),
				applogger.String("item", it.Key),
				applogger.Error(it.Err),
			)
		}
	}
	s.logger.Debug("task cycle",
		applogger.String("task", rep.Task),
		applogger.Duration("took", rep.Duration),
		applogger.Int("done", done),
		applogger.Int("skipped", skipped),
		applogger.Int("failed", failed),
	)

	if s.reports != nil {
		select {
		case s.reports <- rep:
		default:
		}
	}
}
