package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/feed-inspector/app/database"
)

const (
	taskQueueSize       = 300
	maxRetryDelay       = 30 * time.Second
	interruptedJobError = "interrupted: service restarted before the job finished"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// TaskFactory builds the task that runs a stored job.
type TaskFactory func(jobID string) TaskInterface

type Scheduler struct {
	jobRepo     database.JobRepository
	newTask     TaskFactory
	interval    time.Duration
	workerCount int
	taskTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewScheduler(jobRepo database.JobRepository, newTask TaskFactory, interval time.Duration,
	workerCount int, taskTimeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		jobRepo:     jobRepo,
		newTask:     newTask,
		interval:    interval,
		workerCount: workerCount,
		taskTimeout: taskTimeout,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, taskQueueSize),
		pending:     make(map[string]struct{}),
	}
}

func (s *Scheduler) Start() {
	s.recoverInterruptedJobs()

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDueJobs()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueJobs()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueJob queues the job unless a task for it is already queued or running.
func (s *Scheduler) EnqueueJob(jobID string) error {
	s.mu.Lock()
	if _, ok := s.pending[jobID]; ok {
		s.mu.Unlock()
		slog.Debug("Job already queued", "job_id", jobID)
		return nil
	}
	s.pending[jobID] = struct{}{}
	s.mu.Unlock()

	if err := s.EnqueueTask(s.newTask(jobID)); err != nil {
		s.release(jobID)
		return err
	}

	return nil
}

func (s *Scheduler) release(jobID string) {
	s.mu.Lock()
	delete(s.pending, jobID)
	s.mu.Unlock()
}

func (s *Scheduler) recoverInterruptedJobs() {
	count, err := s.jobRepo.FailInterruptedJobs(interruptedJobError)
	if err != nil {
		slog.Error("Failed to recover interrupted jobs", "error", err)
		return
	}
	if count > 0 {
		slog.Warn("Marked interrupted jobs as failed", "count", count)
	}
}

func (s *Scheduler) enqueueDueJobs() {
	jobs, err := s.jobRepo.GetDueJobs(time.Now().UTC(), taskQueueSize)
	if err != nil {
		slog.Error("Failed to get due jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		slog.Debug("No due jobs found")
		return
	}

	slog.Debug("Enqueueing due jobs", "count", len(jobs))

	for _, job := range jobs {
		if err := s.EnqueueJob(job.ID); err != nil {
			slog.Warn("Failed to enqueue job", "job_id", job.ID, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	err := task.Execute(taskCtx)
	cancel()

	if err == nil {
		slog.Debug("Task completed", "worker_id", workerID, "type", string(task.GetType()), "job_id", task.GetJobID(), "duration", task.GetDuration().String())
		s.release(task.GetJobID())
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "job_id", task.GetJobID(), "retry_count", task.GetRetryCount(), "error", err)

	if IsPermanent(err) || !task.CanRetry() {
		s.fail(task, err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
	if retryDelay > maxRetryDelay {
		retryDelay = maxRetryDelay
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "job_id", task.GetJobID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		select {
		case <-time.After(retryDelay):
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		}
		if retryErr := s.EnqueueTask(task); retryErr != nil {
			slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			s.fail(task, err)
		}
	}()
}

func (s *Scheduler) fail(task TaskInterface, err error) {
	slog.Error("Task failed", "type", string(task.GetType()), "id", task.GetID(), "job_id", task.GetJobID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)

	if handler, ok := task.(FailureHandler); ok {
		handler.OnFailure(s.ctx, err)
	}
	s.release(task.GetJobID())
}
