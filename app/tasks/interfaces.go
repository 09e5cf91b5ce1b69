package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to hand jobs to the worker pool.
// Example usage:
//
//	scheduler := NewScheduler(jobRepo, runner, interval, workerCount, taskTimeout)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueJob(job.ID)
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueJob(jobID string) error
}
