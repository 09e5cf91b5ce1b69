package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"time"

	"github.com/lysyi3m/feed-inspector/app/blob"
	"github.com/lysyi3m/feed-inspector/app/callback"
	"github.com/lysyi3m/feed-inspector/app/compress"
	"github.com/lysyi3m/feed-inspector/app/database"
	"github.com/lysyi3m/feed-inspector/app/feed"
	"github.com/lysyi3m/feed-inspector/app/metrics"
)

const (
	activitySource      = "scheduler"
	activityRequestedBy = "system"
)

// Runner holds what analysis tasks share.
type Runner struct {
	Analyzer     *feed.Analyzer
	JobRepo      database.JobRepository
	ActivityRepo database.ActivityRepository
	Notifier     *callback.Notifier
	LogsDir      string
	LogLevel     slog.Level
	Console      io.Writer // run logs are mirrored here when set
	CallbackURL  string    // used when the job carries none
}

func (r *Runner) NewTask(jobID string) TaskInterface {
	return NewAnalyzeFeedTask(jobID, r)
}

type AnalyzeFeedTask struct {
	Task
	runner  *Runner
	claimed bool
}

func NewAnalyzeFeedTask(jobID string, runner *Runner) *AnalyzeFeedTask {
	return &AnalyzeFeedTask{
		Task:   NewTask(TaskTypeAnalyzeFeed, jobID),
		runner: runner,
	}
}

func (t *AnalyzeFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	job, err := t.runner.JobRepo.GetJob(t.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return Permanent(fmt.Errorf("job %s not found", t.JobID))
	}

	if !t.claimed {
		claimed, err := t.runner.JobRepo.ClaimJob(job.ID, time.Now().UTC())
		if err != nil {
			return err
		}
		if !claimed {
			slog.Debug("Job already claimed, skipping", "job_id", job.ID)
			return nil
		}
		t.claimed = true
	}

	if err := t.transition(job, database.StatusGenerating, "", "", map[string]any{
		"attempt": t.RetryCount + 1,
	}); err != nil {
		return err
	}

	feedJob := feed.Job{
		PartnerID:     job.PartnerID,
		Source:        job.Data.SourcePath,
		Destination:   job.Data.OutputPath,
		DistinguishID: job.Data.DistinguishID,
	}

	runLog, err := feed.OpenRunLog(t.runner.LogsDir, feedJob, time.Now(), t.runner.Console, t.runner.LogLevel)
	if err != nil {
		return err
	}

	result, runErr := t.runner.Analyzer.Run(ctx, feedJob, runLog.Logger.With("job_id", job.ID))
	if err := runLog.Close(); err != nil {
		slog.Warn("Failed to close run log", "path", runLog.Path, "error", err)
	}
	if runErr != nil {
		if isPermanentRunError(runErr) {
			return Permanent(runErr)
		}
		return runErr
	}

	if err := t.transition(job, database.StatusGenerated, "", "", map[string]any{
		"scanned":  result.Scanned,
		"eligible": result.Eligible,
		"log_file": runLog.Path,
	}); err != nil {
		return err
	}

	if err := t.transition(job, database.StatusValidating, "", "", nil); err != nil {
		return err
	}

	destination, err := validateRunLog(runLog.Path)
	if err != nil {
		return Permanent(fmt.Errorf("validation failed: %w", err))
	}

	if err := t.transition(job, database.StatusValidated, destination, "", map[string]any{
		"destination": destination,
	}); err != nil {
		return err
	}

	slog.Info("Job validated", "job_id", job.ID, "partner_id", job.PartnerID, "destination", destination,
		"scanned", result.Scanned, "eligible", result.Eligible, "duration", result.Duration.String())

	t.notify(ctx, job, callback.StatusSuccess, destination, "")

	return nil
}

func (t *AnalyzeFeedTask) IncrementRetryCount() {
	t.Task.IncrementRetryCount()
	if err := t.runner.JobRepo.IncrementRetryCount(t.JobID); err != nil {
		slog.Warn("Failed to record retry", "job_id", t.JobID, "error", err)
	}
}

// OnFailure marks the job failed and reports it to the caller.
func (t *AnalyzeFeedTask) OnFailure(ctx context.Context, cause error) {
	job, err := t.runner.JobRepo.GetJob(t.JobID)
	if err != nil || job == nil {
		slog.Error("Cannot record job failure", "job_id", t.JobID, "cause", cause, "error", err)
		return
	}

	if err := t.transition(job, database.StatusFailed, "", cause.Error(), map[string]any{
		"error": cause.Error(),
	}); err != nil {
		slog.Error("Failed to mark job failed", "job_id", job.ID, "error", err)
	}

	t.notify(ctx, job, callback.StatusFailed, "", cause.Error())
}

func (t *AnalyzeFeedTask) transition(job *database.Job, status, destination, errMsg string, details map[string]any) error {
	if err := t.runner.JobRepo.UpdateJobStatus(job.ID, status, destination, errMsg); err != nil {
		return err
	}
	job.Status = status
	metrics.JobTransition(status)

	activity := map[string]any{"status": status}
	maps.Copy(activity, details)

	if err := t.runner.ActivityRepo.CreateActivity(&database.Activity{
		Entity:      database.EntityJob,
		EntityID:    job.ID,
		Source:      activitySource,
		RequestedBy: activityRequestedBy,
		Activity:    activity,
	}); err != nil {
		slog.Warn("Failed to record activity", "job_id", job.ID, "status", status, "error", err)
	}

	return nil
}

func (t *AnalyzeFeedTask) notify(ctx context.Context, job *database.Job, status, destination, errMsg string) {
	url := cmp.Or(job.Data.CallbackURL, t.runner.CallbackURL)

	err := t.runner.Notifier.Send(ctx, url, callback.Payload{
		JobID:  job.ExternalID,
		Status: status,
		Result: callback.Result{DestinationS3Path: destination},
		Err:    errMsg,
	})
	if err != nil {
		slog.Warn("Callback failed", "job_id", job.ID, "url", url, "error", err)
	}
}

// validateRunLog checks the run log for the success marker and returns the
// location named by its completion line.
func validateRunLog(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read run log: %w", err)
	}

	text := string(data)
	if !feed.Succeeded(text) {
		return "", errors.New("run log has no success marker")
	}

	destination, ok := feed.FindCompletion(text)
	if !ok {
		return "", errors.New("run log has no upload completion line")
	}

	return destination, nil
}

func isPermanentRunError(err error) bool {
	return errors.Is(err, compress.ErrUnsupported) ||
		errors.Is(err, feed.ErrRecordTooLarge) ||
		errors.Is(err, blob.ErrNotFound) ||
		errors.Is(err, blob.ErrUnsupportedScheme)
}
