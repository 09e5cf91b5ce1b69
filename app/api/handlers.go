package api

import (
	"cmp"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/feed-inspector/app/callback"
	"github.com/lysyi3m/feed-inspector/app/database"
	"github.com/lysyi3m/feed-inspector/app/feed"
	"github.com/lysyi3m/feed-inspector/app/tasks"
)

const (
	defaultJobsLimit = 50
	maxJobsLimit     = 500
	activitySource   = "api"
)

func NewHandler(jobRepo database.JobRepository, activityRepo database.ActivityRepository,
	profiles *feed.ProfileCache, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		jobRepo:      jobRepo,
		activityRepo: activityRepo,
		profiles:     profiles,
		scheduler:    scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if jobCount, err := h.jobRepo.GetJobCount(); err == nil {
		health["jobs"] = jobCount
	}

	if h.profiles != nil {
		health["loaded_profiles"] = h.profiles.GetProfileCount()
	}

	c.JSON(http.StatusOK, health)
}

// RunFeed stores an analysis job and queues it, or leaves it for the
// scheduler when run_at lies ahead.
func (h *Handler) RunFeed(c *gin.Context) {
	var req RunFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	if missing := req.missingFields(); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Missing fields: %v", missing)})
		return
	}

	job := &database.Job{
		ExternalID:          req.JobID,
		AffiliateMerchantID: string(req.AffiliateMerchantID),
		PartnerID:           string(req.PartnerID),
		Type:                cmp.Or(req.Type, database.JobTypeFeedGeneration),
		Status:              database.StatusGenerating,
		Data: database.JobData{
			SourcePath:    req.FeedFile,
			OutputPath:    req.OutputPath,
			DistinguishID: string(req.DistinguishID),
			CallbackURL:   req.CallbackURL,
		},
	}

	if req.RunAt != "" {
		runAt, err := tasks.NextRunAt(req.RunAt, time.Now())
		if err != nil {
			slog.Warn("Ignoring invalid run_at, running immediately", "run_at", req.RunAt, "error", err)
		} else {
			runAt = runAt.UTC()
			job.RunAt = &runAt
		}
	}

	if err := h.jobRepo.CreateJob(job); err != nil {
		slog.Error("Database error", "operation", "create_job", "partner_id", job.PartnerID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	details := map[string]any{
		"action":         "created",
		"partner_id":     job.PartnerID,
		"source":         job.Data.SourcePath,
		"output":         job.Data.OutputPath,
		"distinguish_id": job.Data.DistinguishID,
	}
	if job.RunAt != nil {
		details["run_at"] = job.RunAt.Format(time.RFC3339)
	}
	if err := h.activityRepo.CreateActivity(&database.Activity{
		Entity:      database.EntityJob,
		EntityID:    job.ID,
		Source:      activitySource,
		RequestedBy: c.ClientIP(),
		Activity:    details,
	}); err != nil {
		slog.Warn("Failed to record activity", "job_id", job.ID, "error", err)
	}

	if job.RunAt == nil {
		if err := h.scheduler.EnqueueJob(job.ID); err != nil {
			slog.Warn("Failed to enqueue job, leaving it for the scheduler", "job_id", job.ID, "error", err)
		}
	}

	slog.Info("Job accepted", "id", job.ID, "job_id", job.ExternalID, "partner_id", job.PartnerID, "run_at", job.RunAt)

	response := gin.H{
		"message": "Job accepted",
		"job_id":  job.ExternalID,
		"id":      job.ID,
	}
	if job.RunAt != nil {
		response["run_at"] = job.RunAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, response)
}

// ReceiveCallback logs job outcomes posted back to this service.
func (h *Handler) ReceiveCallback(c *gin.Context) {
	var payload callback.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	slog.Info("Callback received",
		"job_id", payload.JobID,
		"type", payload.Type,
		"status", payload.Status,
		"destination", payload.Result.DestinationS3Path,
		"err", payload.Err)

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) ListJobs(c *gin.Context) {
	limit := defaultJobsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(parsed, maxJobsLimit)
	}

	var jobs []database.Job
	var err error
	if merchant := c.Query("affiliate_merchant_id"); merchant != "" {
		jobs, err = h.latestMerchantJob(merchant)
	} else {
		jobs, err = h.jobRepo.ListJobs(limit)
	}
	if err != nil {
		slog.Error("Database error", "operation", "list_jobs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		result = append(result, jobResponse(job))
	}

	c.JSON(http.StatusOK, map[string]any{
		"jobs":  result,
		"total": len(result),
	})
}

// latestMerchantJob narrows the listing to the merchant's most recent job.
func (h *Handler) latestMerchantJob(affiliateMerchantID string) ([]database.Job, error) {
	job, err := h.jobRepo.GetJobByAffiliateMerchant(affiliateMerchantID)
	if err != nil || job == nil {
		return nil, err
	}
	return []database.Job{*job}, nil
}

func (h *Handler) GetJob(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing job id parameter"})
		return
	}

	job, err := h.jobRepo.GetJob(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_job", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	activities, err := h.activityRepo.GetJobActivities(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_job_activities", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	history := make([]map[string]any, 0, len(activities))
	for _, activity := range activities {
		history = append(history, map[string]any{
			"id":           activity.ID,
			"source":       activity.Source,
			"requested_by": activity.RequestedBy,
			"activity":     activity.Activity,
			"created_at":   activity.CreatedAt.Format(time.RFC3339),
		})
	}

	details := jobResponse(*job)
	details["activities"] = history

	c.JSON(http.StatusOK, details)
}

func jobResponse(job database.Job) map[string]any {
	response := map[string]any{
		"id":                    job.ID,
		"job_id":                job.ExternalID,
		"affiliate_merchant_id": job.AffiliateMerchantID,
		"partner_id":            job.PartnerID,
		"type":                  job.Type,
		"status":                job.Status,
		"retry_count":           job.RetryCount,
		"data": map[string]any{
			"source_path":    job.Data.SourcePath,
			"output_path":    job.Data.OutputPath,
			"distinguish_id": job.Data.DistinguishID,
			"callback_url":   job.Data.CallbackURL,
		},
		"destination": job.Destination,
		"error":       job.Error,
		"created_at":  job.CreatedAt.Format(time.RFC3339),
		"updated_at":  job.UpdatedAt.Format(time.RFC3339),
	}

	if job.RunAt != nil {
		response["run_at"] = job.RunAt.Format(time.RFC3339)
	}
	if job.StartedAt != nil {
		response["started_at"] = job.StartedAt.Format(time.RFC3339)
	}

	return response
}
