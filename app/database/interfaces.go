package database

import (
	"time"
)

type JobRepository interface {
	CreateJob(job *Job) error
	GetJob(id string) (*Job, error)
	GetJobByAffiliateMerchant(affiliateMerchantID string) (*Job, error)
	ListJobs(limit int) ([]Job, error)
	GetJobCount() (int, error)

	GetDueJobs(now time.Time, limit int) ([]Job, error)
	ClaimJob(id string, now time.Time) (bool, error)
	UpdateJobStatus(id string, status string, destination string, errMsg string) error
	IncrementRetryCount(id string) error
	FailInterruptedJobs(errMsg string) (int, error)
}

type ActivityRepository interface {
	CreateActivity(activity *Activity) error
	GetJobActivities(jobID string) ([]Activity, error)
}
