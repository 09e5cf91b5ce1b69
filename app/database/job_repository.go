package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, external_id, affiliate_merchant_id, partner_id, type, status, retry_count,
	source_path, output_path, distinguish_id, callback_url, destination, error,
	run_at, started_at, created_at, updated_at`

type JobRepo struct {
	db *DB
}

var _ JobRepository = (*JobRepo)(nil)

func NewJobRepository(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

// CreateJob assigns ID and timestamps when empty and inserts the job.
func (r *JobRepo) CreateJob(job *Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Type == "" {
		job.Type = JobTypeFeedGeneration
	}
	if job.Status == "" {
		job.Status = StatusGenerating
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.ExternalID, job.AffiliateMerchantID, job.PartnerID, job.Type, job.Status, job.RetryCount,
		job.Data.SourcePath, job.Data.OutputPath, job.Data.DistinguishID, job.Data.CallbackURL,
		job.Destination, job.Error, formatTimePtr(job.RunAt), formatTimePtr(job.StartedAt),
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (r *JobRepo) GetJob(id string) (*Job, error) {
	row := r.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// GetJobByAffiliateMerchant returns the most recent job for the merchant.
func (r *JobRepo) GetJobByAffiliateMerchant(affiliateMerchantID string) (*Job, error) {
	row := r.db.QueryRow(`
		SELECT `+jobColumns+`
		FROM jobs
		WHERE affiliate_merchant_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, affiliateMerchantID)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job by affiliate merchant: %w", err)
	}

	return job, nil
}

func (r *JobRepo) ListJobs(limit int) ([]Job, error) {
	rows, err := r.db.Query(`
		SELECT `+jobColumns+`
		FROM jobs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

func (r *JobRepo) GetJobCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM jobs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get job count: %w", err)
	}
	return count, nil
}

// GetDueJobs returns unclaimed jobs whose start time has come, oldest first.
func (r *JobRepo) GetDueJobs(now time.Time, limit int) ([]Job, error) {
	rows, err := r.db.Query(`
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = ?
		  AND started_at IS NULL
		  AND (run_at IS NULL OR run_at <= ?)
		ORDER BY created_at
		LIMIT ?
	`, StatusGenerating, formatTime(now), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// ClaimJob marks the job started. It returns false when another worker got there first.
func (r *JobRepo) ClaimJob(id string, now time.Time) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE jobs
		SET started_at = ?, updated_at = ?
		WHERE id = ? AND started_at IS NULL
	`, formatTime(now), formatTime(now), id)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}

	return affected == 1, nil
}

func (r *JobRepo) UpdateJobStatus(id string, status string, destination string, errMsg string) error {
	_, err := r.db.Exec(`
		UPDATE jobs
		SET status = ?,
		    destination = CASE WHEN ? = '' THEN destination ELSE ? END,
		    error = ?,
		    updated_at = ?
		WHERE id = ?
	`, status, destination, destination, errMsg, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	return nil
}

func (r *JobRepo) IncrementRetryCount(id string) error {
	_, err := r.db.Exec(`
		UPDATE jobs
		SET retry_count = retry_count + 1, updated_at = ?
		WHERE id = ?
	`, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}

	return nil
}

// FailInterruptedJobs fails jobs that were started but never reached a final
// state, which happens when the process stops mid-run.
func (r *JobRepo) FailInterruptedJobs(errMsg string) (int, error) {
	res, err := r.db.Exec(`
		UPDATE jobs
		SET status = ?, error = ?, updated_at = ?
		WHERE started_at IS NOT NULL AND status IN (?, ?, ?)
	`, StatusFailed, errMsg, formatTime(time.Now()), StatusGenerating, StatusGenerated, StatusValidating)
	if err != nil {
		return 0, fmt.Errorf("failed to fail interrupted jobs: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to fail interrupted jobs: %w", err)
	}

	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var runAt, startedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&job.ID, &job.ExternalID, &job.AffiliateMerchantID, &job.PartnerID, &job.Type, &job.Status, &job.RetryCount,
		&job.Data.SourcePath, &job.Data.OutputPath, &job.Data.DistinguishID, &job.Data.CallbackURL,
		&job.Destination, &job.Error, &runAt, &startedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if job.RunAt, err = parseTimePtr(runAt); err != nil {
		return nil, err
	}
	if job.StartedAt, err = parseTimePtr(startedAt); err != nil {
		return nil, err
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]Job, error) {
	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}

	return jobs, nil
}
