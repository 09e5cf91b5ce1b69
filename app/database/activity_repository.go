package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const EntityJob = "job"

type ActivityRepo struct {
	db *DB
}

var _ ActivityRepository = (*ActivityRepo)(nil)

func NewActivityRepository(db *DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) CreateActivity(activity *Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(activity.Activity)
	if err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO activities (id, entity, entity_id, source, requested_by, activity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, activity.ID, activity.Entity, activity.EntityID, activity.Source, activity.RequestedBy,
		string(payload), formatTime(activity.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}

	return nil
}

// GetJobActivities returns the job's activities in creation order.
func (r *ActivityRepo) GetJobActivities(jobID string) ([]Activity, error) {
	rows, err := r.db.Query(`
		SELECT id, entity, entity_id, source, requested_by, activity, created_at
		FROM activities
		WHERE entity = ? AND entity_id = ?
		ORDER BY created_at, rowid
	`, EntityJob, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var activity Activity
		var payload, createdAt string
		if err := rows.Scan(&activity.ID, &activity.Entity, &activity.EntityID, &activity.Source,
			&activity.RequestedBy, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &activity.Activity); err != nil {
			return nil, fmt.Errorf("failed to decode activity %s: %w", activity.ID, err)
		}
		if activity.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return activities, nil
}
