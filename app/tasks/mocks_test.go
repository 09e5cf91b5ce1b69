package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lysyi3m/feed-inspector/app/database"
)

type mockJobRepo struct {
	mu               sync.Mutex
	jobs             map[string]*database.Job
	interruptedCalls int
	updateErr        error
}

func newMockJobRepo(jobs ...database.Job) *mockJobRepo {
	repo := &mockJobRepo{jobs: make(map[string]*database.Job)}
	for i := range jobs {
		job := jobs[i]
		repo.jobs[job.ID] = &job
	}
	return repo
}

func (m *mockJobRepo) CreateJob(job *database.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *job
	m.jobs[job.ID] = &stored
	return nil
}

func (m *mockJobRepo) GetJob(id string) (*database.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (m *mockJobRepo) GetJobByAffiliateMerchant(affiliateMerchantID string) (*database.Job, error) {
	return nil, nil
}

func (m *mockJobRepo) ListJobs(limit int) ([]database.Job, error) {
	return nil, nil
}

func (m *mockJobRepo) GetJobCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs), nil
}

func (m *mockJobRepo) GetDueJobs(now time.Time, limit int) ([]database.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []database.Job
	for _, job := range m.jobs {
		if job.StartedAt != nil || job.Status != database.StatusGenerating {
			continue
		}
		if job.RunAt != nil && job.RunAt.After(now) {
			continue
		}
		due = append(due, *job)
	}
	return due, nil
}

func (m *mockJobRepo) ClaimJob(id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.StartedAt != nil {
		return false, nil
	}
	job.StartedAt = &now
	return true, nil
}

func (m *mockJobRepo) UpdateJobStatus(id string, status string, destination string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	job, ok := m.jobs[id]
	if !ok {
		return errors.New("job not found")
	}
	job.Status = status
	if destination != "" {
		job.Destination = destination
	}
	job.Error = errMsg
	return nil
}

func (m *mockJobRepo) IncrementRetryCount(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		job.RetryCount++
	}
	return nil
}

func (m *mockJobRepo) FailInterruptedJobs(errMsg string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interruptedCalls++
	return 0, nil
}

type mockActivityRepo struct {
	mu         sync.Mutex
	activities []database.Activity
}

func (m *mockActivityRepo) CreateActivity(activity *database.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, *activity)
	return nil
}

func (m *mockActivityRepo) GetJobActivities(jobID string) ([]database.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []database.Activity
	for _, activity := range m.activities {
		if activity.EntityID == jobID {
			result = append(result, activity)
		}
	}
	return result, nil
}

func (m *mockActivityRepo) statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var statuses []string
	for _, activity := range m.activities {
		statuses = append(statuses, activity.Activity["status"].(string))
	}
	return statuses
}

// fakeTask runs a scripted sequence of results, one per attempt.
type fakeTask struct {
	Task
	mu       sync.Mutex
	results  []error
	attempts int
	executed chan int
	failed   chan error
}

func newFakeTask(jobID string, results ...error) *fakeTask {
	return &fakeTask{
		Task:     NewTask(TaskTypeAnalyzeFeed, jobID),
		results:  results,
		executed: make(chan int, 10),
		failed:   make(chan error, 1),
	}
}

func (f *fakeTask) Execute(ctx context.Context) error {
	f.mu.Lock()
	attempt := f.attempts
	f.attempts++
	f.mu.Unlock()

	f.executed <- attempt
	if attempt < len(f.results) {
		return f.results[attempt]
	}
	return nil
}

func (f *fakeTask) OnFailure(ctx context.Context, err error) {
	f.failed <- err
}
