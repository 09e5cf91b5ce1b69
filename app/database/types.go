package database

import (
	"time"
)

const (
	JobTypeFeedGeneration = "violet_feed_generation"
)

const (
	StatusGenerating = "generating"
	StatusGenerated  = "generated"
	StatusValidating = "validating"
	StatusValidated  = "validated"
	StatusFailed     = "failed"
)

type Job struct {
	ID                  string // Database UUID
	ExternalID          int64  // Caller's job id, echoed in callbacks
	AffiliateMerchantID string
	PartnerID           string
	Type                string
	Status              string
	RetryCount          int
	Data                JobData
	Destination         string // Report location, set once validated
	Error               string
	RunAt               *time.Time // Deferred start, nil runs immediately
	StartedAt           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type JobData struct {
	SourcePath    string
	OutputPath    string
	DistinguishID string
	CallbackURL   string
}

type Activity struct {
	ID          string
	Entity      string
	EntityID    string
	Source      string
	RequestedBy string
	Activity    map[string]any
	CreatedAt   time.Time
}
