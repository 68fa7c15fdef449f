package models

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of an item submission.
type Status string

const (
	StatusBatchCreated Status = "batch_created"
	StatusSubmitted    Status = "submitted"
	StatusSubmitFailed Status = "submit_failed"
	StatusIngested     Status = "ingested"
	StatusIngestFailed Status = "ingest_failed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusBatchCreated,
	StatusSubmitted,
	StatusSubmitFailed,
	StatusIngested,
	StatusIngestFailed,
}

// ErrInvalidTransition is returned for any transition outside the lifecycle.
var ErrInvalidTransition = errors.New("invalid status transition")

// ParseStatus validates a stored or user supplied status.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// ItemSubmission is the persisted record of one item within one batch.
type ItemSubmission struct {
	BatchID               string     `gorm:"column:batch_id;type:varchar(191);primaryKey" json:"batch_id"`
	ItemIdentifier        string     `gorm:"column:item_identifier;type:varchar(191);primaryKey" json:"item_identifier"`
	WorkflowName          string     `gorm:"column:workflow_name;type:varchar(100);not null" json:"workflow_name"`
	Status                Status     `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	StatusDetails         *string    `gorm:"column:status_details;type:text" json:"status_details,omitempty"`
	SubmitAttempts        int        `gorm:"column:submit_attempts;type:int;not null;default:0" json:"submit_attempts"`
	IngestAttempts        int        `gorm:"column:ingest_attempts;type:int;not null;default:0" json:"ingest_attempts"`
	Exhausted             bool       `gorm:"column:exhausted;not null;default:false" json:"exhausted"`
	LastRunDate           time.Time  `gorm:"column:last_run_date;not null" json:"last_run_date"`
	LastSubmissionMessage *string    `gorm:"column:last_submission_message;type:text" json:"last_submission_message,omitempty"`
	LastResultMessage     *string    `gorm:"column:last_result_message;type:text" json:"last_result_message,omitempty"`
	DSpaceHandle          *string    `gorm:"column:dspace_handle;type:varchar(255)" json:"dspace_handle,omitempty"`
	IngestDate            *time.Time `gorm:"column:ingest_date" json:"ingest_date,omitempty"`
}

// TableName pins the table name across dialects.
func (ItemSubmission) TableName() string {
	return "item_submissions"
}

// Revision is the part of a record a conditional update is checked against.
type Revision struct {
	Status         Status
	SubmitAttempts int
	IngestAttempts int
}

// Revision captures the record's current revision before a transition.
func (s *ItemSubmission) Revision() Revision {
	return Revision{
		Status:         s.Status,
		SubmitAttempts: s.SubmitAttempts,
		IngestAttempts: s.IngestAttempts,
	}
}
