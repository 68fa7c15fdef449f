package models

import (
	"fmt"
	"time"
)

// NewItemSubmission returns a fresh record in batch_created.
func NewItemSubmission(batchID, itemIdentifier, workflow string, now time.Time) *ItemSubmission {
	return &ItemSubmission{
		BatchID:        batchID,
		ItemIdentifier: itemIdentifier,
		WorkflowName:   workflow,
		Status:         StatusBatchCreated,
		LastRunDate:    now.UTC(),
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s *ItemSubmission) IsTerminal() bool {
	return s.Status == StatusIngested || (s.Status == StatusIngestFailed && s.Exhausted)
}

// EligibleForSubmit reports whether the submit pass should dispatch the record.
func (s *ItemSubmission) EligibleForSubmit() bool {
	switch s.Status {
	case StatusBatchCreated, StatusSubmitFailed:
		return true
	case StatusIngestFailed:
		return !s.Exhausted
	default:
		return false
	}
}

// MarkSubmitted applies a successful dispatch.
func (s *ItemSubmission) MarkSubmitted(message string, now time.Time) error {
	if err := s.checkDispatchable(StatusSubmitted); err != nil {
		return err
	}
	s.Status = StatusSubmitted
	s.SubmitAttempts++
	s.StatusDetails = nil
	s.LastSubmissionMessage = &message
	s.LastRunDate = now.UTC()
	return nil
}

// MarkSubmitFailed applies a failed dispatch.
func (s *ItemSubmission) MarkSubmitFailed(details string, now time.Time) error {
	if err := s.checkDispatchable(StatusSubmitFailed); err != nil {
		return err
	}
	s.Status = StatusSubmitFailed
	s.SubmitAttempts++
	s.StatusDetails = &details
	s.LastRunDate = now.UTC()
	return nil
}

// MarkIngested applies a success result. The handle is recorded once.
func (s *ItemSubmission) MarkIngested(handle, rawMessage string, now time.Time) error {
	if s.Status != StatusSubmitted {
		return s.invalid(StatusIngested)
	}
	if s.DSpaceHandle != nil && *s.DSpaceHandle != handle {
		return fmt.Errorf("%w: handle already set to %s", ErrInvalidTransition, *s.DSpaceHandle)
	}
	ts := now.UTC()
	s.Status = StatusIngested
	s.IngestAttempts++
	s.DSpaceHandle = &handle
	s.IngestDate = &ts
	s.StatusDetails = nil
	s.LastResultMessage = &rawMessage
	s.LastRunDate = ts
	return nil
}

// MarkIngestFailed applies an error result. Reaching retryThreshold ingest
// attempts flags the record exhausted, which makes the failure terminal.
func (s *ItemSubmission) MarkIngestFailed(details, rawMessage string, retryThreshold int, now time.Time) error {
	if s.Status != StatusSubmitted {
		return s.invalid(StatusIngestFailed)
	}
	s.Status = StatusIngestFailed
	s.IngestAttempts++
	s.StatusDetails = &details
	s.LastResultMessage = &rawMessage
	s.LastRunDate = now.UTC()
	if retryThreshold > 0 && s.IngestAttempts >= retryThreshold {
		s.Exhausted = true
	}
	return nil
}

func (s *ItemSubmission) checkDispatchable(to Status) error {
	if !s.EligibleForSubmit() {
		return s.invalid(to)
	}
	return nil
}

func (s *ItemSubmission) invalid(to Status) error {
	from := string(s.Status)
	if s.Status == StatusIngestFailed && s.Exhausted {
		from += " (exhausted)"
	}
	return fmt.Errorf("%w: %s -> %s for %s/%s", ErrInvalidTransition, from, to, s.BatchID, s.ItemIdentifier)
}
