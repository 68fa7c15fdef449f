package finalize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"submission-composer/core/queue"
	"submission-composer/feature/submission/models"
	"submission-composer/feature/submission/store"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Reason classifies a correlation error.
type Reason string

const (
	ReasonInvalidMessage    Reason = "invalid message"
	ReasonRecordNotFound    Reason = "record not found"
	ReasonLookupFailed      Reason = "record lookup failed"
	ReasonNotSubmitted      Reason = "record not submitted"
	ReasonInvalidTransition Reason = "invalid transition"
	ReasonUpdateConflict    Reason = "update conflict"
	ReasonUpdateFailed      Reason = "update failed"
	ReasonDeleteFailed      Reason = "delete failed"
)

// CorrelationError describes a result message that could not be applied,
// or whose deletion failed after it was applied. The message is retained.
type CorrelationError struct {
	MessageID      string `json:"message_id"`
	BatchID        string `json:"batch_id,omitempty"`
	ItemIdentifier string `json:"item_identifier,omitempty"`
	Reason         Reason `json:"reason"`
	Err            error  `json:"-"`
}

func (e *CorrelationError) Error() string {
	item := e.ItemIdentifier
	if e.BatchID != "" {
		item = e.BatchID + "/" + item
	}
	if item == "" {
		item = "message " + e.MessageID
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", item, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", item, e.Reason)
}

func (e *CorrelationError) Unwrap() error {
	return e.Err
}

// Records is the part of the record store the finalize pass uses.
type Records interface {
	Get(ctx context.Context, batchID, itemIdentifier string) (*models.ItemSubmission, error)
	Update(ctx context.Context, item *models.ItemSubmission, prev models.Revision) error
}

// Report summarizes a finalize pass.
type Report struct {
	BatchID        string              `json:"batch_id,omitempty"`
	Polls          int                 `json:"polls"`
	Received       int                 `json:"received"`
	Ingested       int                 `json:"ingested"`
	IngestFailed   int                 `json:"ingest_failed"`
	Exhausted      int                 `json:"exhausted"`
	Skipped        int                 `json:"skipped"`
	ExhaustedItems []string            `json:"exhausted_items,omitempty"`
	Errors         []*CorrelationError `json:"errors,omitempty"`
}

// Options bound a finalize pass.
type Options struct {
	// BatchID limits the pass to one batch. Messages of other batches are
	// left on the queue and counted as skipped. Empty accepts every batch.
	BatchID string
	// MaxMessages caps each receive.
	MaxMessages int
	// MaxPolls caps the receives of the pass.
	MaxPolls int
}

// Correlator applies result messages to item submission records.
type Correlator struct {
	records        Records
	receiver       queue.Receiver
	parser         *Parser
	retryThreshold int
	logger         *zap.Logger
	now            func() time.Time
}

// NewCorrelator creates a finalize pass runner.
func NewCorrelator(records Records, receiver queue.Receiver, retryThreshold int, logger *zap.Logger) *Correlator {
	return &Correlator{
		records:        records,
		receiver:       receiver,
		parser:         NewParser(),
		retryThreshold: retryThreshold,
		logger:         logger,
		now:            time.Now,
	}
}

// Finalize polls the result queue until a poll returns nothing or MaxPolls
// is reached. Redeliveries of a message already handled in this pass are
// ignored. A message is deleted only after its transition is persisted.
// Correlation errors are aggregated into the returned error; a failing
// receive aborts the pass.
func (c *Correlator) Finalize(ctx context.Context, opts Options) (*Report, error) {
	maxMessages := opts.MaxMessages
	if maxMessages <= 0 {
		maxMessages = 10
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = 1
	}

	report := &Report{BatchID: opts.BatchID}
	seen := make(map[string]struct{})
	var errs error

	for report.Polls < maxPolls {
		msgs, err := c.receiver.Receive(ctx, maxMessages)
		report.Polls++
		if err != nil {
			return report, multierr.Append(errs, fmt.Errorf("failed to receive result messages: %w", err))
		}
		if len(msgs) == 0 {
			break
		}
		for _, msg := range msgs {
			if _, dup := seen[msg.ID]; dup {
				continue
			}
			seen[msg.ID] = struct{}{}
			report.Received++
			if cerr := c.handle(ctx, msg, opts.BatchID, report); cerr != nil {
				c.logger.Warn("Result message retained",
					zap.String("message_id", msg.ID),
					zap.String("batch_id", cerr.BatchID),
					zap.String("item_identifier", cerr.ItemIdentifier),
					zap.String("reason", string(cerr.Reason)),
					zap.Error(cerr.Err))
				report.Errors = append(report.Errors, cerr)
				errs = multierr.Append(errs, cerr)
			}
		}
	}

	c.logger.Info("Finalize pass finished",
		zap.String("batch_id", opts.BatchID),
		zap.Int("polls", report.Polls),
		zap.Int("received", report.Received),
		zap.Int("ingested", report.Ingested),
		zap.Int("ingest_failed", report.IngestFailed),
		zap.Int("exhausted", report.Exhausted),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", len(report.Errors)))
	return report, errs
}

func (c *Correlator) handle(ctx context.Context, msg queue.Message, batchFilter string, report *Report) *CorrelationError {
	cerr := &CorrelationError{
		MessageID:      msg.ID,
		BatchID:        msg.Attributes[AttrBatchID],
		ItemIdentifier: msg.Attributes[AttrPackageID],
	}
	// Only messages naming another batch are left for that batch's pass;
	// a message without a batch fails parsing below and is reported.
	if batchFilter != "" && cerr.BatchID != "" && cerr.BatchID != batchFilter {
		report.Skipped++
		return nil
	}

	res, err := c.parser.Parse(msg)
	if err != nil {
		cerr.Reason, cerr.Err = ReasonInvalidMessage, err
		return cerr
	}

	item, err := c.records.Get(ctx, res.Attributes.BatchID, res.Attributes.PackageID)
	if errors.Is(err, store.ErrNotFound) {
		cerr.Reason, cerr.Err = ReasonRecordNotFound, err
		return cerr
	}
	if err != nil {
		cerr.Reason, cerr.Err = ReasonLookupFailed, err
		return cerr
	}
	if item.Status != models.StatusSubmitted {
		cerr.Reason = ReasonNotSubmitted
		cerr.Err = fmt.Errorf("status is %s", item.Status)
		return cerr
	}

	prev := item.Revision()
	if err := c.apply(item, res); err != nil {
		cerr.Reason, cerr.Err = ReasonInvalidTransition, err
		return cerr
	}
	if err := c.records.Update(ctx, item, prev); err != nil {
		cerr.Reason, cerr.Err = ReasonUpdateFailed, err
		if errors.Is(err, store.ErrConflict) {
			cerr.Reason = ReasonUpdateConflict
		}
		return cerr
	}

	if item.Status == models.StatusIngested {
		report.Ingested++
	} else {
		report.IngestFailed++
		if item.Exhausted {
			report.Exhausted++
			report.ExhaustedItems = append(report.ExhaustedItems, item.BatchID+"/"+item.ItemIdentifier)
		}
	}

	if err := c.receiver.Delete(ctx, msg.ID); err != nil {
		cerr.Reason, cerr.Err = ReasonDeleteFailed, err
		return cerr
	}
	return nil
}

func (c *Correlator) apply(item *models.ItemSubmission, res *Result) error {
	now := c.now()
	if res.Succeeded() {
		return item.MarkIngested(res.Body.ItemHandle, res.Raw, now)
	}
	return item.MarkIngestFailed(res.Body.ErrorInfo, res.Raw, c.retryThreshold, now)
}
