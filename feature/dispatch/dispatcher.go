package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"submission-composer/core/queue"
	"submission-composer/core/reconcile"
	"submission-composer/core/storage"
	"submission-composer/core/workflow"
	"submission-composer/feature/batch"
	"submission-composer/feature/metadata"
	"submission-composer/feature/submission/models"
	"submission-composer/feature/submission/store"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrNoCollection is returned when a submit pass has no target collection.
var ErrNoCollection = errors.New("collection handle is required")

// Records is the part of the record store the submit pass uses.
type Records interface {
	ListBatch(ctx context.Context, batchID string) ([]models.ItemSubmission, error)
	Update(ctx context.Context, item *models.ItemSubmission, prev models.Revision) error
}

// Outcome is what a submit pass did with one record.
type Outcome string

const (
	OutcomeSubmitted    Outcome = "submitted"
	OutcomeSubmitFailed Outcome = "submit_failed"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeInvalid      Outcome = "invalid"
	OutcomeConflict     Outcome = "conflict"
)

// ItemResult is the outcome of one record.
type ItemResult struct {
	ItemIdentifier string  `json:"item_identifier"`
	Outcome        Outcome `json:"outcome"`
	MessageID      string  `json:"message_id,omitempty"`
	Details        string  `json:"details,omitempty"`
}

// Result summarizes a submit pass.
type Result struct {
	BatchID   string       `json:"batch_id"`
	Total     int          `json:"total"`
	Submitted int          `json:"submitted"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Invalid   int          `json:"invalid"`
	Items     []ItemResult `json:"items"`
}

func (r *Result) add(item ItemResult) {
	r.Items = append(r.Items, item)
	switch item.Outcome {
	case OutcomeSubmitted:
		r.Submitted++
	case OutcomeSubmitFailed, OutcomeConflict:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeInvalid:
		r.Invalid++
	}
}

// Options select the batch and target collection of a submit pass.
type Options struct {
	BatchID          string
	CollectionHandle string
}

// Dispatcher runs the submit pass.
type Dispatcher struct {
	records     Records
	client      storage.Client
	bucket      string
	sender      queue.Sender
	loader      reconcile.Loader
	transformer *metadata.Transformer
	workflow    workflow.Config
	outputQueue string
	logger      *zap.Logger
	now         func() time.Time
}

// Config wires a Dispatcher.
type Config struct {
	Records     Records
	Client      storage.Client
	Bucket      string
	Sender      queue.Sender
	Loader      reconcile.Loader
	Transformer *metadata.Transformer
	Workflow    workflow.Config
	OutputQueue string
	Logger      *zap.Logger
}

// NewDispatcher creates a submit pass runner.
func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{
		records:     cfg.Records,
		client:      cfg.Client,
		bucket:      cfg.Bucket,
		sender:      cfg.Sender,
		loader:      cfg.Loader,
		transformer: cfg.Transformer,
		workflow:    cfg.Workflow,
		outputQueue: cfg.OutputQueue,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// Submit dispatches every eligible record of the batch in item order.
// Per-item failures do not stop the pass; they are aggregated into the
// returned error alongside a complete Result.
func (d *Dispatcher) Submit(ctx context.Context, opts Options) (*Result, error) {
	handle := opts.CollectionHandle
	if handle == "" {
		handle = d.workflow.CollectionHandle
	}
	if handle == "" {
		return nil, ErrNoCollection
	}

	items, err := d.records.ListBatch(ctx, opts.BatchID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no records for batch %s", store.ErrNotFound, opts.BatchID)
	}

	spec := &reconcile.Spec{Loader: d.loader, Prefix: d.workflow.BatchPath(opts.BatchID)}
	snap, err := reconcile.BuildSnapshot(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", opts.BatchID, err)
	}
	inv := batch.NewInventory(opts.BatchID, snap)

	result := &Result{BatchID: opts.BatchID, Total: len(items)}
	var errs error
	for i := range items {
		item := &items[i]
		res, err := d.submitItem(ctx, inv, item, handle)
		result.add(res)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", item.ItemIdentifier, err))
		}
	}

	d.logger.Info("Submit pass finished",
		zap.String("batch_id", opts.BatchID),
		zap.Int("total", result.Total),
		zap.Int("submitted", result.Submitted),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("invalid", result.Invalid))
	return result, errs
}

func (d *Dispatcher) submitItem(ctx context.Context, inv *batch.Inventory, item *models.ItemSubmission, handle string) (ItemResult, error) {
	res := ItemResult{ItemIdentifier: item.ItemIdentifier}
	l := d.logger.With(zap.String("batch_id", item.BatchID), zap.String("item_identifier", item.ItemIdentifier))

	if !item.EligibleForSubmit() {
		res.Outcome = OutcomeSkipped
		res.Details = string(item.Status)
		if item.Exhausted {
			res.Details += " (exhausted)"
		}
		return res, nil
	}

	doc, bitstreams, err := d.prepare(inv, item.ItemIdentifier)
	if err != nil {
		l.Warn("Item excluded from dispatch", zap.Error(err))
		res.Outcome = OutcomeInvalid
		res.Details = err.Error()
		return res, err
	}

	msgID, body, err := d.send(ctx, item, doc, bitstreams, handle)
	prev := item.Revision()
	now := d.now()
	if err != nil {
		l.Warn("Dispatch failed", zap.Error(err))
		res.Outcome = OutcomeSubmitFailed
		res.Details = err.Error()
		if terr := item.MarkSubmitFailed(err.Error(), now); terr != nil {
			return res, terr
		}
		if uerr := d.records.Update(ctx, item, prev); uerr != nil {
			res.Outcome = OutcomeConflict
			return res, multierr.Append(err, uerr)
		}
		return res, err
	}

	if err := item.MarkSubmitted(string(body), now); err != nil {
		return res, err
	}
	if err := d.records.Update(ctx, item, prev); err != nil {
		l.Error("Submitted item could not be recorded", zap.String("message_id", msgID), zap.Error(err))
		res.Outcome = OutcomeConflict
		res.MessageID = msgID
		res.Details = err.Error()
		return res, err
	}

	l.Debug("Item submitted", zap.String("message_id", msgID))
	res.Outcome = OutcomeSubmitted
	res.MessageID = msgID
	return res, nil
}

// prepare transforms the item's metadata row. Items it rejects are left
// untouched in the record store.
func (d *Dispatcher) prepare(inv *batch.Inventory, id string) (*metadata.Document, []string, error) {
	rows := inv.Metadata[id]
	switch {
	case len(rows) == 0:
		return nil, nil, errors.New(string(batch.ReasonMissingMetadata))
	case len(rows) > 1:
		return nil, nil, fmt.Errorf("%s: %d metadata rows", batch.ReasonDuplicateMetadata, len(rows))
	}
	bitstreams := inv.Bitstreams[id]
	if len(bitstreams) == 0 {
		return nil, nil, errors.New(string(batch.ReasonMissingBitstreams))
	}
	doc, err := d.transformer.Transform(rows[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", batch.ReasonInvalidMetadata, err)
	}
	return doc, bitstreams, nil
}

// send persists the metadata document, then publishes the submission message.
func (d *Dispatcher) send(ctx context.Context, item *models.ItemSubmission, doc *metadata.Document, bitstreams []string, handle string) (string, []byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode metadata document: %w", err)
	}
	key := d.workflow.DocumentKey(item.BatchID, item.ItemIdentifier)
	if err := storage.WriteObject(ctx, d.client, d.bucket, key, "application/json", data); err != nil {
		return "", nil, err
	}

	msg := NewSubmission(MessageParams{
		Bucket:           d.bucket,
		BatchID:          item.BatchID,
		ItemIdentifier:   item.ItemIdentifier,
		Workflow:         d.workflow.Name,
		OutputQueue:      d.outputQueue,
		SubmissionSystem: d.workflow.SubmissionSystem,
		CollectionHandle: handle,
		MetadataKey:      key,
		BitstreamKeys:    bitstreams,
	})
	body, err := msg.Encode()
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode submission message: %w", err)
	}
	msgID, err := d.sender.Send(ctx, msg.Attributes, body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to send submission message: %w", err)
	}
	return msgID, body, nil
}
