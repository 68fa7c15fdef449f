package batch

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"submission-composer/core/reconcile"
	"submission-composer/feature/metadata"
)

// ErrBatchInvalid is wrapped by every ValidationError.
var ErrBatchInvalid = errors.New("batch is invalid")

// Reason explains why an item is not ready for creation.
type Reason string

const (
	ReasonMissingBitstreams Reason = "missing bitstreams"
	ReasonMissingMetadata   Reason = "missing metadata"
	ReasonDuplicateMetadata Reason = "duplicate metadata"
	ReasonMissingIdentifier Reason = "missing item identifier"
	ReasonInvalidMetadata   Reason = "invalid metadata"
)

// Verdict is the validation outcome of one item identifier.
type Verdict struct {
	ItemIdentifier string `json:"item_identifier"`
	Complete       bool   `json:"complete"`
	Reason         Reason `json:"reason,omitempty"`
	Details        string `json:"details,omitempty"`
}

func (v Verdict) String() string {
	id := v.ItemIdentifier
	if id == "" {
		id = "<none>"
	}
	if v.Complete {
		return id + ": complete"
	}
	if v.Details != "" {
		return fmt.Sprintf("%s: %s: %s", id, v.Reason, v.Details)
	}
	return fmt.Sprintf("%s: %s", id, v.Reason)
}

// ValidationError lists every invalid item of a rejected batch.
type ValidationError struct {
	BatchID string
	Invalid []Verdict
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Invalid))
	for _, v := range e.Invalid {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("batch %s has %d invalid item(s): %s", e.BatchID, len(e.Invalid), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrBatchInvalid
}

// Inventory is the typed view of a loaded batch snapshot.
type Inventory struct {
	BatchID    string
	Bitstreams map[string][]string
	Metadata   map[string][]metadata.SourceRecord
}

// NewInventory converts a snapshot produced by Loader.
func NewInventory(batchID string, snap *reconcile.Snapshot) *Inventory {
	inv := &Inventory{
		BatchID:    batchID,
		Bitstreams: snap.Bitstreams,
		Metadata:   make(map[string][]metadata.SourceRecord, len(snap.Metadata)),
	}
	if inv.Bitstreams == nil {
		inv.Bitstreams = map[string][]string{}
	}
	for id, item := range snap.Metadata {
		rows, _ := item.([]metadata.SourceRecord)
		inv.Metadata[id] = rows
	}
	return inv
}

// Validation is the outcome of validating an inventory.
type Validation struct {
	Reconcile reconcile.Result `json:"reconcile"`
	Verdicts  []Verdict        `json:"verdicts"`
}

// Invalid returns the verdicts that block creation.
func (v Validation) Invalid() []Verdict {
	var out []Verdict
	for _, verdict := range v.Verdicts {
		if !verdict.Complete {
			out = append(out, verdict)
		}
	}
	return out
}

// Complete returns the identifiers ready for creation, sorted.
func (v Validation) Complete() []string {
	var out []string
	for _, verdict := range v.Verdicts {
		if verdict.Complete {
			out = append(out, verdict.ItemIdentifier)
		}
	}
	return out
}

// Validate classifies every identifier of the inventory. Matching is exact
// set membership. A nil transformer skips the metadata mapping check.
func Validate(inv *Inventory, tr *metadata.Transformer) Validation {
	bitstreams := reconcile.NewSet()
	for id := range inv.Bitstreams {
		bitstreams[id] = struct{}{}
	}
	metadataIDs := reconcile.NewSet()
	for id := range inv.Metadata {
		if id != "" {
			metadataIDs[id] = struct{}{}
		}
	}

	result := reconcile.Reconcile(bitstreams, metadataIDs)
	verdicts := make([]Verdict, 0, len(bitstreams)+len(metadataIDs)+1)

	if rows := inv.Metadata[""]; len(rows) > 0 {
		verdicts = append(verdicts, Verdict{
			Reason:  ReasonMissingIdentifier,
			Details: fmt.Sprintf("%d metadata row(s)", len(rows)),
		})
	}
	for _, id := range result.MetadataWithoutBitstreams {
		verdicts = append(verdicts, Verdict{ItemIdentifier: id, Reason: ReasonMissingBitstreams})
	}
	for _, id := range result.BitstreamsWithoutMetadata {
		verdicts = append(verdicts, Verdict{ItemIdentifier: id, Reason: ReasonMissingMetadata})
	}
	for _, id := range result.Reconciled {
		verdicts = append(verdicts, checkItem(id, inv.Metadata[id], tr))
	}

	sort.SliceStable(verdicts, func(i, j int) bool {
		return verdicts[i].ItemIdentifier < verdicts[j].ItemIdentifier
	})
	return Validation{Reconcile: result, Verdicts: verdicts}
}

func checkItem(id string, rows []metadata.SourceRecord, tr *metadata.Transformer) Verdict {
	if len(rows) > 1 {
		return Verdict{
			ItemIdentifier: id,
			Reason:         ReasonDuplicateMetadata,
			Details:        fmt.Sprintf("%d metadata rows", len(rows)),
		}
	}
	if tr != nil && len(rows) == 1 {
		if _, err := tr.Transform(rows[0]); err != nil {
			return Verdict{ItemIdentifier: id, Reason: ReasonInvalidMetadata, Details: err.Error()}
		}
	}
	return Verdict{ItemIdentifier: id, Complete: true}
}
