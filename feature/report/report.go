package report

import (
	"fmt"
	"strconv"
	"strings"

	"submission-composer/core/reconcile"
	"submission-composer/feature/batch"
	"submission-composer/feature/dispatch"
	"submission-composer/feature/finalize"
	"submission-composer/feature/submission/models"
	batchsync "submission-composer/feature/sync"
)

var countAligns = []columnAlignment{alignLeft, alignRight}

func counts(pairs ...any) string {
	rows := make([][]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		rows = append(rows, []string{fmt.Sprint(pairs[i]), fmt.Sprint(pairs[i+1])})
	}
	return renderTable([]string{"Metric", "Count"}, rows, countAligns)
}

func section(title string, parts ...string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String()
}

// Reconcile renders a reconciliation result.
func Reconcile(batchID string, r reconcile.Result) string {
	rows := make([][]string, 0, len(r.BitstreamsWithoutMetadata)+len(r.MetadataWithoutBitstreams))
	for _, id := range r.BitstreamsWithoutMetadata {
		rows = append(rows, []string{id, "bitstreams without metadata"})
	}
	for _, id := range r.MetadataWithoutBitstreams {
		rows = append(rows, []string{id, "metadata without bitstreams"})
	}

	s := r.Summary()
	parts := []string{counts(
		"reconciled", s.Reconciled,
		"bitstreams without metadata", s.BitstreamsWithoutMetadata,
		"metadata without bitstreams", s.MetadataWithoutBitstreams,
	)}
	if len(rows) > 0 {
		parts = append(parts, renderTable([]string{"Item", "Mismatch"}, rows, nil))
	}
	return section("Reconcile "+batchID, parts...)
}

// Create renders the outcome of a create pass.
func Create(r *batch.CreateReport) string {
	var rows [][]string
	for _, v := range r.Verdicts {
		if v.Complete {
			continue
		}
		id := v.ItemIdentifier
		if id == "" {
			id = "<none>"
		}
		rows = append(rows, []string{id, string(v.Reason), v.Details})
	}

	parts := []string{counts(
		"created", len(r.Created),
		"existing", len(r.Existing),
		"invalid", len(rows),
	)}
	if len(rows) > 0 {
		parts = append(parts, renderTable([]string{"Item", "Reason", "Details"}, rows, nil))
	}
	return section("Create "+r.BatchID, parts...)
}

// Submit renders the outcome of a submit pass.
func Submit(r *dispatch.Result) string {
	var rows [][]string
	for _, item := range r.Items {
		if item.Outcome == dispatch.OutcomeSubmitted || item.Outcome == dispatch.OutcomeSkipped {
			continue
		}
		rows = append(rows, []string{item.ItemIdentifier, string(item.Outcome), item.Details})
	}

	parts := []string{counts(
		"total", r.Total,
		"submitted", r.Submitted,
		"skipped", r.Skipped,
		"failed", r.Failed,
		"invalid", r.Invalid,
	)}
	if len(rows) > 0 {
		parts = append(parts, renderTable([]string{"Item", "Outcome", "Details"}, rows, nil))
	}
	return section("Submit "+r.BatchID, parts...)
}

// Finalize renders the outcome of a finalize pass.
func Finalize(r *finalize.Report) string {
	var rows [][]string
	for _, e := range r.Errors {
		detail := ""
		if e.Err != nil {
			detail = e.Err.Error()
		}
		rows = append(rows, []string{e.MessageID, e.BatchID, e.ItemIdentifier, string(e.Reason), detail})
	}

	title := "Finalize"
	if r.BatchID != "" {
		title += " " + r.BatchID
	}
	parts := []string{counts(
		"received", r.Received,
		"ingested", r.Ingested,
		"ingest_failed", r.IngestFailed,
		"exhausted", r.Exhausted,
		"skipped", r.Skipped,
		"correlation errors", len(r.Errors),
	)}
	if len(r.ExhaustedItems) > 0 {
		parts = append(parts, "Exhausted: "+strings.Join(r.ExhaustedItems, ", "))
	}
	if len(rows) > 0 {
		parts = append(parts, renderTable([]string{"Message", "Batch", "Item", "Reason", "Details"}, rows, nil))
	}
	return section(title, parts...)
}

// Status renders the per-status counts and records of a batch.
func Status(summary *batch.Summary, items []models.ItemSubmission) string {
	countRows := make([][]string, 0, len(summary.Counts)+1)
	for _, c := range summary.Counts {
		status := string(c.Status)
		if c.Exhausted {
			status += " (exhausted)"
		}
		countRows = append(countRows, []string{status, strconv.FormatInt(c.Count, 10)})
	}
	countRows = append(countRows, []string{"total", strconv.FormatInt(summary.Total, 10)})

	itemRows := make([][]string, 0, len(items))
	for _, it := range items {
		handle := ""
		if it.DSpaceHandle != nil {
			handle = *it.DSpaceHandle
		}
		itemRows = append(itemRows, []string{
			it.ItemIdentifier,
			string(it.Status),
			strconv.Itoa(it.SubmitAttempts),
			strconv.Itoa(it.IngestAttempts),
			handle,
			it.LastRunDate.UTC().Format("2006-01-02 15:04:05"),
		})
	}

	parts := []string{renderTable([]string{"Status", "Count"}, countRows, countAligns)}
	if len(itemRows) > 0 {
		parts = append(parts, renderTable(
			[]string{"Item", "Status", "Submits", "Ingests", "Handle", "Last Run"},
			itemRows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
		))
	}
	return section("Status "+summary.BatchID, parts...)
}

// Sync renders the operations of a sync.
func Sync(r *batchsync.Report) string {
	rows := make([][]string, 0, len(r.Operations))
	for _, op := range r.Operations {
		rows = append(rows, []string{string(op.Action), op.Key, strconv.FormatInt(op.Size, 10)})
	}

	title := "Sync " + r.Source.String() + " -> " + r.Destination.String()
	if r.DryRun {
		title += " (dry run)"
	}
	parts := []string{counts(
		"planned", len(r.Operations),
		"copied", r.Copied,
		"deleted", r.Deleted,
		"unchanged", r.Unchanged,
	)}
	if len(rows) > 0 {
		parts = append(parts, renderTable([]string{"Action", "Key", "Size"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
	}
	return section(title, parts...)
}
