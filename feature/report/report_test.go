package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"submission-composer/core/reconcile"
	"submission-composer/feature/batch"
	"submission-composer/feature/dispatch"
	"submission-composer/feature/finalize"
	"submission-composer/feature/submission/models"
	"submission-composer/feature/submission/store"
	batchsync "submission-composer/feature/sync"

	"github.com/stretchr/testify/assert"
)

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "3"}}, []columnAlignment{alignLeft, alignRight})
	assert.True(t, strings.HasPrefix(out, "╭"))
	assert.Contains(t, out, "│ A │ B │")
	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestReconcile(t *testing.T) {
	out := Reconcile("b1", reconcile.Result{
		Reconciled:                []string{"a"},
		BitstreamsWithoutMetadata: []string{"c"},
		MetadataWithoutBitstreams: []string{"b"},
	})
	assert.True(t, strings.HasPrefix(out, "Reconcile b1\n"))
	assert.Contains(t, out, "bitstreams without metadata")
	assert.Contains(t, out, "│ b    │ metadata without bitstreams │")
}

func TestCreate(t *testing.T) {
	out := Create(&batch.CreateReport{
		BatchID:  "b1",
		Verdicts: []batch.Verdict{{ItemIdentifier: "a", Complete: true}, {Reason: batch.ReasonMissingIdentifier, Details: "1 metadata row(s)"}},
	})
	assert.Contains(t, out, "<none>")
	assert.Contains(t, out, "missing item identifier")
	assert.NotContains(t, out, "│ a ")
}

func TestSubmit(t *testing.T) {
	out := Submit(&dispatch.Result{
		BatchID: "b1", Total: 2, Submitted: 1, Failed: 1,
		Items: []dispatch.ItemResult{
			{ItemIdentifier: "a", Outcome: dispatch.OutcomeSubmitted},
			{ItemIdentifier: "b", Outcome: dispatch.OutcomeSubmitFailed, Details: "timeout"},
		},
	})
	assert.Contains(t, out, "submit_failed")
	assert.Contains(t, out, "timeout")
}

func TestFinalize(t *testing.T) {
	out := Finalize(&finalize.Report{
		Received: 2, Ingested: 1, Exhausted: 1,
		ExhaustedItems: []string{"b1/b"},
		Errors: []*finalize.CorrelationError{
			{MessageID: "3-0", BatchID: "b1", ItemIdentifier: "a", Reason: finalize.ReasonNotSubmitted, Err: errors.New("status is ingested")},
		},
	})
	assert.True(t, strings.HasPrefix(out, "Finalize\n"))
	assert.Contains(t, out, "Exhausted: b1/b")
	assert.Contains(t, out, "status is ingested")
}

func TestStatus(t *testing.T) {
	handle := "1721.1/1"
	out := Status(
		&batch.Summary{BatchID: "b1", Total: 2, Counts: []store.StatusCount{
			{Status: models.StatusIngested, Count: 1},
			{Status: models.StatusIngestFailed, Exhausted: true, Count: 1},
		}},
		[]models.ItemSubmission{{
			ItemIdentifier: "a",
			Status:         models.StatusIngested,
			SubmitAttempts: 1,
			IngestAttempts: 1,
			DSpaceHandle:   &handle,
			LastRunDate:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}},
	)
	assert.Contains(t, out, "ingest_failed (exhausted)")
	assert.Contains(t, out, "1721.1/1")
	assert.Contains(t, out, "2024-05-01 12:00:00")
}

func TestSync(t *testing.T) {
	out := Sync(&batchsync.Report{
		Source:      batchsync.NewLocation("staging", "simple-csv/b1"),
		Destination: batchsync.NewLocation("dsc", "simple-csv/b1"),
		DryRun:      true,
		Operations:  []batchsync.Operation{{Action: batchsync.ActionDelete, Key: "c.pdf", Size: 50}},
		Unchanged:   2,
	})
	assert.True(t, strings.HasPrefix(out, "Sync s3://staging/simple-csv/b1/ -> s3://dsc/simple-csv/b1/ (dry run)\n"))
	assert.Contains(t, out, "│ delete │ c.pdf │   50 │")
	assert.Contains(t, out, "│ unchanged │     2 │")
}
