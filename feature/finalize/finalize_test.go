package finalize_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"submission-composer/core/database"
	"submission-composer/core/queue"
	"submission-composer/core/queue/mocks"
	"submission-composer/feature/finalize"
	"submission-composer/feature/submission/models"
	"submission-composer/feature/submission/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const (
	successBody = `{"ResultType":"success","ItemHandle":"1721.1/131022","lastModified":"Thu Sep 09 17:56:39 UTC 2021","Bitstreams":[]}`
	errorBody   = `{"ResultType":"error","ErrorTimestamp":"2024-05-01","ErrorInfo":"Error occurred while posting item to DSpace","DSpaceResponse":"N/A","ExceptionTraceback":["line 1"]}`
)

func message(id, batchID, item, body string) queue.Message {
	return queue.Message{
		ID: id,
		Attributes: map[string]string{
			finalize.AttrPackageID:        item,
			finalize.AttrBatchID:          batchID,
			finalize.AttrSubmissionSource: "simple-csv",
		},
		Body: body,
	}
}

// setupStore creates records in submitted.
func setupStore(t *testing.T, ids ...string) *store.Store {
	t.Helper()
	ctx := context.Background()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	st := store.New(db)
	require.NoError(t, st.Migrate(ctx))
	for _, id := range ids {
		item := models.NewItemSubmission("b1", id, "simple-csv", now)
		require.NoError(t, st.Create(ctx, item))
		resubmit(t, st, id)
	}
	return st
}

func resubmit(t *testing.T, st *store.Store, id string) {
	t.Helper()
	item, err := st.Get(context.Background(), "b1", id)
	require.NoError(t, err)
	prev := item.Revision()
	require.NoError(t, item.MarkSubmitted("{}", now))
	require.NoError(t, st.Update(context.Background(), item, prev))
}

// queueOf serves the batches of messages in order, then an empty poll.
func queueOf(batches ...[]queue.Message) *mocks.Receiver {
	r := new(mocks.Receiver)
	for _, b := range batches {
		r.On("Receive", mock.Anything, 10).Return(b, nil).Once()
	}
	r.On("Receive", mock.Anything, 10).Return([]queue.Message{}, nil)
	return r
}

func run(t *testing.T, st finalize.Records, r *mocks.Receiver, batchID string) (*finalize.Report, error) {
	t.Helper()
	c := finalize.NewCorrelator(st, r, 3, zap.NewNop())
	return c.Finalize(context.Background(), finalize.Options{BatchID: batchID, MaxMessages: 10, MaxPolls: 5})
}

func TestParser(t *testing.T) {
	p := finalize.NewParser()

	res, err := p.Parse(message("1", "b1", "a", successBody))
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "1721.1/131022", res.Body.ItemHandle)

	res, err = p.Parse(message("2", "b1", "a", errorBody))
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	assert.Equal(t, []string{"line 1"}, res.Body.ExceptionTraceback)

	invalid := map[string]queue.Message{
		"MissingHandle":     message("3", "b1", "a", `{"ResultType":"success","lastModified":"x"}`),
		"MissingErrorInfo":  message("4", "b1", "a", `{"ResultType":"error"}`),
		"UnknownResultType": message("5", "b1", "a", `{"ResultType":"pending","ErrorInfo":"x"}`),
		"MissingBatchID":    message("6", "", "a", successBody),
		"MalformedBody":     message("7", "b1", "a", `{"ResultType":`),
	}
	for name, msg := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := p.Parse(msg)
			assert.Error(t, err)
		})
	}
}

func TestFinalize_AppliesAndDeletes(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "a", "b")
	r := queueOf([]queue.Message{
		message("1-0", "b1", "a", successBody),
		message("2-0", "b1", "b", errorBody),
	})
	r.On("Delete", mock.Anything, "1-0").Return(nil).Once()
	r.On("Delete", mock.Anything, "2-0").Return(nil).Once()

	report, err := run(t, st, r, "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Polls)
	assert.Equal(t, 2, report.Received)
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 1, report.IngestFailed)
	assert.Zero(t, report.Exhausted)

	a, err := st.Get(ctx, "b1", "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusIngested, a.Status)
	require.NotNil(t, a.DSpaceHandle)
	assert.Equal(t, "1721.1/131022", *a.DSpaceHandle)
	assert.NotNil(t, a.IngestDate)
	assert.Equal(t, successBody, *a.LastResultMessage)

	b, err := st.Get(ctx, "b1", "b")
	require.NoError(t, err)
	assert.Equal(t, models.StatusIngestFailed, b.Status)
	assert.Equal(t, 1, b.IngestAttempts)
	assert.False(t, b.Exhausted)
	assert.True(t, b.EligibleForSubmit())
	assert.Equal(t, "Error occurred while posting item to DSpace", *b.StatusDetails)
	r.AssertExpectations(t)
}

func TestFinalize_DuplicateDeliveryAppliesOnce(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "a")
	r := queueOf(
		[]queue.Message{message("1-0", "b1", "a", successBody)},
		// Same id redelivered within the run, then a second copy of the result.
		[]queue.Message{message("1-0", "b1", "a", successBody), message("3-0", "b1", "a", successBody)},
	)
	r.On("Delete", mock.Anything, "1-0").Return(nil).Once()

	report, err := run(t, st, r, "")
	require.Error(t, err)
	assert.Equal(t, 2, report.Received)
	assert.Equal(t, 1, report.Ingested)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "3-0", report.Errors[0].MessageID)
	assert.Equal(t, finalize.ReasonNotSubmitted, report.Errors[0].Reason)
	r.AssertNotCalled(t, "Delete", mock.Anything, "3-0")

	a, err := st.Get(ctx, "b1", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, a.IngestAttempts)
}

func TestFinalize_RetryThreshold(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t, "a")

	for i := 1; i <= 3; i++ {
		if i > 1 {
			resubmit(t, st, "a")
		}
		r := queueOf([]queue.Message{message("e", "b1", "a", errorBody)})
		r.On("Delete", mock.Anything, "e").Return(nil).Once()

		report, err := run(t, st, r, "b1")
		require.NoError(t, err)

		a, err := st.Get(ctx, "b1", "a")
		require.NoError(t, err)
		assert.Equal(t, models.StatusIngestFailed, a.Status)
		assert.Equal(t, i, a.IngestAttempts)
		if i < 3 {
			assert.False(t, a.Exhausted)
			assert.True(t, a.EligibleForSubmit())
			assert.Zero(t, report.Exhausted)
		} else {
			assert.True(t, a.Exhausted)
			assert.False(t, a.EligibleForSubmit())
			assert.True(t, a.IsTerminal())
			assert.Equal(t, 1, report.Exhausted)
			assert.Equal(t, []string{"b1/a"}, report.ExhaustedItems)
		}
	}

	r := queueOf([]queue.Message{message("e4", "b1", "a", errorBody)})
	report, err := run(t, st, r, "b1")
	assert.Error(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, finalize.ReasonNotSubmitted, report.Errors[0].Reason)
	r.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	a, err := st.Get(ctx, "b1", "a")
	require.NoError(t, err)
	assert.Equal(t, 3, a.IngestAttempts)
}

func TestFinalize_RetainsUnappliedMessages(t *testing.T) {
	st := setupStore(t, "a")
	r := queueOf([]queue.Message{
		message("1-0", "b2", "x", successBody),
		message("2-0", "b1", "a", `{"ResultType":"queued"}`),
		message("3-0", "b1", "missing", successBody),
	})

	report, err := run(t, st, r, "b1")
	require.Error(t, err)
	assert.Equal(t, 3, report.Received)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, finalize.ReasonInvalidMessage, report.Errors[0].Reason)
	assert.Equal(t, finalize.ReasonRecordNotFound, report.Errors[1].Reason)
	assert.ErrorIs(t, err, store.ErrNotFound)
	r.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	a, err := st.Get(context.Background(), "b1", "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, a.Status)
}

func TestFinalize_MessageWithoutBatchIsReportedUnderFilter(t *testing.T) {
	st := setupStore(t, "a")
	r := queueOf([]queue.Message{{
		ID:         "9-0",
		Attributes: map[string]string{finalize.AttrPackageID: "a"},
		Body:       successBody,
	}})

	report, err := run(t, st, r, "b1")
	require.Error(t, err)
	assert.Zero(t, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "9-0", report.Errors[0].MessageID)
	assert.Equal(t, finalize.ReasonInvalidMessage, report.Errors[0].Reason)
	r.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	a, err := st.Get(context.Background(), "b1", "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, a.Status)
}

func TestFinalize_ContinuesPastRedeliveredOnlyPoll(t *testing.T) {
	st := setupStore(t, "a", "b")
	r := queueOf(
		[]queue.Message{message("1-0", "b1", "a", `{"ResultType":"queued"}`)},
		// The retained message is reclaimed alone before new entries are read.
		[]queue.Message{message("1-0", "b1", "a", `{"ResultType":"queued"}`)},
		[]queue.Message{message("2-0", "b1", "b", successBody)},
	)
	r.On("Delete", mock.Anything, "2-0").Return(nil).Once()

	report, err := run(t, st, r, "b1")
	require.Error(t, err)
	assert.Equal(t, 4, report.Polls)
	assert.Equal(t, 2, report.Received)
	assert.Equal(t, 1, report.Ingested)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "1-0", report.Errors[0].MessageID)
	r.AssertExpectations(t)
}

func TestFinalize_DeleteFailureIsReported(t *testing.T) {
	st := setupStore(t, "a")
	r := queueOf([]queue.Message{message("1-0", "b1", "a", successBody)})
	r.On("Delete", mock.Anything, "1-0").Return(errors.New("connection reset"))

	report, err := run(t, st, r, "")
	require.Error(t, err)
	assert.Equal(t, 1, report.Ingested)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, finalize.ReasonDeleteFailed, report.Errors[0].Reason)
	assert.EqualError(t, report.Errors[0], "b1/a: delete failed: connection reset")
}

type conflictingRecords struct {
	*store.Store
}

func (c conflictingRecords) Update(context.Context, *models.ItemSubmission, models.Revision) error {
	return store.ErrConflict
}

func TestFinalize_LostUpdateRetainsMessage(t *testing.T) {
	st := setupStore(t, "a")
	r := queueOf([]queue.Message{message("1-0", "b1", "a", successBody)})

	report, err := run(t, conflictingRecords{st}, r, "")
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Zero(t, report.Ingested)
	assert.Equal(t, finalize.ReasonUpdateConflict, report.Errors[0].Reason)
	r.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestFinalize_ReceiveFailureAborts(t *testing.T) {
	r := new(mocks.Receiver)
	r.On("Receive", mock.Anything, 10).Return(nil, errors.New("NOGROUP"))

	report, err := run(t, setupStore(t), r, "")
	assert.ErrorContains(t, err, "failed to receive result messages: NOGROUP")
	assert.Equal(t, 1, report.Polls)
}

func TestFinalize_StopsAtMaxPolls(t *testing.T) {
	r := new(mocks.Receiver)
	for _, id := range []string{"1-0", "2-0", "3-0", "4-0", "5-0", "6-0"} {
		r.On("Receive", mock.Anything, 10).Return([]queue.Message{message(id, "b2", "x", successBody)}, nil).Once()
	}

	report, err := run(t, setupStore(t), r, "b1")
	require.NoError(t, err)
	assert.Equal(t, 5, report.Polls)
	assert.Equal(t, 5, report.Skipped)
}
