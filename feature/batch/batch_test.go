package batch_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"submission-composer/core/database"
	"submission-composer/core/storage/mocks"
	"submission-composer/core/workflow"
	"submission-composer/feature/batch"
	"submission-composer/feature/metadata"
	"submission-composer/feature/submission/store"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const bucket = "dsc"

var wf = workflow.Config{
	Name:             "simple-csv",
	MetadataFile:     "metadata.csv",
	SubmissionSystem: "DSpace@MIT",
	RetryThreshold:   3,
}

// newClient serves keys for every listing and the metadata source for the
// given number of reads.
func newClient(keys []string, csv string, reads int) *mocks.Client {
	c := new(mocks.Client)
	c.On("ListObjects", mock.Anything, bucket, mock.Anything).Return(
		func(_ context.Context, _ string, _ minio.ListObjectsOptions) <-chan minio.ObjectInfo {
			return mocks.Objects(keys...)
		})
	for i := 0; i < reads; i++ {
		c.On("GetObject", mock.Anything, bucket, "simple-csv/b1/metadata.csv", mock.Anything).
			Return(io.NopCloser(strings.NewReader(csv)), nil).Once()
	}
	return c
}

func setupStore(t *testing.T) *store.Store {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	s := store.New(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestItemIdentifier(t *testing.T) {
	tests := map[string]string{
		"simple-csv/b1/a_1.pdf":       "a",
		"simple-csv/b1/b.tif":         "b",
		"simple-csv/b1/c":             "c",
		"simple-csv/b1/d_2_final.jpg": "d",
		"simple-csv/b1/e.tar.gz":      "e.tar",
	}
	for key, want := range tests {
		assert.Equal(t, want, batch.ItemIdentifier(key), key)
	}
}

func TestLoader_LoadBitstreamIndex(t *testing.T) {
	client := newClient([]string{
		"simple-csv/b1/a_1.pdf",
		"simple-csv/b1/a_2.pdf",
		"simple-csv/b1/archived/c.pdf",
		"simple-csv/b1/b.tif",
		"simple-csv/b1/dspace_metadata/a_metadata.json",
		"simple-csv/b1/metadata.csv",
	}, "", 0)
	loader := batch.NewLoader(client, bucket, wf, metadata.DefaultMapping())

	index, err := loader.LoadBitstreamIndex(context.Background(), wf.BatchPath("b1"))
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"a": {"simple-csv/b1/a_1.pdf", "simple-csv/b1/a_2.pdf"},
		"b": {"simple-csv/b1/b.tif"},
	}, index)
}

func TestLoader_LoadMetadataIndex(t *testing.T) {
	client := newClient(nil, "item_identifier,title\na,Alpha\n,Orphan\na,Again\n", 1)
	loader := batch.NewLoader(client, bucket, wf, metadata.DefaultMapping())

	index, err := loader.LoadMetadataIndex(context.Background(), wf.BatchPath("b1"))
	require.NoError(t, err)
	require.Len(t, index, 2)
	assert.Len(t, index["a"], 2)
	assert.Equal(t, []metadata.SourceRecord{{"item_identifier": "", "title": "Orphan"}}, index[""])
}

func TestLoader_MetadataReadFailure(t *testing.T) {
	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, bucket, "simple-csv/b1/metadata.csv", mock.Anything).
		Return(nil, errors.New("no such key"))
	loader := batch.NewLoader(client, bucket, wf, metadata.DefaultMapping())

	_, err := loader.LoadMetadataIndex(context.Background(), wf.BatchPath("b1"))
	assert.ErrorContains(t, err, "failed to read metadata source")
}

func TestValidate_MissingBitstreams(t *testing.T) {
	inv := &batch.Inventory{
		BatchID:    "B1",
		Bitstreams: map[string][]string{"a": {"simple-csv/B1/a.pdf"}},
		Metadata: map[string][]metadata.SourceRecord{
			"a": {{"item_identifier": "a", "title": "Alpha"}},
			"b": {{"item_identifier": "b", "title": "Beta"}},
		},
	}

	v := batch.Validate(inv, metadata.NewTransformer(metadata.DefaultMapping()))

	assert.Equal(t, []string{"a"}, v.Reconcile.Reconciled)
	assert.Equal(t, []string{"b"}, v.Reconcile.MetadataWithoutBitstreams)
	assert.Empty(t, v.Reconcile.BitstreamsWithoutMetadata)
	assert.Equal(t, []string{"a"}, v.Complete())
	assert.Equal(t, []batch.Verdict{
		{ItemIdentifier: "b", Reason: batch.ReasonMissingBitstreams},
	}, v.Invalid())
}

func TestValidate_Reasons(t *testing.T) {
	inv := &batch.Inventory{
		BatchID: "b1",
		Bitstreams: map[string][]string{
			"dup":     {"dup.pdf"},
			"notitle": {"notitle.pdf"},
			"orphan":  {"orphan.pdf"},
		},
		Metadata: map[string][]metadata.SourceRecord{
			"":        {{"title": "No id"}},
			"dup":     {{"item_identifier": "dup", "title": "One"}, {"item_identifier": "dup", "title": "Two"}},
			"notitle": {{"item_identifier": "notitle"}},
		},
	}

	v := batch.Validate(inv, metadata.NewTransformer(metadata.DefaultMapping()))
	invalid := v.Invalid()

	require.Len(t, invalid, 4)
	assert.Equal(t, batch.ReasonMissingIdentifier, invalid[0].Reason)
	assert.Equal(t, "dup", invalid[1].ItemIdentifier)
	assert.Equal(t, batch.ReasonDuplicateMetadata, invalid[1].Reason)
	assert.Equal(t, "notitle", invalid[2].ItemIdentifier)
	assert.Equal(t, batch.ReasonInvalidMetadata, invalid[2].Reason)
	assert.Contains(t, invalid[2].Details, "missing required field")
	assert.Equal(t, batch.Verdict{ItemIdentifier: "orphan", Reason: batch.ReasonMissingMetadata}, invalid[3])
	assert.Empty(t, v.Complete())
}

func TestValidate_ExactMatchOnly(t *testing.T) {
	inv := &batch.Inventory{
		BatchID:    "b1",
		Bitstreams: map[string][]string{"item1": {"item1.pdf"}},
		Metadata:   map[string][]metadata.SourceRecord{"item": {{"item_identifier": "item", "title": "T"}}},
	}

	v := batch.Validate(inv, nil)
	assert.Empty(t, v.Reconcile.Reconciled)
	assert.Len(t, v.Invalid(), 2)
}

func newCreator(t *testing.T, client *mocks.Client, st *store.Store) *batch.Creator {
	t.Helper()
	mapping := metadata.DefaultMapping()
	loader := batch.NewLoader(client, bucket, wf, mapping)
	return batch.NewCreator(loader, st, wf, metadata.NewTransformer(mapping), zap.NewNop())
}

func TestCreator_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t)
	client := newClient(
		[]string{"simple-csv/b1/a_1.pdf", "simple-csv/b1/b.tif", "simple-csv/b1/metadata.csv"},
		"item_identifier,title\na,Alpha\nb,Beta\n", 2)
	creator := newCreator(t, client, st)

	first, err := creator.Create(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, first.Created)
	assert.Empty(t, first.Existing)

	before, err := st.ListBatch(ctx, "b1")
	require.NoError(t, err)

	second, err := creator.Create(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Equal(t, []string{"a", "b"}, second.Existing)

	after, err := st.ListBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	client.AssertExpectations(t)
}

func TestCreator_InvalidBatchCreatesNothing(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t)
	client := newClient(
		[]string{"simple-csv/b1/a.pdf", "simple-csv/b1/metadata.csv"},
		"item_identifier,title\na,Alpha\nb,Beta\n", 1)

	report, err := newCreator(t, client, st).Create(ctx, "b1")

	assert.ErrorIs(t, err, batch.ErrBatchInvalid)
	var verr *batch.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "b1", verr.BatchID)
	assert.Equal(t, []batch.Verdict{{ItemIdentifier: "b", Reason: batch.ReasonMissingBitstreams}}, verr.Invalid)
	assert.EqualError(t, err, "batch b1 has 1 invalid item(s): b: missing bitstreams")

	require.NotNil(t, report)
	assert.Equal(t, []string{"a"}, report.Reconcile.Reconciled)
	assert.Equal(t, []string{"b"}, report.Reconcile.MetadataWithoutBitstreams)

	items, err := st.ListBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreator_EmptyBatch(t *testing.T) {
	client := newClient([]string{"simple-csv/b1/metadata.csv"}, "item_identifier,title\n", 1)

	_, err := newCreator(t, client, setupStore(t)).Create(context.Background(), "b1")
	assert.ErrorIs(t, err, batch.ErrBatchInvalid)
	assert.ErrorContains(t, err, "contains no items")
}

func TestCreator_ListingFailureAborts(t *testing.T) {
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, bucket, mock.Anything).Return(
		func(_ context.Context, _ string, _ minio.ListObjectsOptions) <-chan minio.ObjectInfo {
			ch := make(chan minio.ObjectInfo, 1)
			ch <- minio.ObjectInfo{Err: errors.New("access denied")}
			close(ch)
			return ch
		})
	client.On("GetObject", mock.Anything, bucket, mock.Anything, mock.Anything).
		Return(io.NopCloser(strings.NewReader("item_identifier,title\n")), nil)

	report, err := newCreator(t, client, setupStore(t)).Create(context.Background(), "b1")
	assert.Nil(t, report)
	assert.ErrorContains(t, err, "failed to load batch b1")
	assert.ErrorContains(t, err, "access denied")
}
