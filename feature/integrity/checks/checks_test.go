package checks

import (
	"context"
	"errors"
	"testing"

	"submission-composer/core/database"
	"submission-composer/core/storage/mocks"
	"submission-composer/feature/submission/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestCheckRecords_NilDB(t *testing.T) {
	report, err := CheckRecords(nil)
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestCheckRecords_MigratedSQLite(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.New(db).Migrate(context.Background()))

	report, err := CheckRecords(db)
	require.NoError(t, err)
	assert.True(t, report.Matched, "%+v", report.Tables)
	assert.Equal(t, "sqlite", report.Driver)
	assert.Equal(t, "ok", report.Tables["item_submissions"].Status)
}

func TestCheckRecords_MissingAndMismatched(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"})
	rows.AddRow("batch_id", "varchar(191)", "NO", "PRI", nil, "")
	rows.AddRow("item_identifier", "varchar(191)", "NO", "PRI", nil, "")
	rows.AddRow("status", "int(11)", "NO", "MUL", nil, "")
	mock.ExpectQuery("SHOW COLUMNS FROM `item_submissions`").WillReturnRows(rows)

	report, err := CheckRecords(db)
	require.NoError(t, err)
	assert.False(t, report.Matched)

	tbl := report.Tables["item_submissions"]
	assert.Equal(t, "error", tbl.Status)
	assert.Contains(t, tbl.MissingColumns, "exhausted")
	assert.Contains(t, tbl.MissingColumns, "dspace_handle")
	assert.Equal(t, []string{"status: expected varchar(32), got int(11)"}, tbl.TypeMismatches)
}

func TestCheckRecords_InspectFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery("SHOW COLUMNS FROM `item_submissions`").WillReturnError(errors.New("access denied"))

	report, err := CheckRecords(db)
	require.NoError(t, err)
	assert.False(t, report.Matched)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "access denied")
}

func TestTypeMatches(t *testing.T) {
	assert.True(t, typeMatches("varchar(191)", "varchar(191)"))
	assert.True(t, typeMatches("varchar(191)", "character varying"))
	assert.True(t, typeMatches("int", "int(11)"))
	assert.True(t, typeMatches("int", "integer"))
	assert.True(t, typeMatches("text", "text"))
	assert.False(t, typeMatches("varchar(32)", "int(11)"))
}

func TestParseGormTags(t *testing.T) {
	assert.Equal(t, "batch_id", parseGormColumn("column:batch_id;type:varchar(191);primaryKey"))
	assert.Equal(t, "varchar(191)", parseGormType("column:batch_id;type:varchar(191);primaryKey"))
	assert.Equal(t, "", parseGormType("column:exhausted;not null"))
}

func TestCheckStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("Present", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "dsc").Return(true, nil)
		client.On("ListObjects", mock.Anything, "dsc", minio.ListObjectsOptions{Prefix: "simple-csv/", MaxKeys: 1}).
			Return(mocks.Objects("simple-csv/b1/"))

		report, err := CheckStorage(ctx, client, "dsc", "simple-csv")
		require.NoError(t, err)
		assert.True(t, report.WorkflowPresent)
		assert.Equal(t, "ok", report.Status)
	})

	t.Run("MissingPrefix", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "dsc").Return(true, nil)
		client.On("ListObjects", mock.Anything, "dsc", mock.Anything).Return(mocks.Objects())

		report, err := CheckStorage(ctx, client, "dsc", "simple-csv")
		require.NoError(t, err)
		assert.False(t, report.WorkflowPresent)
		assert.Equal(t, "error", report.Status)
	})

	t.Run("MissingBucket", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "dsc").Return(false, nil)

		_, err := CheckStorage(ctx, client, "dsc", "simple-csv")
		assert.EqualError(t, err, "bucket dsc does not exist")
	})
}
