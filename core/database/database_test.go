package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnect(t *testing.T) {
	t.Run("Invalid Connection", func(t *testing.T) {
		cfg := Config{
			Driver:         DriverMySQL,
			Host:           "localhost",
			Port:           9999, // Unused port
			User:           "root",
			Password:       "wrongpassword",
			Name:           "submissions",
			TimeoutSeconds: 1,
		}

		db, err := Connect(cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("Unsupported Driver", func(t *testing.T) {
		db, err := Connect(Config{Driver: "oracle"})
		assert.EqualError(t, err, "unsupported database driver: oracle")
		assert.Nil(t, db)
	})

	t.Run("SQLite In Memory", func(t *testing.T) {
		db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
		assert.NoError(t, err)
		assert.NotNil(t, db)
		assert.Equal(t, DriverSQLite, db.Dialector.Name())
	})
}

func TestDialectorFor(t *testing.T) {
	d, err := dialectorFor(Config{Driver: DriverPostgres, Host: "db", Port: 5432, User: "u", Password: "p", Name: "n"}, 5)
	assert.NoError(t, err)
	assert.Equal(t, DriverPostgres, d.Name())

	d, err = dialectorFor(Config{Host: "db", Port: 3306, User: "u", Name: "n"}, 5)
	assert.NoError(t, err)
	assert.Equal(t, DriverMySQL, d.Name())
}
