package workflow_test

import (
	"testing"

	"submission-composer/core/workflow"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Keys(t *testing.T) {
	cfg := workflow.Config{Name: "simple-csv", MetadataFile: "metadata.csv"}

	assert.Equal(t, "simple-csv/b1/", cfg.BatchPath("b1"))
	assert.Equal(t, "simple-csv/b1/", cfg.BatchPath("/b1/"))
	assert.Equal(t, "simple-csv/b1/metadata.csv", cfg.MetadataKey("b1"))
	assert.Equal(t, "simple-csv/b1/dspace_metadata/a_metadata.json", cfg.DocumentKey("b1", "a"))
}

func TestConfig_Validate(t *testing.T) {
	valid := workflow.Config{Name: "wf", MetadataFile: "metadata.csv", RetryThreshold: 3}
	assert.NoError(t, valid.Validate())

	noName := valid
	noName.Name = "/"
	assert.EqualError(t, noName.Validate(), "workflow name is required")

	noFile := valid
	noFile.MetadataFile = ""
	assert.Error(t, noFile.Validate())

	zero := valid
	zero.RetryThreshold = 0
	assert.EqualError(t, zero.Validate(), "retry threshold must be at least 1, got 0")
}
