package workflow

import (
	"fmt"
	"strings"
)

// Config describes the workflow a batch is processed under.
type Config struct {
	// Name is the workflow name; batches live under <name>/<batch_id>/.
	Name string `mapstructure:"name" default:"simple-csv"`
	// MetadataFile is the metadata source file name inside a batch.
	MetadataFile string `mapstructure:"metadata_file" default:"metadata.csv"`
	// MappingPath points to a JSON or YAML field mapping. Empty uses the built-in mapping.
	MappingPath string `mapstructure:"mapping_path" default:""`
	// SubmissionSystem names the repository the submission service deposits into.
	SubmissionSystem string `mapstructure:"submission_system" default:"DSpace@MIT"`
	// CollectionHandle is the default target collection for submit passes.
	CollectionHandle string `mapstructure:"collection_handle" default:""`
	// RetryThreshold is the number of ingest attempts after which a failing item is exhausted.
	RetryThreshold int `mapstructure:"retry_threshold" default:"3"`
}

const (
	// MetadataPrefix holds the transformed documents of a batch.
	MetadataPrefix = "dspace_metadata/"
	// ArchivedPrefix holds assets moved out of the active batch.
	ArchivedPrefix = "archived/"
)

// ExcludedPrefixes are batch sub-prefixes never treated as bitstreams.
var ExcludedPrefixes = []string{MetadataPrefix, ArchivedPrefix}

// BatchPath returns the object prefix of a batch, always ending in "/".
func (c Config) BatchPath(batchID string) string {
	return strings.Trim(c.Name, "/") + "/" + strings.Trim(batchID, "/") + "/"
}

// MetadataKey returns the object key of the batch metadata source.
func (c Config) MetadataKey(batchID string) string {
	return c.BatchPath(batchID) + c.MetadataFile
}

// DocumentKey returns the object key of an item's transformed metadata document.
func (c Config) DocumentKey(batchID, itemIdentifier string) string {
	return c.BatchPath(batchID) + MetadataPrefix + itemIdentifier + "_metadata.json"
}

// Validate checks the fields every pass depends on.
func (c Config) Validate() error {
	if strings.Trim(c.Name, "/ ") == "" {
		return fmt.Errorf("workflow name is required")
	}
	if c.MetadataFile == "" {
		return fmt.Errorf("workflow metadata file is required")
	}
	if c.RetryThreshold < 1 {
		return fmt.Errorf("retry threshold must be at least 1, got %d", c.RetryThreshold)
	}
	return nil
}
