package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"submission-composer/core/storage"
	"submission-composer/core/workflow"

	"github.com/minio/minio-go/v7"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	// ErrEmptySource is returned instead of deleting the whole destination.
	ErrEmptySource = errors.New("sync source is empty")
	// ErrSameLocation is returned when source and destination overlap exactly.
	ErrSameLocation = errors.New("sync source and destination are the same")
)

// Location is a bucket prefix in s3://bucket/prefix form.
type Location struct {
	Bucket string
	Prefix string
}

// ParseLocation parses an s3://bucket/prefix URI. The prefix always ends in "/"
// unless it is empty.
func ParseLocation(uri string) (Location, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return Location{}, fmt.Errorf("invalid sync location %q: expected s3://bucket/prefix", uri)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("invalid sync location %q: missing bucket", uri)
	}
	return NewLocation(bucket, prefix), nil
}

// NewLocation builds a Location with a normalized prefix.
func NewLocation(bucket, prefix string) Location {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return Location{Bucket: bucket, Prefix: prefix}
}

func (l Location) String() string {
	return storage.URI(l.Bucket, l.Prefix)
}

// Action is what a sync does with one object.
type Action string

const (
	ActionCopy   Action = "copy"
	ActionDelete Action = "delete"
)

// Operation is one planned copy or delete. Key is relative to the location prefix.
type Operation struct {
	Action Action
	Key    string
	Size   int64
}

// Report summarizes a sync.
type Report struct {
	Source      Location
	Destination Location
	DryRun      bool
	Operations  []Operation
	Unchanged   int
	Copied      int
	Deleted     int
}

// Syncer mirrors a source prefix into a destination prefix: objects that are
// new or changed are copied, and destination objects absent from the source
// are deleted. The dspace_metadata/ sub-prefix is never touched on either side.
type Syncer struct {
	client storage.Client
	logger *zap.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(client storage.Client, logger *zap.Logger) *Syncer {
	return &Syncer{client: client, logger: logger}
}

// Plan lists both sides and returns the operations a sync would perform.
func (s *Syncer) Plan(ctx context.Context, src, dst Location) (*Report, error) {
	if src == dst {
		return nil, fmt.Errorf("%w: %s", ErrSameLocation, src)
	}

	srcObjs, err := s.list(ctx, src)
	if err != nil {
		return nil, err
	}
	if len(srcObjs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, src)
	}
	dstObjs, err := s.list(ctx, dst)
	if err != nil {
		return nil, err
	}

	report := &Report{Source: src, Destination: dst}
	for _, key := range sortedKeys(srcObjs) {
		obj := srcObjs[key]
		if existing, ok := dstObjs[key]; ok && sameObject(obj, existing) {
			report.Unchanged++
			continue
		}
		report.Operations = append(report.Operations, Operation{Action: ActionCopy, Key: key, Size: obj.Size})
	}
	for _, key := range sortedKeys(dstObjs) {
		if _, ok := srcObjs[key]; !ok {
			report.Operations = append(report.Operations, Operation{Action: ActionDelete, Key: key, Size: dstObjs[key].Size})
		}
	}
	return report, nil
}

// Run plans and, unless dryRun is set, applies the operations. A failing
// object does not stop the sync; failures are aggregated.
func (s *Syncer) Run(ctx context.Context, src, dst Location, dryRun bool) (*Report, error) {
	report, err := s.Plan(ctx, src, dst)
	if err != nil {
		return nil, err
	}
	report.DryRun = dryRun

	var errs error
	for _, op := range report.Operations {
		l := s.logger.With(zap.String("action", string(op.Action)), zap.String("key", op.Key))
		if dryRun {
			l.Info("Sync operation (dry run)")
			continue
		}
		switch op.Action {
		case ActionCopy:
			_, err := s.client.CopyObject(ctx,
				minio.CopyDestOptions{Bucket: dst.Bucket, Object: dst.Prefix + op.Key},
				minio.CopySrcOptions{Bucket: src.Bucket, Object: src.Prefix + op.Key},
			)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("failed to copy %s: %w", op.Key, err))
				continue
			}
			report.Copied++
		case ActionDelete:
			err := s.client.RemoveObject(ctx, dst.Bucket, dst.Prefix+op.Key, minio.RemoveObjectOptions{})
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("failed to delete %s: %w", op.Key, err))
				continue
			}
			report.Deleted++
		}
		l.Debug("Sync operation applied")
	}

	s.logger.Info("Sync finished",
		zap.String("source", src.String()),
		zap.String("destination", dst.String()),
		zap.Bool("dry_run", dryRun),
		zap.Int("planned", len(report.Operations)),
		zap.Int("copied", report.Copied),
		zap.Int("deleted", report.Deleted),
		zap.Int("unchanged", report.Unchanged))
	return report, errs
}

// list returns the objects under loc keyed by their path relative to the prefix.
func (s *Syncer) list(ctx context.Context, loc Location) (map[string]minio.ObjectInfo, error) {
	objs := make(map[string]minio.ObjectInfo)
	opts := minio.ListObjectsOptions{Prefix: loc.Prefix, Recursive: true}
	for obj := range s.client.ListObjects(ctx, loc.Bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", loc, obj.Err)
		}
		rel := strings.TrimPrefix(obj.Key, loc.Prefix)
		if rel == "" || strings.HasSuffix(rel, "/") || strings.HasPrefix(rel, workflow.MetadataPrefix) {
			continue
		}
		objs[rel] = obj
	}
	return objs, nil
}

// sameObject compares size, and the ETag when both sides report one.
func sameObject(a, b minio.ObjectInfo) bool {
	if a.Size != b.Size {
		return false
	}
	if a.ETag != "" && b.ETag != "" {
		return a.ETag == b.ETag
	}
	return true
}

func sortedKeys(m map[string]minio.ObjectInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
