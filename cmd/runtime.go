package cmd

import (
	"context"
	"errors"
	"fmt"

	"submission-composer/core/config"
	"submission-composer/core/database"
	"submission-composer/core/lock"
	"submission-composer/core/logger"
	"submission-composer/core/queue"
	"submission-composer/core/storage"
	"submission-composer/feature/batch"
	"submission-composer/feature/metadata"
	"submission-composer/feature/submission/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// runtime holds the dependencies of one CLI pass.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	runID  string
	rdb    *redis.Client
}

// newRuntime loads configuration, applies the persistent flags and tags the
// logger with a run id for the pass.
func newRuntime(pass string) (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if workflowFlag != "" {
		cfg.Workflow.Name = workflowFlag
	}
	if verboseFlag {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Workflow.Validate(); err != nil {
		return nil, err
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	l, runID := logger.WithRunID(l, pass)
	l = l.With(zap.String("workflow", cfg.Workflow.Name))

	return &runtime{cfg: cfg, logger: l, runID: runID}, nil
}

func (r *runtime) close() {
	if r.rdb != nil {
		_ = r.rdb.Close()
	}
	_ = r.logger.Sync()
}

func (r *runtime) redisClient() *redis.Client {
	if r.rdb == nil {
		r.rdb = queue.NewRedisClient(r.cfg.Queue)
	}
	return r.rdb
}

func (r *runtime) openStore() (*store.Store, error) {
	db, err := database.Connect(r.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return store.New(db), nil
}

func (r *runtime) openStorage() (storage.Client, error) {
	client, err := storage.NewClient(r.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}
	return client, nil
}

// batchLoader builds the loader and transformer for the configured mapping.
func (r *runtime) batchLoader(client storage.Client) (*batch.Loader, *metadata.Transformer, error) {
	mapping, err := metadata.LoadMappingFile(r.cfg.Workflow.MappingPath)
	if err != nil {
		return nil, nil, err
	}
	loader := batch.NewLoader(client, r.cfg.Storage.Bucket, r.cfg.Workflow, mapping)
	return loader, metadata.NewTransformer(mapping), nil
}

// withLock runs fn while holding the pass lock for key. The lease is
// refreshed at a third of its length; if it is lost the context passed to fn
// is cancelled and the loss is returned alongside fn's error.
func (r *runtime) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	var rdb redis.UniversalClient
	if r.cfg.Lock.Driver == lock.DriverRedis || r.cfg.Lock.Driver == "" {
		rdb = r.redisClient()
	}
	locker, err := lock.New(r.cfg.Lock, rdb)
	if err != nil {
		return err
	}
	lk, err := locker.Obtain(ctx, key)
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			r.logger.Warn("Another pass is running", zap.String("lock", key))
		}
		return err
	}
	defer func() {
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("Failed to release lock", zap.String("lock", key), zap.Error(err))
		}
	}()

	lctx, stop := lock.KeepAlive(ctx, lk, r.cfg.Lock.Lease()/3)
	defer stop()

	err = fn(lctx)
	if cause := context.Cause(lctx); errors.Is(cause, lock.ErrLost) {
		r.logger.Error("Pass lock lost", zap.String("lock", key), zap.Error(cause))
		err = multierr.Append(err, cause)
	}
	return err
}

func requireBatchID() error {
	if batchIDFlag == "" {
		return fmt.Errorf("--batch-id is required")
	}
	return nil
}
