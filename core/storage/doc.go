// Package storage provides an abstraction layer over the S3-compatible object store
// that holds batch assets.
//
// It wraps the MinIO Go client behind the Client interface so tests can substitute
// core/storage/mocks. Helpers cover the operations the submission passes need:
//
//   - ListKeys: recursive listing of every object under a batch prefix.
//   - ReadObject: downloads a metadata source file.
//   - WriteObject: persists generated metadata documents.
//   - URI: formats s3:// locations for submission messages.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	keys, err := storage.ListKeys(ctx, client, cfg.Storage.Bucket, "simple-csv/batch-1/")
package storage
