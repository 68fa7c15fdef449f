// Package config provides configuration management for the submission composer.
//
// Values come from environment variables, optionally seeded from a .env file.
// Every field declares its default in a `default` struct tag and its key in a
// `mapstructure` tag; nested keys map to environment variables by replacing
// dots with underscores (queue.result_queue -> QUEUE_RESULT_QUEUE).
//
// # Configuration Structure
//
//   - Server: status API port, API key and reconcile cache TTL
//   - Storage: S3/MinIO credentials and the batch bucket
//   - Database: record store driver and connection details
//   - Queue: submission/result queue backends and polling bounds
//   - Workflow: workflow name, metadata file, mapping and retry threshold
//   - Lock: per-batch pass lock backend
//   - Log: logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Workflow.Name)
package config
