package queue

import "time"

// Config holds configuration for the submission and result queues.
type Config struct {
	// Driver selects the submission queue backend (redis, kafka).
	// The result queue is always a Redis stream.
	Driver string `mapstructure:"driver" default:"redis"`
	// RedisAddr is the Redis host:port.
	RedisAddr string `mapstructure:"redis_addr" default:"localhost:6379"`
	// RedisPassword authenticates against Redis.
	RedisPassword string `mapstructure:"redis_password" default:""`
	// RedisDB is the logical Redis database.
	RedisDB int `mapstructure:"redis_db" default:"0"`
	// KafkaBrokers lists the brokers used when Driver is kafka.
	KafkaBrokers []string `mapstructure:"kafka_brokers" default:"localhost:9092"`
	// SubmissionQueue is the stream or topic submission messages are sent to.
	SubmissionQueue string `mapstructure:"submission_queue" default:"dss-input"`
	// ResultQueue is the stream result messages are read from.
	ResultQueue string `mapstructure:"result_queue" default:"dss-output-dsc"`
	// ConsumerGroup is the Redis consumer group reading the result stream.
	ConsumerGroup string `mapstructure:"consumer_group" default:"dsc"`
	// ConsumerName identifies this process inside the consumer group.
	ConsumerName string `mapstructure:"consumer_name" default:"dsc-finalize"`
	// WaitSeconds bounds how long one receive blocks for new messages.
	WaitSeconds int `mapstructure:"wait_seconds" default:"5"`
	// VisibilitySeconds is how long a received but undeleted message stays hidden
	// before it is delivered again.
	VisibilitySeconds int `mapstructure:"visibility_seconds" default:"300"`
	// MaxMessages caps the messages returned by one receive.
	MaxMessages int `mapstructure:"max_messages" default:"10"`
	// MaxPolls caps the receives performed by one finalize pass.
	MaxPolls int `mapstructure:"max_polls" default:"100"`
}

const (
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// Wait returns the bounded receive wait.
func (c Config) Wait() time.Duration {
	return time.Duration(c.WaitSeconds) * time.Second
}

// Visibility returns the redelivery timeout for retained messages.
func (c Config) Visibility() time.Duration {
	return time.Duration(c.VisibilitySeconds) * time.Second
}
