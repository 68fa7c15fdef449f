// Package queue provides the submission and result message queues.
//
// Submission messages are published through a Sender backed by either a Redis
// stream (XADD) or a Kafka topic (kafka-go writer, attributes as headers).
//
// Result messages are consumed through a Receiver backed by a Redis stream
// consumer group. Receive first claims entries that stayed pending longer than
// the visibility timeout (XAUTOCLAIM), then reads new entries with a bounded
// block (XREADGROUP). Delete acknowledges and removes an entry (XACK + XDEL).
// An entry that is received but never deleted is therefore redelivered on a
// later pass, which is how correlation errors retain their messages.
package queue
