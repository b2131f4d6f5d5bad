package worker

// dlq.go: Dead Letter Queue
// Jobs that exhaust their attempts are moved here for manual inspection.
// Uses a Redis list per source queue: dlq:{original_queue}

import (
	"context"
	"encoding/json"
	"time"

	"maaztelecom/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry wraps a failed job with metadata for debugging.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // RFC 3339
	Attempts      int             `json:"attempts"`
}

type DeadLetterSink interface {
	Send(ctx context.Context, entry DLQEntry)
}

type DeadLetterQueue struct {
	rdb     *redis.Client
	metrics *metrics.Metrics
}

func NewDeadLetterQueue(rdb *redis.Client, m *metrics.Metrics) *DeadLetterQueue {
	return &DeadLetterQueue{rdb: rdb, metrics: m}
}

// Send pushes entry onto dlq:{OriginalQueue}. Failures are logged only.
func (q *DeadLetterQueue) Send(ctx context.Context, entry DLQEntry) {
	if entry.FailedAt == "" {
		entry.FailedAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", entry.OriginalQueue).Msg("dlq: failed to marshal entry")
		return
	}

	dlqKey := DLQPrefix + entry.OriginalQueue
	if err := q.rdb.LPush(ctx, dlqKey, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey).Msg("dlq: failed to push to DLQ")
		return
	}
	q.metrics.DeadLetter(entry.OriginalQueue)

	log.Warn().
		Str("queue", entry.OriginalQueue).
		Str("job_type", entry.JobType).
		Str("reason", entry.Reason).
		Int("attempts", entry.Attempts).
		Msg("dlq: job moved to dead letter queue")
}

// Len returns the number of entries in a DLQ for monitoring.
func (q *DeadLetterQueue) Len(ctx context.Context, queue string) (int64, error) {
	return q.rdb.LLen(ctx, DLQPrefix+queue).Result()
}

func deadLetter(queue, jobType string, saleID string, reason string, attempts int) DLQEntry {
	payload, _ := json.Marshal(SaleJobPayload{SaleID: saleID})
	return DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		Attempts:      attempts,
	}
}
