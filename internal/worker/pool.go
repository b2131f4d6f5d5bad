package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"maaztelecom/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueInvoice      = "jobs:invoice"
	QueueNotification = "jobs:notification"
	QueueEmail        = "jobs:email"
)

const (
	jobInvoice      = "invoice"
	jobNotification = "notification"
	jobEmail        = "email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SaleJobPayload is the payload of invoice and notification jobs.
type SaleJobPayload struct {
	SaleID string `json:"sale_id"`
}

// Enqueuer is what services and workers use to schedule follow-up work.
type Enqueuer interface {
	EnqueueInvoice(ctx context.Context, saleID string) error
	EnqueueNotification(ctx context.Context, saleID string) error
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

func (d *Dispatcher) EnqueueInvoice(ctx context.Context, saleID string) error {
	return d.enqueue(ctx, QueueInvoice, jobInvoice, SaleJobPayload{SaleID: saleID})
}

func (d *Dispatcher) EnqueueNotification(ctx context.Context, saleID string) error {
	return d.enqueue(ctx, QueueNotification, jobNotification, SaleJobPayload{SaleID: saleID})
}

func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, jobEmail, payload)
}

// QueueDepths reports the pending length of every job queue.
func (d *Dispatcher) QueueDepths(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, 3)
	for _, q := range []string{QueueInvoice, QueueNotification, QueueEmail} {
		n, err := d.rdb.LLen(ctx, q).Result()
		if err != nil {
			return nil, err
		}
		out[q] = n
	}
	return out, nil
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	encoded, err := encodeJob(jobType, payload)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

func encodeJob(jobType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("worker: marshal %s payload: %w", jobType, err)
	}
	return json.Marshal(Job{Type: jobType, Payload: data})
}

// Handler processes the payload of one job. A returned error is logged; the
// handler is responsible for recording the outcome on the sale.
type Handler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

type HandlerFunc func(ctx context.Context, raw json.RawMessage) error

func (f HandlerFunc) Process(ctx context.Context, raw json.RawMessage) error { return f(ctx, raw) }

// Pool runs a fixed number of goroutines consuming every registered queue.
// Each goroutine blocks on BRPOP, so an idle pool costs no CPU.
type Pool struct {
	rdb      *redis.Client
	size     int
	queues   []string
	handlers map[string]Handler
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

func NewPool(rdb *redis.Client, size int, m *metrics.Metrics) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{rdb: rdb, size: size, handlers: make(map[string]Handler), metrics: m}
}

// Register binds a handler to a queue. Queues are polled in registration
// order, so register the most urgent first. Must be called before Start.
func (p *Pool) Register(queue string, h Handler) {
	if _, ok := p.handlers[queue]; !ok {
		p.queues = append(p.queues, queue)
	}
	p.handlers[queue] = h
}

// Start launches the workers. They exit when ctx is cancelled; Wait blocks
// until the last in-flight job has finished.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	log.Info().Int("workers", p.size).Strs("queues", p.queues).Msg("worker pool started")
}

func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop; waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, p.queues...).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: brpop failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			// In-flight jobs finish even if shutdown starts mid-job.
			p.dispatch(context.WithoutCancel(ctx), result[0], result[1])
		}
	}
}

func (p *Pool) dispatch(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	h, ok := p.handlers[queue]
	if !ok {
		log.Error().Str("queue", queue).Str("type", job.Type).Msg("no handler for queue")
		return
	}
	start := time.Now()
	err := h.Process(ctx, job.Payload)
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Str("type", job.Type).Str("queue", queue).Dur("took", time.Since(start)).Msg("job processed")
}

// ReportDepths samples the queue lengths into the queue depth gauge.
func (p *Pool) ReportDepths(ctx context.Context) {
	for _, q := range p.queues {
		n, err := p.rdb.LLen(ctx, q).Result()
		if err != nil {
			log.Debug().Err(err).Str("queue", q).Msg("worker: llen failed")
			continue
		}
		p.metrics.SetQueueDepth(q, n)
	}
}
