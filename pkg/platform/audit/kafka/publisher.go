// Package kafka drains the audit outbox table into a Kafka topic. Kafka is
// the long-retention sink for audit events; the local audit_events table
// only serves queries from this service.
package kafka

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = 2 * time.Second
)

// Publisher polls the audit_outbox table and publishes unpublished rows to
// Kafka, marking them published on success. Rows are published at-least-once;
// consumers deduplicate on the event ID embedded in the payload.
type Publisher struct {
	db           *sql.DB
	client       *kgo.Client
	topic        string
	logger       *slog.Logger
	batchSize    int
	pollInterval time.Duration
}

// New connects to the given brokers and returns a Publisher for topic.
func New(db *sql.DB, brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{
		db:           db,
		client:       client,
		topic:        topic,
		logger:       logger,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}, nil
}

// Run polls the outbox until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.publishBatch(ctx); err != nil {
				p.logger.ErrorContext(ctx, "outbox publish batch failed", "error", err)
			}
		}
	}
}

// Close flushes buffered records and releases the Kafka client.
func (p *Publisher) Close() {
	p.client.Close()
}

type outboxRow struct {
	id        string
	eventType string
	payload   []byte
}

func (p *Publisher) publishBatch(ctx context.Context) error {
	rows, err := p.fetchUnpublished(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	for _, row := range rows {
		record := &kgo.Record{
			Topic: p.topic,
			Key:   []byte(row.eventType),
			Value: row.payload,
		}
		if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			// Leave the row unpublished; the next poll retries it.
			return fmt.Errorf("produce outbox row %s: %w", row.id, err)
		}
		if err := p.markPublished(ctx, row.id); err != nil {
			return err
		}
	}

	p.logger.DebugContext(ctx, "published audit outbox batch", "count", len(rows))
	return nil
}

func (p *Publisher) fetchUnpublished(ctx context.Context) ([]outboxRow, error) {
	const query = `
		SELECT id, event_type, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	dbRows, err := p.db.QueryContext(ctx, query, p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer dbRows.Close()

	var rows []outboxRow
	for dbRows.Next() {
		var row outboxRow
		if err := dbRows.Scan(&row.id, &row.eventType, &row.payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, dbRows.Err()
}

func (p *Publisher) markPublished(ctx context.Context, id string) error {
	const query = `UPDATE audit_outbox SET published_at = $1 WHERE id = $2`
	if _, err := p.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("mark outbox row published: %w", err)
	}
	return nil
}
