package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	_ "github.com/lib/pq"
)

const createCompletedJobsTable = `
CREATE TABLE IF NOT EXISTS completed_jobs (
	job_id       TEXT PRIMARY KEY,
	command      TEXT NOT NULL,
	output_bytes INTEGER NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL
)`

// DB wraps the audit trail's Postgres connection.
type DB struct {
	*sql.DB
}

// ConnectPostgres opens the audit database and ensures its schema exists.
func ConnectPostgres(connectionString string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("audit: ping database: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)

	db := &DB{sqlDB}
	if err := db.runMigrations(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *DB) runMigrations() error {
	if _, err := db.Exec(createCompletedJobsTable); err != nil {
		return fmt.Errorf("audit: create schema: %w", err)
	}
	return nil
}

// UpsertCompletedJob records (or re-records) one completed job.
func (db *DB) UpsertCompletedJob(jobID, command string, outputBytes int, completedAt time.Time) error {
	_, err := db.Exec(`
		INSERT INTO completed_jobs (job_id, command, output_bytes, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id) DO UPDATE
		SET command = EXCLUDED.command,
		    output_bytes = EXCLUDED.output_bytes,
		    completed_at = EXCLUDED.completed_at
	`, jobID, command, outputBytes, completedAt)
	return err
}

// BatchWriterConfig configures the Kafka-to-Postgres batch writer.
type BatchWriterConfig struct {
	Brokers      []string
	Topic        string
	GroupID      string
	FlushEvery   time.Duration
	MaxBatchSize int
}

// BatchWriter consumes audit events from Kafka and upserts the `completed`
// ones into Postgres, batching on a ticker the way the teacher's
// internal/queue/batch_writer.go does for weather metrics.
type BatchWriter struct {
	reader *kafka.Reader
	db     *DB
	cfg    BatchWriterConfig

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBatchWriter constructs a BatchWriter over db, consuming cfg.Topic.
func NewBatchWriter(cfg BatchWriterConfig, db *DB) *BatchWriter {
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 5 * time.Second
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}
	return &BatchWriter{
		db:  db,
		cfg: cfg,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			GroupID: cfg.GroupID,
		}),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start runs the consume/batch/flush loop until Stop is called.
func (w *BatchWriter) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *BatchWriter) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.cfg.FlushEvery)
	defer ticker.Stop()

	var pending []Event
	flush := func() {
		for _, e := range pending {
			if e.Kind != EventCompleted {
				continue
			}
			if err := w.db.UpsertCompletedJob(e.JobID, e.Command, e.OutputBytes, e.Timestamp); err != nil {
				log.Printf("[audit] upsert %s failed: %v", e.JobID, err)
			}
		}
		pending = pending[:0]
	}

	msgCh := make(chan kafka.Message)
	go func() {
		defer close(msgCh)
		for {
			msg, err := w.reader.ReadMessage(ctx)
			if err != nil {
				return
			}
			select {
			case msgCh <- msg:
			case <-w.stopCh:
				return
			}
		}
	}()

	for {
		select {
		case <-w.stopCh:
			flush()
			return
		case <-ticker.C:
			flush()
		case msg, ok := <-msgCh:
			if !ok {
				flush()
				return
			}
			var event Event
			if err := decodeEvent(msg.Value, &event); err != nil {
				log.Printf("[audit] decode event failed: %v", err)
				continue
			}
			pending = append(pending, event)
			if len(pending) >= w.cfg.MaxBatchSize {
				flush()
			}
		}
	}
}

// Stop halts consumption and closes the underlying reader.
func (w *BatchWriter) Stop() {
	close(w.stopCh)
	<-w.doneCh
	w.reader.Close()
}
