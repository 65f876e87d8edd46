// Command jobexecd runs the job-execution server: it binds the TCP listener,
// starts the fixed worker pool, and serves client connections until an EXIT
// command (issued either by a client or by this process on SIGINT/SIGTERM)
// drains the queue and stops it.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/smukkama/jobexec-server/internal/audit"
	"github.com/smukkama/jobexec-server/internal/engine"
	"github.com/smukkama/jobexec-server/internal/metrics"
	"github.com/smukkama/jobexec-server/internal/wire"
	"github.com/smukkama/jobexec-server/pkg/config"
)

func main() {
	serverCfg, err := config.ParseServerArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("jobexecd: %v", err)
	}
	cfg := config.Load()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		errCh := collector.StartServer(cfg.Metrics.Port)
		go func() {
			if err := <-errCh; err != nil {
				log.Printf("jobexecd: metrics server: %v", err)
			}
		}()
		fmt.Printf("Metrics listening on :%d/metrics\n", cfg.Metrics.Port)
	}

	sink, closeSink := buildAuditSink(cfg.Audit)
	if closeSink != nil {
		defer closeSink()
	}

	srv, err := engine.New(engine.Config{
		Port:           serverCfg.Port,
		BufferCapacity: serverCfg.BufferCapacity,
		WorkerCount:    serverCfg.WorkerCount,
		TempDir:        filepath.Join(os.TempDir(), "jobexecd"),
		Metrics:        collector,
		Audit:          sink,
	})
	if err != nil {
		log.Fatalf("jobexecd: %v", err)
	}

	runDone := make(chan error, 1)
	go func() { runDone <- srv.Run() }()

	fmt.Printf("jobexecd listening on %s (concurrency=1, workers=%d, queue=%d)\n",
		srv.Addr(), serverCfg.WorkerCount, serverCfg.BufferCapacity)
	fmt.Println("Press Ctrl+C to drain and stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down gracefully...")
		if err := requestExit(srv.Addr().String()); err != nil {
			log.Printf("jobexecd: exit request: %v", err)
		}
		<-runDone
	case err := <-runDone:
		if err != nil {
			log.Printf("jobexecd: %v", err)
		}
	}

	fmt.Println("jobexecd stopped")
}

// requestExit dials the server's own listener and issues the wire-protocol
// "exit" command, which is how graceful shutdown is actually triggered (spec
// §4.4's EXIT verb) — a signal never stops the engine directly.
func requestExit(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial self: %w", err)
	}
	defer conn.Close()

	codec := wire.NewCodec(conn)
	if err := codec.Send([]byte("exit")); err != nil {
		return fmt.Errorf("send exit: %w", err)
	}
	_, err = codec.Recv()
	return err
}

func buildAuditSink(cfg config.AuditConfig) (audit.Sink, func()) {
	if !cfg.Enabled {
		return nil, nil
	}

	publisher := audit.NewPublisher(audit.PublisherConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Topic,
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		RequiredAcks: cfg.Kafka.RequiredAcks,
	})

	var cache *audit.StatusCache
	if cfg.Redis.Enabled {
		cache = audit.NewStatusCache(cfg.Redis.Addr)
	}

	sink := &audit.CompositeSink{Publisher: publisher, Cache: cache}

	db, err := audit.ConnectPostgres(cfg.Postgres.ConnectionString())
	if err != nil {
		log.Printf("jobexecd: audit postgres disabled: %v", err)
		return sink, func() { _ = sink.Close() }
	}

	writer := audit.NewBatchWriter(audit.BatchWriterConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Topic,
		GroupID:      cfg.Kafka.GroupID,
		MaxBatchSize: cfg.Kafka.BatchSize,
	}, db)
	writer.Start(context.Background())

	fmt.Println("Audit pipeline enabled (Kafka + Postgres)")
	return sink, func() {
		writer.Stop()
		_ = db.Close()
		_ = sink.Close()
	}
}
