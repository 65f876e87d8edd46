// Package engine implements the core orchestration described in spec §4–§5:
// the controller handler, the worker pool, and the coordinator/accept loop,
// all sharing one mutex-protected Server value (spec §9's "re-architect as
// a single Server value" design note).
package engine

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smukkama/jobexec-server/internal/audit"
	"github.com/smukkama/jobexec-server/internal/metrics"
	"github.com/smukkama/jobexec-server/internal/queue"
	"github.com/smukkama/jobexec-server/internal/runner"
	"github.com/smukkama/jobexec-server/internal/session"
)

// State is one of the four lifecycle states from spec §4.8.
type State int

const (
	StateInit State = iota
	StateListening
	StateDraining
	StateStopped
)

// Server owns every piece of shared state the controller and worker
// goroutines coordinate over: the waiting queue, the concurrency counters,
// the shutdown flag, and the three condition variables (plus the acceptor
// gate) that guard them.
type Server struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	allDone  *sync.Cond
	gate     *acceptorGate

	state State

	queue             *queue.Queue
	concurrency       int
	runningJobs       int
	busyWorkers       int
	shutdownRequested bool
	jobsSubmitted     uint64

	workerCount int
	listener    net.Listener
	wg          sync.WaitGroup

	runner  *runner.Runner
	metrics *metrics.Collector
	audit   audit.Sink
}

// Config is everything New needs to build a Server.
type Config struct {
	Port           int
	BufferCapacity int
	WorkerCount    int
	TempDir        string
	Metrics        *metrics.Collector
	Audit          audit.Sink
}

// New constructs a Server in state INIT and binds its listener. It does not
// accept connections or start workers until Run.
func New(cfg Config) (*Server, error) {
	r, err := runner.New(cfg.TempDir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		queue:       queue.New(cfg.BufferCapacity),
		concurrency: 1,
		workerCount: cfg.WorkerCount,
		runner:      r,
		metrics:     cfg.Metrics,
		audit:       cfg.Audit,
		state:       StateInit,
	}
	s.notFull = sync.NewCond(&s.mu)
	s.notEmpty = sync.NewCond(&s.mu)
	s.allDone = sync.NewCond(&s.mu)
	s.gate = newAcceptorGate()

	s.listener, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("engine: listen: %w", err)
	}

	return s, nil
}

// State reports the server's current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) publish(kind audit.EventKind, jobID, command string, outputBytes int) {
	if s.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	event := audit.Event{
		JobID:       jobID,
		Command:     command,
		Kind:        kind,
		Timestamp:   time.Now(),
		OutputBytes: outputBytes,
	}
	if err := s.audit.Publish(ctx, event); err != nil {
		log.Printf("[engine] audit publish failed for %s: %v", jobID, err)
	}
}

func (s *Server) updateOccupancyMetrics() {
	if s.metrics == nil {
		return
	}
	s.metrics.UpdateOccupancy(s.queue.Len(), s.runningJobs, s.busyWorkers, s.concurrency)
}

func newConnectionID() string {
	return uuid.New().String()
}

// wrapConn builds a session.Handle for a freshly accepted connection.
func wrapConn(conn net.Conn) *session.Handle {
	return session.New(newConnectionID(), conn)
}
