package engine

import (
	"fmt"
	"net"
	"strconv"

	"github.com/smukkama/jobexec-server/internal/audit"
	"github.com/smukkama/jobexec-server/internal/command"
	"github.com/smukkama/jobexec-server/internal/queue"
	"github.com/smukkama/jobexec-server/internal/session"
)

// handleConnection is the controller: it reads exactly one command from
// conn, dispatches to the matching verb handler, and returns. Every code
// path releases the acceptor gate exactly once, even on a framing error or
// an INVALID verb, so a malformed connection can never wedge the accept
// loop (spec §4.7).
func (s *Server) handleConnection(conn net.Conn) {
	handle := wrapConn(conn)

	released := false
	release := func() {
		if !released {
			released = true
			s.gate.release()
		}
	}
	defer release()

	payload, err := handle.Codec.Recv()
	if err != nil {
		handle.Close()
		return
	}

	cmd := command.Parse(string(payload))
	switch cmd.Kind {
	case command.Issue:
		s.handleIssue(handle, release, cmd.Tail)
	case command.SetConcurrency:
		release()
		s.handleSetConcurrency(handle, cmd.Tail)
		handle.Close()
	case command.Poll:
		release()
		s.handlePoll(handle)
		handle.Close()
	case command.Stop:
		release()
		s.handleStop(handle, cmd.Tail)
		handle.Close()
	case command.Exit:
		s.handleExit(handle, release)
	default:
		handle.Close()
	}
}

func (s *Server) handleIssue(handle *session.Handle, release func(), cmdLine string) {
	release()

	s.mu.Lock()
	s.jobsSubmitted++
	jobID := fmt.Sprintf("job_%d", s.jobsSubmitted)

	for !s.shutdownRequested && s.queue.Full() {
		s.notFull.Wait()
	}

	if s.shutdownRequested {
		s.mu.Unlock()
		handle.Send("JOB SUBMIT CANCELED BECAUSE OF SERVER TERMINATION")
		handle.Close()
		s.publish(audit.EventCancelled, jobID, cmdLine, 0)
		return
	}

	rec := queue.Record{JobID: jobID, Command: cmdLine, Client: handle}
	_ = s.queue.Enqueue(rec)
	s.updateOccupancyMetrics()
	// Sent before unlocking so no worker or EXIT drain can reply on this
	// connection ahead of the SUBMITTED frame.
	handle.Send(fmt.Sprintf("JOB <%s, %s> SUBMITTED", jobID, cmdLine))
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordSubmitted()
	}
	s.publish(audit.EventSubmitted, jobID, cmdLine, 0)

	s.mu.Lock()
	s.notEmpty.Signal()
	s.mu.Unlock()
}

func (s *Server) handleSetConcurrency(handle *session.Handle, tail string) {
	n, err := strconv.Atoi(tail)
	if err != nil || n <= 0 {
		handle.Send("INVALID CONCURRENCY VALUE")
		return
	}

	s.mu.Lock()
	s.concurrency = n
	busy := s.busyWorkers
	s.updateOccupancyMetrics()
	s.mu.Unlock()

	handle.Send(fmt.Sprintf("CONCURRENCY SET AT %d", n))

	if n > busy {
		s.mu.Lock()
		s.notEmpty.Broadcast()
		s.mu.Unlock()
	}
}

func (s *Server) handlePoll(handle *session.Handle) {
	s.mu.Lock()
	snapshot := s.queue.Snapshot()
	s.mu.Unlock()

	handle.Codec.SendCount(int64(len(snapshot)))
	for _, entry := range snapshot {
		handle.Send(fmt.Sprintf("%s, %s", entry.Command, entry.JobID))
	}
}

func (s *Server) handleStop(handle *session.Handle, jobID string) {
	s.mu.Lock()
	rec, found := s.queue.RemoveByID(jobID)
	if found {
		s.updateOccupancyMetrics()
	}
	s.mu.Unlock()

	if found {
		handle.Send(fmt.Sprintf("JOB %s REMOVED", jobID))
	} else {
		handle.Send(fmt.Sprintf("JOB %s NOTFOUND", jobID))
		return
	}

	s.mu.Lock()
	s.notFull.Signal()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordRemoved()
	}
	s.publish(audit.EventRemoved, rec.JobID, rec.Command, 0)

	rec.Client.Send("JOB HAS BEEN REMOVED BEFORE EXECUTION")
	rec.Client.Close()
}

func (s *Server) handleExit(handle *session.Handle, release func()) {
	s.mu.Lock()
	s.shutdownRequested = true
	s.state = StateDraining
	s.notFull.Broadcast()
	s.mu.Unlock()

	for {
		s.mu.Lock()
		rec, ok := s.queue.DequeueHead()
		if ok {
			s.updateOccupancyMetrics()
		}
		s.mu.Unlock()
		if !ok {
			break
		}

		if s.metrics != nil {
			s.metrics.RecordTerminated()
		}
		s.publish(audit.EventCancelled, rec.JobID, rec.Command, 0)

		rec.Client.Send("SERVER TERMINATED BEFORE EXECUTION")
		rec.Client.Close()
	}

	s.mu.Lock()
	for s.runningJobs > 0 {
		s.allDone.Wait()
	}
	s.mu.Unlock()

	handle.Send("SERVER TERMINATED")
	handle.Close()

	s.mu.Lock()
	s.notEmpty.Broadcast()
	s.mu.Unlock()

	release()
}
