package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/smukkama/jobexec-server/internal/audit"
)

// runWorker is one of T long-lived workers (spec §4.5). It loops: wait for
// work under the current concurrency limit, dequeue, run the job, reply,
// repeat — until shutdownRequested is observed.
func (s *Server) runWorker(id int) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		for (s.queue.Empty() || s.runningJobs == s.concurrency) && !s.shutdownRequested {
			s.notEmpty.Wait()
		}
		if s.shutdownRequested {
			s.mu.Unlock()
			return
		}

		rec, ok := s.queue.DequeueHead()
		if !ok {
			// Woken spuriously by a broadcast meant for someone else;
			// re-check predicates from the top.
			s.mu.Unlock()
			continue
		}
		s.busyWorkers++
		s.runningJobs++
		s.notFull.Signal()
		s.updateOccupancyMetrics()
		s.mu.Unlock()

		s.publish(audit.EventStarted, rec.JobID, rec.Command, 0)

		started := time.Now()
		output, err := s.runner.Execute(context.Background(), rec.Command)
		if err != nil {
			log.Printf("[engine] worker %d: job %s: %v", id, rec.JobID, err)
		}
		duration := time.Since(started)

		reply := fmt.Sprintf("-----%s output start------\n%s\n-----%s output end------", rec.JobID, output, rec.JobID)
		rec.Client.Send(reply)
		rec.Client.Close()

		if s.metrics != nil {
			s.metrics.RecordCompleted(duration)
		}
		s.publish(audit.EventCompleted, rec.JobID, rec.Command, len(output))

		s.mu.Lock()
		s.runningJobs--
		s.busyWorkers--
		s.updateOccupancyMetrics()
		s.allDone.Signal()
		s.mu.Unlock()
	}
}
