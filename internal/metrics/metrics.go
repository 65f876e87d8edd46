// Package metrics exposes Prometheus instrumentation for the job-execution
// engine: lifecycle counters, occupancy gauges, and a job-duration
// histogram, served over HTTP at /metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns every metric this service reports, registered against its
// own registry so that multiple Collectors (as in tests) never collide on
// the global default registry.
type Collector struct {
	registry *prometheus.Registry

	jobsSubmitted  prometheus.Counter
	jobsCompleted  prometheus.Counter
	jobsRemoved    prometheus.Counter
	jobsTerminated prometheus.Counter
	jobDuration    prometheus.Histogram

	queueDepth       prometheus.Gauge
	runningJobs      prometheus.Gauge
	busyWorkers      prometheus.Gauge
	concurrencyLimit prometheus.Gauge
}

// NewCollector builds a fresh Collector with its own Prometheus registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobexec_jobs_submitted_total",
			Help: "Total number of jobs accepted into the waiting queue.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobexec_jobs_completed_total",
			Help: "Total number of jobs that ran to completion.",
		}),
		jobsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobexec_jobs_removed_total",
			Help: "Total number of pending jobs cancelled via stop.",
		}),
		jobsTerminated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobexec_jobs_terminated_total",
			Help: "Total number of pending jobs cancelled by server shutdown.",
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobexec_job_duration_seconds",
			Help:    "Wall-clock duration of a job's child process execution.",
			Buckets: prometheus.DefBuckets,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobexec_queue_depth",
			Help: "Current number of jobs waiting to be dequeued.",
		}),
		runningJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobexec_running_jobs",
			Help: "Current number of jobs executing as child processes.",
		}),
		busyWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobexec_busy_workers",
			Help: "Current number of workers holding a job.",
		}),
		concurrencyLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobexec_concurrency_limit",
			Help: "Current value of the dynamic concurrency limit.",
		}),
	}

	c.registry.MustRegister(
		c.jobsSubmitted,
		c.jobsCompleted,
		c.jobsRemoved,
		c.jobsTerminated,
		c.jobDuration,
		c.queueDepth,
		c.runningJobs,
		c.busyWorkers,
		c.concurrencyLimit,
	)

	return c
}

// RecordSubmitted increments the submitted counter.
func (c *Collector) RecordSubmitted() { c.jobsSubmitted.Inc() }

// RecordCompleted increments the completed counter and observes duration.
func (c *Collector) RecordCompleted(duration time.Duration) {
	c.jobsCompleted.Inc()
	c.jobDuration.Observe(duration.Seconds())
}

// RecordRemoved increments the removed-by-stop counter.
func (c *Collector) RecordRemoved() { c.jobsRemoved.Inc() }

// RecordTerminated increments the terminated-by-shutdown counter.
func (c *Collector) RecordTerminated() { c.jobsTerminated.Inc() }

// UpdateOccupancy refreshes the gauges that reflect engine state.
func (c *Collector) UpdateOccupancy(queueDepth, runningJobs, busyWorkers, concurrency int) {
	c.queueDepth.Set(float64(queueDepth))
	c.runningJobs.Set(float64(runningJobs))
	c.busyWorkers.Set(float64(busyWorkers))
	c.concurrencyLimit.Set(float64(concurrency))
}

// StartServer serves /metrics on port in a background goroutine. It returns
// immediately; ListenAndServe errors are reported via the returned error
// channel, and handling them is left to the caller.
func (c *Collector) StartServer(port int) <-chan error {
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	go func() {
		errCh <- http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	}()
	return errCh
}
