package engine

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smukkama/jobexec-server/internal/wire"
)

func startTestServer(t *testing.T, capacity, workers int) *Server {
	t.Helper()
	s, err := New(Config{
		Port:           0,
		BufferCapacity: capacity,
		WorkerCount:    workers,
		TempDir:        t.TempDir(),
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run()
	}()
	t.Cleanup(func() {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	})

	return s
}

type testClient struct {
	t     *testing.T
	conn  net.Conn
	codec *wire.Codec
}

func dial(t *testing.T, s *Server) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, codec: wire.NewCodec(conn)}
}

func (c *testClient) send(payload string) {
	c.t.Helper()
	require.NoError(c.t, c.codec.Send([]byte(payload)))
}

func (c *testClient) recv() string {
	c.t.Helper()
	payload, err := c.codec.Recv()
	require.NoError(c.t, err)
	return string(payload)
}

func (c *testClient) recvCount() int64 {
	c.t.Helper()
	n, err := c.codec.RecvCount()
	require.NoError(c.t, err)
	return n
}

func TestEngine_IssueJobEchoesOutput(t *testing.T) {
	s := startTestServer(t, 2, 2)

	client := dial(t, s)
	client.send("issueJob /bin/echo hello")

	require.Equal(t, "JOB <job_1, /bin/echo hello> SUBMITTED", client.recv())
	require.Equal(t, "-----job_1 output start------\nhello\n\n-----job_1 output end------", client.recv())
}

func TestEngine_StopRemovesPendingJobAndNotifiesSubmitter(t *testing.T) {
	s := startTestServer(t, 1, 1)

	// Saturate the single worker with a long-running job first.
	blocker := dial(t, s)
	blocker.send("issueJob /bin/sleep 5")
	require.Equal(t, "JOB <job_1, /bin/sleep 5> SUBMITTED", blocker.recv())

	submitter := dial(t, s)
	submitter.send("issueJob /bin/sleep 5")
	require.Equal(t, "JOB <job_2, /bin/sleep 5> SUBMITTED", submitter.recv())

	stopper := dial(t, s)
	stopper.send("stop job_2")
	require.Equal(t, "JOB job_2 REMOVED", stopper.recv())

	require.Equal(t, "JOB HAS BEEN REMOVED BEFORE EXECUTION", submitter.recv())
}

func TestEngine_StopUnknownJobIsNotFound(t *testing.T) {
	s := startTestServer(t, 2, 1)

	client := dial(t, s)
	client.send("stop job_999")
	require.Equal(t, "JOB job_999 NOTFOUND", client.recv())
}

func TestEngine_PollReturnsPendingJobsInOrder(t *testing.T) {
	s := startTestServer(t, 2, 1)

	blocker := dial(t, s)
	blocker.send("issueJob /bin/sleep 5")
	require.Equal(t, "JOB <job_1, /bin/sleep 5> SUBMITTED", blocker.recv())

	a := dial(t, s)
	a.send("issueJob /bin/echo a")
	require.Equal(t, "JOB <job_2, /bin/echo a> SUBMITTED", a.recv())

	b := dial(t, s)
	b.send("issueJob /bin/echo b")
	require.Equal(t, "JOB <job_3, /bin/echo b> SUBMITTED", b.recv())

	poller := dial(t, s)
	poller.send("poll")
	require.Equal(t, int64(2), poller.recvCount())
	require.Equal(t, "/bin/echo a, job_2", poller.recv())
	require.Equal(t, "/bin/echo b, job_3", poller.recv())
}

func TestEngine_SetConcurrencyInvalidValue(t *testing.T) {
	s := startTestServer(t, 2, 1)

	client := dial(t, s)
	client.send("setConcurrency notanumber")
	require.Equal(t, "INVALID CONCURRENCY VALUE", client.recv())
}

func TestEngine_SetConcurrencyRaisesLimitAndUnblocksQueuedJobs(t *testing.T) {
	s := startTestServer(t, 2, 2)

	a := dial(t, s)
	a.send("issueJob /bin/sleep 1")
	require.Equal(t, "JOB <job_1, /bin/sleep 1> SUBMITTED", a.recv())

	b := dial(t, s)
	b.send("issueJob /bin/echo queued")
	require.Equal(t, "JOB <job_2, /bin/echo queued> SUBMITTED", b.recv())

	setter := dial(t, s)
	setter.send("setConcurrency 3")
	require.Equal(t, "CONCURRENCY SET AT 3", setter.recv())

	require.Equal(t, "-----job_2 output start------\nqueued\n\n-----job_2 output end------", b.recv())
}

func TestEngine_InvalidVerbClosesConnectionWithoutReply(t *testing.T) {
	s := startTestServer(t, 2, 1)

	client := dial(t, s)
	client.send("frobnicate nonsense")

	client.conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err := client.conn.Read(buf)
	require.Error(t, err) // connection closed, not a valid reply
}

func TestEngine_ExitDrainsPendingAndWaitsForRunning(t *testing.T) {
	s := startTestServer(t, 2, 1)

	running := dial(t, s)
	running.send("issueJob /bin/sleep 1")
	require.Equal(t, "JOB <job_1, /bin/sleep 1> SUBMITTED", running.recv())

	queued := dial(t, s)
	queued.send("issueJob /bin/echo queued")
	require.Equal(t, "JOB <job_2, /bin/echo queued> SUBMITTED", queued.recv())

	exiter := dial(t, s)
	exiter.send("exit")

	require.Equal(t, "SERVER TERMINATED BEFORE EXECUTION", queued.recv())
	require.Equal(t, "-----job_1 output start------\n\n-----job_1 output end------", running.recv())
	require.Equal(t, "SERVER TERMINATED", exiter.recv())
}
