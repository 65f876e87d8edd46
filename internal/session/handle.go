// Package session tracks the connection that submitted a job across the
// controller/worker handoff described in spec §3: the controller that
// enqueues a job and the worker that eventually replies on its behalf share
// one Handle, and whichever of them finishes last closes it.
package session

import (
	"net"
	"sync"

	"github.com/smukkama/jobexec-server/internal/wire"
)

// Handle wraps one accepted connection plus its codec. Close is safe to
// call more than once and from either the controller or the worker.
type Handle struct {
	ID    string
	Conn  net.Conn
	Codec *wire.Codec

	closeOnce sync.Once
}

// New wraps conn in a Handle identified by id.
func New(id string, conn net.Conn) *Handle {
	return &Handle{
		ID:    id,
		Conn:  conn,
		Codec: wire.NewCodec(conn),
	}
}

// Send writes a length-prefixed reply frame to this connection.
func (h *Handle) Send(payload string) error {
	return h.Codec.Send([]byte(payload))
}

// Close closes the underlying connection exactly once.
func (h *Handle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		err = h.Conn.Close()
	})
	return err
}
