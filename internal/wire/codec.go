// Package wire implements the length-prefixed binary framing used on every
// connection: an 8-byte little-endian length word followed by that many
// payload bytes.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// wordSize is the fixed width of the length prefix. The protocol is not
// portable across a different width; both ends must agree on 8 bytes.
const wordSize = 8

// Codec frames messages over an underlying stream.
type Codec struct {
	rw io.ReadWriter
}

// NewCodec wraps rw (typically a net.Conn) in a Codec.
func NewCodec(rw io.ReadWriter) *Codec {
	return &Codec{rw: rw}
}

// Send writes length(payload) as an 8-byte little-endian word followed by
// payload itself.
func (c *Codec) Send(payload []byte) error {
	var header [wordSize]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(payload)))
	if err := c.writeFull(header[:]); err != nil {
		return fmt.Errorf("wire: write length: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if err := c.writeFull(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// SendCount writes only the length word, carrying n directly, with no
// trailing payload. Used for the POLL count-frame (spec §4.1, §6).
func (c *Codec) SendCount(n int64) error {
	var header [wordSize]byte
	binary.LittleEndian.PutUint64(header[:], uint64(n))
	if err := c.writeFull(header[:]); err != nil {
		return fmt.Errorf("wire: write count: %w", err)
	}
	return nil
}

// Recv reads one length-prefixed frame and returns its payload.
func (c *Codec) Recv() ([]byte, error) {
	var header [wordSize]byte
	if _, err := io.ReadFull(c.rw, header[:]); err != nil {
		return nil, fmt.Errorf("wire: read length: %w", err)
	}
	length := int64(binary.LittleEndian.Uint64(header[:]))
	if length < 0 {
		return nil, fmt.Errorf("wire: negative length %d", length)
	}
	if length == 0 {
		return []byte{}, nil
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(c.rw, payload); err != nil {
		return nil, fmt.Errorf("wire: read payload: %w", err)
	}
	return payload, nil
}

// RecvCount reads a bare count-frame written by SendCount.
func (c *Codec) RecvCount() (int64, error) {
	var header [wordSize]byte
	if _, err := io.ReadFull(c.rw, header[:]); err != nil {
		return 0, fmt.Errorf("wire: read count: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(header[:])), nil
}

func (c *Codec) writeFull(buf []byte) error {
	for len(buf) > 0 {
		n, err := c.rw.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}
