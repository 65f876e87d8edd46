package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodec_SendRecvRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("hello"),
		[]byte(""),
		[]byte("JOB <job_1, /bin/echo hello> SUBMITTED"),
		bytes.Repeat([]byte("x"), 4096),
	}

	for _, payload := range cases {
		buf := &bytes.Buffer{}
		c := NewCodec(buf)

		err := c.Send(payload)
		require.NoError(t, err)

		got, err := c.Recv()
		require.NoError(t, err)
		require.Equal(t, payload, got)
	}
}

func TestCodec_SendCountRecvCount(t *testing.T) {
	buf := &bytes.Buffer{}
	c := NewCodec(buf)

	require.NoError(t, c.SendCount(3))

	n, err := c.RecvCount()
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestCodec_RecvShortHeaderIsError(t *testing.T) {
	buf := bytes.NewBuffer([]byte{1, 2, 3})
	c := NewCodec(buf)

	_, err := c.Recv()
	require.Error(t, err)
}

func TestCodec_RecvShortPayloadIsError(t *testing.T) {
	buf := &bytes.Buffer{}
	c := NewCodec(buf)
	require.NoError(t, c.SendCount(10))
	buf.WriteString("short")

	_, err := c.Recv()
	require.Error(t, err)
}

func TestCodec_MultipleFramesOnOneStream(t *testing.T) {
	buf := &bytes.Buffer{}
	c := NewCodec(buf)

	require.NoError(t, c.Send([]byte("first")))
	require.NoError(t, c.Send([]byte("second")))

	first, err := c.Recv()
	require.NoError(t, err)
	require.Equal(t, "first", string(first))

	second, err := c.Recv()
	require.NoError(t, err)
	require.Equal(t, "second", string(second))
}
