package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvent_JSONRoundTrip(t *testing.T) {
	want := Event{
		JobID:        "job_1",
		Command:      "/bin/echo hello",
		Kind:         EventCompleted,
		Timestamp:    time.Now().UTC().Truncate(time.Second),
		ConnectionID: "conn-abc",
		OutputBytes:  6,
	}

	var got Event
	data, err := json.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, decodeEvent(data, &got))
	require.Equal(t, want, got)
}
