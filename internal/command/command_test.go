package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_RecognisedVerbs(t *testing.T) {
	cases := []struct {
		payload  string
		wantKind Kind
		wantTail string
	}{
		{"issueJob /bin/echo hello", Issue, "/bin/echo hello"},
		{"setConcurrency 3", SetConcurrency, "3"},
		{"poll", Poll, ""},
		{"stop job_4", Stop, "job_4"},
		{"exit", Exit, ""},
	}

	for _, tc := range cases {
		got := Parse(tc.payload)
		require.Equal(t, tc.wantKind, got.Kind, tc.payload)
		require.Equal(t, tc.wantTail, got.Tail, tc.payload)
	}
}

func TestParse_UnknownVerbIsInvalid(t *testing.T) {
	got := Parse("frobnicate something")
	require.Equal(t, Invalid, got.Kind)
}

func TestParse_EmptyPayloadIsInvalid(t *testing.T) {
	got := Parse("")
	require.Equal(t, Invalid, got.Kind)
}

func TestParseRender_RoundTrip(t *testing.T) {
	cases := []struct {
		kind Kind
		tail string
	}{
		{Issue, "/bin/sleep 5"},
		{SetConcurrency, "4"},
		{Poll, ""},
		{Stop, "job_9"},
		{Exit, ""},
	}

	for _, tc := range cases {
		rendered := Render(tc.kind, tc.tail)
		got := Parse(rendered)
		require.Equal(t, tc.kind, got.Kind)
		require.Equal(t, tc.tail, got.Tail)
	}
}
