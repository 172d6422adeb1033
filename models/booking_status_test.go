package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		allowed  bool
	}{
		{BookingStatusPending, BookingStatusConfirmed, true},
		{BookingStatusPending, BookingStatusCompleted, true},
		{BookingStatusPending, BookingStatusCancelled, true},
		{BookingStatusConfirmed, BookingStatusInProgress, true},
		{BookingStatusConfirmed, BookingStatusPending, false},
		{BookingStatusInProgress, BookingStatusCompleted, true},
		{BookingStatusInProgress, BookingStatusConfirmed, false},
		{BookingStatusCompleted, BookingStatusCancelled, false},
		{BookingStatusCancelled, BookingStatusPending, false},
		{BookingStatusPending, BookingStatusPending, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestBookingStatusTerminal(t *testing.T) {
	assert.True(t, BookingStatusCompleted.IsTerminal())
	assert.True(t, BookingStatusCancelled.IsTerminal())
	assert.False(t, BookingStatusPending.IsTerminal())
	assert.True(t, BookingStatus("archived").IsTerminal())
}

func TestParseBookingStatus(t *testing.T) {
	for _, s := range AllBookingStatuses {
		got, err := ParseBookingStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseBookingStatus("done")
	assert.Error(t, err)
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityNormal, p)

	p, err = ParsePriority("emergency")
	require.NoError(t, err)
	assert.Equal(t, PriorityEmergency, p)

	_, err = ParsePriority("asap")
	assert.Error(t, err)
}

func TestContactInfoRoundTripThroughScanner(t *testing.T) {
	in := ContactInfo{Name: "A", Phone: "9876543210", Address: "X"}
	v, err := in.Value()
	require.NoError(t, err)

	var out ContactInfo
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)

	require.NoError(t, out.Scan([]byte(`{"name":"B","phone":"1","address":"Y","email":"b@x.in"}`)))
	assert.Equal(t, "b@x.in", out.Email)

	assert.Error(t, out.Scan(42))
}

func TestStringListNilValue(t *testing.T) {
	var l StringList
	v, err := l.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	require.NoError(t, l.Scan(`["a","b"]`))
	assert.Equal(t, StringList{"a", "b"}, l)
}
