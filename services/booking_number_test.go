package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingNumberPattern = regexp.MustCompile(`^LSB-\d{8}-\d{6}-\d{4}$`)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestBookingNumberFormat(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	gen := NewBookingNumberGenerator("LSB", ist, nil, zerolog.Nop())
	gen.now = fixedClock(time.Date(2026, 3, 4, 18, 30, 5, 0, time.UTC))

	n := gen.Generate(context.Background())
	assert.Equal(t, "LSB-20260305-000005-0001", n)
	assert.Regexp(t, bookingNumberPattern, n)
}

func TestBookingNumbersAreDistinctWithinSameSecond(t *testing.T) {
	gen := NewBookingNumberGenerator("LSB", time.UTC, NewMemorySequencer(), zerolog.Nop())
	gen.now = fixedClock(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := gen.Generate(context.Background())
		require.False(t, seen[n], "duplicate booking number %s", n)
		seen[n] = true
	}
}

func TestBookingNumbersSequentialRealClock(t *testing.T) {
	gen := NewBookingNumberGenerator("LSB", time.UTC, nil, zerolog.Nop())
	a := gen.Generate(context.Background())
	b := gen.Generate(context.Background())
	assert.NotEqual(t, a, b)
}

func TestRedisSequencerSharedAcrossGenerators(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	seq := NewRedisSequencer(client, time.Minute)
	clock := fixedClock(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))

	g1 := NewBookingNumberGenerator("LSB", time.UTC, seq, zerolog.Nop())
	g2 := NewBookingNumberGenerator("LSB", time.UTC, seq, zerolog.Nop())
	g1.now, g2.now = clock, clock

	assert.Equal(t, "LSB-20260101-100000-0001", g1.Generate(context.Background()))
	assert.Equal(t, "LSB-20260101-100000-0002", g2.Generate(context.Background()))

	ttl := s.TTL("booking_seq:20260101-100000")
	assert.Equal(t, time.Minute, ttl)
}

// flakySequencer succeeds for the first ok calls and then fails until healed.
type flakySequencer struct {
	inner  *MemorySequencer
	ok     int
	calls  int
	healed bool
}

func (f *flakySequencer) Next(ctx context.Context, key string) (int64, error) {
	f.calls++
	if f.calls > f.ok && !f.healed {
		return 0, errors.New("redis down")
	}
	return f.inner.Next(ctx, key)
}

func TestBookingNumberFallbackContinuesSharedSequence(t *testing.T) {
	seq := &flakySequencer{inner: NewMemorySequencer(), ok: 1}
	gen := NewBookingNumberGenerator("LSB", time.UTC, seq, zerolog.Nop())
	gen.now = fixedClock(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := gen.Generate(ctx)
	b := gen.Generate(ctx)
	assert.Equal(t, "LSB-20260101-100000-0001", a)
	assert.Equal(t, "LSB-20260101-100000-0002", b)

	// The shared sequence comes back behind the numbers issued locally.
	seq.healed = true
	c := gen.Generate(ctx)
	assert.Equal(t, "LSB-20260101-100000-0003", c)
}

type failingSequencer struct{}

func (failingSequencer) Next(context.Context, string) (int64, error) {
	return 0, errors.New("redis down")
}

func TestBookingNumberFallsBackWhenSequencerFails(t *testing.T) {
	gen := NewBookingNumberGenerator("LSB", time.UTC, failingSequencer{}, zerolog.Nop())
	gen.now = fixedClock(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))

	a := gen.Generate(context.Background())
	b := gen.Generate(context.Background())
	assert.Equal(t, "LSB-20260101-100000-0001", a)
	assert.Equal(t, "LSB-20260101-100000-0002", b)
}
