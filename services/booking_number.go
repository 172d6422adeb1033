package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const bookingNumberLayout = "20060102-150405"

// Sequencer hands out increasing numbers per key.
type Sequencer interface {
	Next(ctx context.Context, key string) (int64, error)
}

// MemorySequencer is a process-local sequencer. The counter restarts when
// the key changes, which happens once per second for booking numbers.
type MemorySequencer struct {
	mu      sync.Mutex
	lastKey string
	counter int64
}

func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{}
}

func (s *MemorySequencer) Next(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key != s.lastKey {
		s.lastKey = key
		s.counter = 0
	}
	s.counter++
	return s.counter, nil
}

// Advance records a number issued elsewhere for key and returns n, or the
// next local number when n was already handed out here.
func (s *MemorySequencer) Advance(key string, n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key != s.lastKey {
		s.lastKey = key
		s.counter = 0
	}
	if n <= s.counter {
		n = s.counter + 1
	}
	s.counter = n
	return n
}

// RedisSequencer shares the sequence between server instances.
type RedisSequencer struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSequencer(client *redis.Client, ttl time.Duration) *RedisSequencer {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisSequencer{client: client, ttl: ttl}
}

func (s *RedisSequencer) Next(ctx context.Context, key string) (int64, error) {
	if s.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	redisKey := "booking_seq:" + key

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, s.ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("incr booking sequence: %w", err)
	}
	return incr.Val(), nil
}

// BookingNumberGenerator formats PREFIX-YYYYMMDD-HHMMSS-NNNN numbers in the
// business timezone. Uniqueness across processes relies on the shared
// sequencer and, ultimately, the unique index on bookings.booking_number.
type BookingNumberGenerator struct {
	prefix   string
	loc      *time.Location
	seq      Sequencer
	fallback *MemorySequencer
	now      func() time.Time
	logger   zerolog.Logger
}

func NewBookingNumberGenerator(prefix string, loc *time.Location, seq Sequencer, logger zerolog.Logger) *BookingNumberGenerator {
	if loc == nil {
		loc = time.UTC
	}
	fallback := NewMemorySequencer()
	if seq == nil {
		seq = fallback
	}
	return &BookingNumberGenerator{
		prefix:   prefix,
		loc:      loc,
		seq:      seq,
		fallback: fallback,
		now:      time.Now,
		logger:   logger,
	}
}

func (g *BookingNumberGenerator) Generate(ctx context.Context) string {
	stamp := g.now().In(g.loc).Format(bookingNumberLayout)

	if g.seq == Sequencer(g.fallback) {
		n, _ := g.fallback.Next(ctx, stamp)
		return g.format(stamp, n)
	}

	// The fallback tracks every shared number so an outage mid-second
	// continues the sequence instead of restarting it.
	n, err := g.seq.Next(ctx, stamp)
	if err != nil {
		g.logger.Warn().Err(err).Msg("booking sequencer failed, using in-process sequence")
		n, _ = g.fallback.Next(ctx, stamp)
	} else {
		n = g.fallback.Advance(stamp, n)
	}
	return g.format(stamp, n)
}

func (g *BookingNumberGenerator) format(stamp string, n int64) string {
	return fmt.Sprintf("%s-%s-%04d", g.prefix, stamp, n%10000)
}
