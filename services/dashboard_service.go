package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"local-services-server/models"
)

const (
	dashboardCacheKey = "dashboard:stats"
	dashboardCacheTTL = 30 * time.Second
	recentBookings    = 5
)

type DashboardStats struct {
	TotalBookings  int              `json:"totalBookings"`
	TodayBookings  int              `json:"todayBookings"`
	ByStatus       map[string]int   `json:"byStatus"`
	ByPriority     map[string]int   `json:"byPriority"`
	ByService      map[string]int   `json:"byService"`
	Revenue        float64          `json:"revenue"`
	AverageRating  float64          `json:"averageRating"`
	RatedBookings  int              `json:"ratedBookings"`
	RecentBookings []models.Booking `json:"recentBookings"`
	GeneratedAt    time.Time        `json:"generatedAt"`
}

// DashboardService aggregates booking statistics for the admin dashboard.
// Results are cached in Redis when a client is configured.
type DashboardService struct {
	db     *gorm.DB
	redis  *redis.Client
	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger
}

func NewDashboardService(db *gorm.DB, client *redis.Client, loc *time.Location, logger zerolog.Logger) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{
		db:     db,
		redis:  client,
		loc:    loc,
		now:    time.Now,
		logger: logger.With().Str("component", "dashboard").Logger(),
	}
}

func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	if cached := s.cached(ctx); cached != nil {
		return cached, nil
	}

	var bookings []models.Booking
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("load bookings for dashboard: %w", err)
	}

	stats := ComputeStats(bookings, s.now(), s.loc)
	s.store(ctx, stats)
	return stats, nil
}

// ComputeStats aggregates bookings in memory. bookings must be ordered
// newest first for RecentBookings to be meaningful.
func ComputeStats(bookings []models.Booking, now time.Time, loc *time.Location) *DashboardStats {
	stats := &DashboardStats{
		TotalBookings:  len(bookings),
		ByStatus:       map[string]int{},
		ByPriority:     map[string]int{},
		ByService:      map[string]int{},
		RecentBookings: []models.Booking{},
		GeneratedAt:    now.UTC(),
	}
	for _, st := range models.AllBookingStatuses {
		stats.ByStatus[string(st)] = 0
	}

	y, m, d := now.In(loc).Date()
	ratingSum := 0
	for _, b := range bookings {
		stats.ByStatus[string(b.Status)]++
		stats.ByPriority[string(b.Priority)]++
		stats.ByService[b.ServiceType]++

		if b.Status == models.BookingStatusCompleted {
			stats.Revenue += b.BilledAmount()
		}
		if b.Rating != nil {
			ratingSum += *b.Rating
			stats.RatedBookings++
		}
		by, bm, bd := b.CreatedAt.In(loc).Date()
		if by == y && bm == m && bd == d {
			stats.TodayBookings++
		}
	}
	if stats.RatedBookings > 0 {
		stats.AverageRating = math.Round(float64(ratingSum)/float64(stats.RatedBookings)*10) / 10
	}

	recent := append([]models.Booking(nil), bookings...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	if len(recent) > recentBookings {
		recent = recent[:recentBookings]
	}
	stats.RecentBookings = append(stats.RecentBookings, recent...)
	return stats
}

func (s *DashboardService) cached(ctx context.Context) *DashboardStats {
	if s.redis == nil {
		return nil
	}
	raw, err := s.redis.Get(ctx, dashboardCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("dashboard cache read failed")
		}
		return nil
	}
	var stats DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn().Err(err).Msg("dashboard cache entry is corrupt")
		return nil
	}
	return &stats
}

func (s *DashboardService) store(ctx context.Context, stats *DashboardStats) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, dashboardCacheKey, raw, dashboardCacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("dashboard cache write failed")
	}
}

// Invalidate drops the cached statistics.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, dashboardCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("dashboard cache invalidation failed")
	}
}
