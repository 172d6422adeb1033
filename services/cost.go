package services

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"local-services-server/config"
	"local-services-server/models"
)

// Multipliers maps a priority to its price factor.
type Multipliers map[models.Priority]float64

func MultipliersFromConfig(cfg config.BookingConfig) Multipliers {
	return Multipliers{
		models.PriorityNormal:    1.0,
		models.PriorityUrgent:    cfg.UrgentMultiplier,
		models.PriorityEmergency: cfg.EmergencyMultiplier,
	}
}

// For returns the factor for p; unknown priorities cost the normal rate.
func (m Multipliers) For(p models.Priority) float64 {
	if f, ok := m[p]; ok && f > 0 {
		return f
	}
	return 1.0
}

// CalculateCost rounds base*multiplier to the nearest whole rupee.
func CalculateCost(base float64, priority models.Priority, m Multipliers) int64 {
	return int64(math.Round(base * m.For(priority)))
}

// CostCalculator prices a booking from the service catalog, falling back
// to configured rates when no active catalog row matches.
type CostCalculator struct {
	db            *gorm.DB
	multipliers   Multipliers
	fallbackRates map[string]float64
	defaultRate   float64
	logger        zerolog.Logger
}

func NewCostCalculator(db *gorm.DB, cfg config.BookingConfig, logger zerolog.Logger) *CostCalculator {
	return &CostCalculator{
		db:            db,
		multipliers:   MultipliersFromConfig(cfg),
		fallbackRates: cfg.FallbackRates,
		defaultRate:   cfg.DefaultRate,
		logger:        logger,
	}
}

// BaseRate returns the cheapest active catalog price for the service type.
func (c *CostCalculator) BaseRate(ctx context.Context, serviceType string) float64 {
	serviceType = strings.ToLower(strings.TrimSpace(serviceType))

	if c.db != nil {
		var services []models.Service
		err := c.db.WithContext(ctx).
			Where("category = ? AND is_active = ?", serviceType, true).
			Order("base_cost ASC").
			Limit(1).
			Find(&services).Error
		if err != nil {
			c.logger.Warn().Err(err).Str("service_type", serviceType).Msg("catalog lookup failed, using fallback rate")
		} else if len(services) > 0 && services[0].BaseCost > 0 {
			return services[0].BaseCost
		}
	}

	if rate, ok := c.fallbackRates[serviceType]; ok {
		return rate
	}
	return c.defaultRate
}

// Estimate never fails; unknown inputs are priced with defaults.
func (c *CostCalculator) Estimate(ctx context.Context, serviceType string, priority models.Priority) int64 {
	return CalculateCost(c.BaseRate(ctx, serviceType), priority, c.multipliers)
}
