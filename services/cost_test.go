package services

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"local-services-server/config"
	"local-services-server/database/dbtest"
	"local-services-server/models"
)

func TestCalculateCostProperty(t *testing.T) {
	m := MultipliersFromConfig(config.Default().Booking)
	priorities := []models.Priority{models.PriorityNormal, models.PriorityUrgent, models.PriorityEmergency}
	bases := []float64{0, 1, 399.5, 400, 500, 649.99, 1234.5}

	for _, base := range bases {
		for _, p := range priorities {
			assert.Equal(t, int64(math.Round(base*m.For(p))), CalculateCost(base, p, m), "base=%v priority=%s", base, p)
		}
	}

	assert.Equal(t, 1.0, m.For(models.PriorityNormal))
	assert.Less(t, m.For(models.PriorityNormal), m.For(models.PriorityUrgent))
	assert.Less(t, m.For(models.PriorityUrgent), m.For(models.PriorityEmergency))
	assert.Equal(t, 1.0, m.For("unknown"))
}

func TestEstimateUsesCheapestActiveCatalogRow(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, db.Create(&[]models.Service{
		{Category: "electrical", Name: "Fan install", BaseCost: 650, IsActive: true},
		{Category: "electrical", Name: "Visit", BaseCost: 520, IsActive: true},
		{Category: "plumbing", Name: "Visit", BaseCost: 380, IsActive: true},
	}).Error)
	// An inactive row must not lower the price.
	cheap := models.Service{Category: "electrical", Name: "Old promo", BaseCost: 100, IsActive: true}
	require.NoError(t, db.Create(&cheap).Error)
	require.NoError(t, db.Model(&cheap).Update("is_active", false).Error)

	calc := NewCostCalculator(db, config.Default().Booking, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, int64(520), calc.Estimate(ctx, "electrical", models.PriorityNormal))
	assert.Equal(t, int64(780), calc.Estimate(ctx, "electrical", models.PriorityEmergency))
	assert.Equal(t, int64(456), calc.Estimate(ctx, "Plumbing", models.PriorityUrgent))
}

func TestEstimateFallsBackWithoutCatalog(t *testing.T) {
	db := dbtest.New(t)
	calc := NewCostCalculator(db, config.Default().Booking, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, int64(500), calc.Estimate(ctx, "electrical", models.PriorityNormal))
	assert.Equal(t, int64(480), calc.Estimate(ctx, "plumbing", models.PriorityUrgent))
	assert.Equal(t, int64(675), calc.Estimate(ctx, "appliance", models.PriorityEmergency))
	assert.Equal(t, int64(450), calc.Estimate(ctx, "ac", "whenever"))
}

func TestEstimateWithoutDatabase(t *testing.T) {
	calc := NewCostCalculator(nil, config.Default().Booking, zerolog.Nop())
	assert.Equal(t, int64(750), calc.Estimate(context.Background(), "electrical", models.PriorityEmergency))
}
