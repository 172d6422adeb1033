package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"local-services-server/config"
	"local-services-server/database"
	"local-services-server/database/dbtest"
	"local-services-server/models"
)

func TestSeedCatalogPopulatesEmptyTable(t *testing.T) {
	db := dbtest.New(t)
	inactive := false
	catalog := &config.Catalog{Services: []config.CatalogEntry{
		{Category: "Electrical", Name: "Visit", BaseCost: 500},
		{Category: "plumbing", Name: "Visit", BaseCost: 400},
		{Category: "ac", Name: "AC service", BaseCost: 700, Active: &inactive},
	}}

	n, err := database.SeedCatalog(context.Background(), db, catalog)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var services []models.Service
	require.NoError(t, db.Order("id").Find(&services).Error)
	require.Len(t, services, 3)
	assert.Equal(t, "electrical", services[0].Category)
	assert.True(t, services[0].IsActive)
	assert.False(t, services[2].IsActive)
}

func TestSeedCatalogSkipsPopulatedTable(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, db.Create(&models.Service{Category: "plumbing", Name: "Existing", BaseCost: 300, IsActive: true}).Error)

	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)

	n, err := database.SeedCatalog(context.Background(), db, catalog)
	require.NoError(t, err)
	assert.Zero(t, n)

	var count int64
	db.Model(&models.Service{}).Count(&count)
	assert.EqualValues(t, 1, count)
}
