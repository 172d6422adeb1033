package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"local-services-server/config"
	"local-services-server/database/dbtest"
	"local-services-server/models"
	"local-services-server/utils"
)

func TestBootstrapAndLogin(t *testing.T) {
	db := dbtest.New(t)
	cfg := config.Default()
	svc := NewAdminService(db, cfg.JWT, zerolog.Nop())
	ctx := context.Background()

	created, err := svc.EnsureBootstrapAdmin(ctx, config.AdminConfig{Email: "Admin@Example.in", Password: "pa55word"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureBootstrapAdmin(ctx, config.AdminConfig{Email: "admin@example.in", Password: "other"})
	require.NoError(t, err)
	assert.False(t, created, "existing admin is left alone")

	res, err := svc.Login(ctx, "admin@example.in", "pa55word")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.NotNil(t, res.Admin.LastLoginAt)

	claims, err := utils.VerifyToken(cfg.JWT, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Admin.ID, claims.AdminID)

	me, err := svc.Get(ctx, claims.AdminID)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.in", me.Email)
	assert.Equal(t, "Administrator", me.Name)
}

func TestLoginFailures(t *testing.T) {
	db := dbtest.New(t)
	svc := NewAdminService(db, config.Default().JWT, zerolog.Nop())
	ctx := context.Background()
	_, err := svc.EnsureBootstrapAdmin(ctx, config.AdminConfig{Email: "admin@example.in", Password: "pa55word"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "", "")
	assert.True(t, IsValidation(err))

	_, err = svc.Login(ctx, "admin@example.in", "wrong")
	assert.True(t, IsUnauthorized(err))

	_, err = svc.Login(ctx, "nobody@example.in", "pa55word")
	assert.True(t, IsUnauthorized(err))

	require.NoError(t, db.Model(&models.Admin{}).Where("email = ?", "admin@example.in").Update("is_active", false).Error)
	_, err = svc.Login(ctx, "admin@example.in", "pa55word")
	assert.True(t, IsUnauthorized(err))

	_, err = svc.Get(ctx, 1)
	assert.True(t, IsNotFound(err))
}

func TestBootstrapSkippedWithoutCredentials(t *testing.T) {
	db := dbtest.New(t)
	svc := NewAdminService(db, config.Default().JWT, zerolog.Nop())

	created, err := svc.EnsureBootstrapAdmin(context.Background(), config.AdminConfig{})
	require.NoError(t, err)
	assert.False(t, created)
}
