package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"local-services-server/config"
	"local-services-server/models"
	"local-services-server/utils"
)

type AdminService struct {
	db     *gorm.DB
	jwt    config.JWTConfig
	logger zerolog.Logger
}

// LoginResult is returned on successful admin authentication.
type LoginResult struct {
	Token     string        `json:"token"`
	TokenType string        `json:"tokenType"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Admin     *models.Admin `json:"admin"`
}

func NewAdminService(db *gorm.DB, jwt config.JWTConfig, logger zerolog.Logger) *AdminService {
	return &AdminService{db: db, jwt: jwt, logger: logger.With().Str("component", "admin").Logger()}
}

func (s *AdminService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ValidationError{Msg: "email and password are required"}
	}

	var admin models.Admin
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, UnauthorizedError{Msg: "invalid email or password"}
	}
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if !admin.IsActive || !utils.CheckPasswordHash(password, admin.PasswordHash) {
		s.logger.Warn().Str("email", email).Msg("⚠️ Failed admin login")
		return nil, UnauthorizedError{Msg: "invalid email or password"}
	}

	token, expiresAt, err := utils.GenerateToken(s.jwt, admin.ID, admin.Email)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&admin).Update("last_login_at", &now).Error; err != nil {
		s.logger.Warn().Err(err).Uint("admin_id", admin.ID).Msg("failed to record last login")
	}
	admin.LastLoginAt = &now

	s.logger.Info().Uint("admin_id", admin.ID).Msg("✅ Admin logged in")
	return &LoginResult{Token: token, TokenType: "Bearer", ExpiresAt: expiresAt, Admin: &admin}, nil
}

// Get returns an active admin by id.
func (s *AdminService) Get(ctx context.Context, id uint) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFoundError{Resource: "admin"}
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &admin, nil
}

// EnsureBootstrapAdmin creates the configured admin account when it does
// not exist yet. It reports whether an account was created.
func (s *AdminService) EnsureBootstrapAdmin(ctx context.Context, cfg config.AdminConfig) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" || cfg.Password == "" {
		return false, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Admin{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check bootstrap admin: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	hash, err := utils.HashPassword(cfg.Password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}
	admin := models.Admin{Email: email, Name: name, PasswordHash: hash, IsActive: true}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, fmt.Errorf("create bootstrap admin: %w", err)
	}
	s.logger.Info().Str("email", email).Msg("✅ Bootstrap admin created")
	return true, nil
}
