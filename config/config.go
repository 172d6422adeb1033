package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	JWT           JWTConfig
	Admin         AdminConfig
	Booking       BookingConfig
	Redis         RedisConfig
	NATS          NATSConfig
	Firebase      FirebaseConfig
	Cloudinary    CloudinaryConfig
	Logging       LoggingConfig
	Notifications NotificationConfig
}

type ServerConfig struct {
	Port            string
	GinMode         string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL          string
	MaxIdleConns int
	MaxOpenConns int
	LogLevel     string
	CatalogPath  string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// AdminConfig holds the bootstrap administrator created on first start.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

type BookingConfig struct {
	NumberPrefix         string
	Timezone             string
	EnforceBusinessHours bool
	BusinessHourStart    int
	BusinessHourEnd      int
	UrgentMultiplier     float64
	EmergencyMultiplier  float64
	FallbackRates        map[string]float64
	DefaultRate          float64
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type NATSConfig struct {
	Enabled       bool
	URL           string
	SubjectPrefix string
}

type FirebaseConfig struct {
	Enabled         bool
	ProjectID       string
	CredentialsFile string
}

type CloudinaryConfig struct {
	Enabled bool
	URL     string
	Folder  string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type NotificationConfig struct {
	QueueSize     int
	RetentionDays int
	SweepInterval time.Duration
}

var AppConfig *Config

// Load reads the configuration from the environment into AppConfig.
func Load() *Config {
	AppConfig = &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			GinMode:         getEnv("GIN_MODE", "debug"),
			AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DB_URL", ""),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
			CatalogPath:  getEnv("CATALOG_PATH", ""),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-this-secret-in-production"),
			ExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 24),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
			Name:     getEnv("ADMIN_NAME", "Administrator"),
		},
		Booking: BookingConfig{
			NumberPrefix:         getEnv("BOOKING_NUMBER_PREFIX", "LSB"),
			Timezone:             getEnv("BOOKING_TIMEZONE", "Asia/Kolkata"),
			EnforceBusinessHours: getEnvAsBool("BOOKING_ENFORCE_BUSINESS_HOURS", false),
			BusinessHourStart:    getEnvAsInt("BOOKING_BUSINESS_HOUR_START", 9),
			BusinessHourEnd:      getEnvAsInt("BOOKING_BUSINESS_HOUR_END", 18),
			UrgentMultiplier:     getEnvAsFloat("PRIORITY_URGENT_MULTIPLIER", 1.2),
			EmergencyMultiplier:  getEnvAsFloat("PRIORITY_EMERGENCY_MULTIPLIER", 1.5),
			FallbackRates: map[string]float64{
				"electrical": getEnvAsFloat("FALLBACK_RATE_ELECTRICAL", 500),
				"plumbing":   getEnvAsFloat("FALLBACK_RATE_PLUMBING", 400),
			},
			DefaultRate: getEnvAsFloat("FALLBACK_RATE_DEFAULT", 450),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			Enabled:       getEnvAsBool("NATS_ENABLED", false),
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "localservices"),
		},
		Firebase: FirebaseConfig{
			Enabled:         getEnvAsBool("FIREBASE_ENABLED", false),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
		Cloudinary: CloudinaryConfig{
			Enabled: getEnvAsBool("CLOUDINARY_ENABLED", false),
			URL:     getEnv("CLOUDINARY_URL", ""),
			Folder:  getEnv("CLOUDINARY_FOLDER", "bookings"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Notifications: NotificationConfig{
			QueueSize:     getEnvAsInt("NOTIFICATION_QUEUE_SIZE", 100),
			RetentionDays: getEnvAsInt("NOTIFICATION_RETENTION_DAYS", 30),
			SweepInterval: getEnvAsDuration("NOTIFICATION_SWEEP_INTERVAL", 24*time.Hour),
		},
	}
	return AppConfig
}

// Default returns the configuration Load would produce with an empty
// environment. Tests use it to avoid depending on process state.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			GinMode:         "test",
			AllowedOrigins:  []string{"http://localhost:3000"},
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{MaxIdleConns: 10, MaxOpenConns: 100, LogLevel: "silent"},
		JWT:      JWTConfig{Secret: "test-secret", ExpiryHours: 24},
		Admin:    AdminConfig{Name: "Administrator"},
		Booking: BookingConfig{
			NumberPrefix:        "LSB",
			Timezone:            "Asia/Kolkata",
			BusinessHourStart:   9,
			BusinessHourEnd:     18,
			UrgentMultiplier:    1.2,
			EmergencyMultiplier: 1.5,
			FallbackRates:       map[string]float64{"electrical": 500, "plumbing": 400},
			DefaultRate:         450,
		},
		NATS:          NATSConfig{SubjectPrefix: "localservices"},
		Cloudinary:    CloudinaryConfig{Folder: "bookings"},
		Logging:       LoggingConfig{Level: "info", Format: "json"},
		Notifications: NotificationConfig{QueueSize: 100, RetentionDays: 30, SweepInterval: 24 * time.Hour},
	}
}

// Location resolves the business timezone, falling back to UTC.
func (b BookingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
