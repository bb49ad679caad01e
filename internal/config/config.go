package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NewRelic  NewRelicConfig
	Stripe    StripeConfig
	Delivery  DeliveryConfig
	Pricing   PricingConfig
	Insurance InsuranceConfig
	Booking   BookingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// StripeConfig holds payment provider configuration.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

// DeliveryConfig holds delivery-code configuration. HMACSecret signs the
// verification hash; AESKeyBase64 is the base64-encoded key for the
// recovery encryption. Both are process-wide secrets, never derived from
// request data.
type DeliveryConfig struct {
	HMACSecret   string
	AESKeyBase64 string
	CodeTTL      time.Duration
	MaxAttempts  int
}

// PricingConfig holds base-price and commission policy. CommissionRate
// is supplied externally so it can be tuned per environment without code
// changes.
type PricingConfig struct {
	BaseFeeCents   int64
	PerKmCents     int64
	PerKgCents     int64
	MinimumCents   int64
	CommissionRate float64
}

// InsuranceConfig holds the tiered premium policy.
type InsuranceConfig struct {
	Tier1LimitCents  int64
	Tier1Rate        float64
	Tier2LimitCents  int64
	Tier2Rate        float64
	MaxDeclaredCents int64
	DeductibleRate   float64
	ClaimWindow      time.Duration
}

// BookingConfig holds the booking-creation policy caps. The exact
// thresholds are product policy, so they are configuration rather than
// compiled constants.
type BookingConfig struct {
	MaxShipments      int
	PickupRadiusKm    float64
	TripDistanceCapKm float64
	LocationMaxAge    time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "shipmate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "shipmate-core"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Stripe: StripeConfig{
			APIKey:        getEnv("STRIPE_API_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		Delivery: DeliveryConfig{
			HMACSecret:   getEnv("DELIVERY_HMAC_SECRET", ""),
			AESKeyBase64: getEnv("DELIVERY_AES_KEY", ""),
			CodeTTL:      getDurationEnv("DELIVERY_CODE_TTL", 24*time.Hour),
			MaxAttempts:  getIntEnv("DELIVERY_MAX_ATTEMPTS", 5),
		},
		Pricing: PricingConfig{
			BaseFeeCents:   getInt64Env("PRICING_BASE_FEE_CENTS", 500),
			PerKmCents:     getInt64Env("PRICING_PER_KM_CENTS", 60),
			PerKgCents:     getInt64Env("PRICING_PER_KG_CENTS", 30),
			MinimumCents:   getInt64Env("PRICING_MINIMUM_CENTS", 700),
			CommissionRate: getFloatEnv("COMMISSION_RATE", 0.20),
		},
		Insurance: InsuranceConfig{
			Tier1LimitCents:  getInt64Env("INSURANCE_TIER1_LIMIT_CENTS", 50000),
			Tier1Rate:        getFloatEnv("INSURANCE_TIER1_RATE", 0.015),
			Tier2LimitCents:  getInt64Env("INSURANCE_TIER2_LIMIT_CENTS", 200000),
			Tier2Rate:        getFloatEnv("INSURANCE_TIER2_RATE", 0.025),
			MaxDeclaredCents: getInt64Env("INSURANCE_MAX_DECLARED_CENTS", 500000),
			DeductibleRate:   getFloatEnv("INSURANCE_DEDUCTIBLE_RATE", 0.10),
			ClaimWindow:      getDurationEnv("INSURANCE_CLAIM_WINDOW", 7*24*time.Hour),
		},
		Booking: BookingConfig{
			MaxShipments:      getIntEnv("BOOKING_MAX_SHIPMENTS", 6),
			PickupRadiusKm:    getFloatEnv("BOOKING_PICKUP_RADIUS_KM", 15.0),
			TripDistanceCapKm: getFloatEnv("BOOKING_TRIP_DISTANCE_CAP_KM", 200.0),
			LocationMaxAge:    getDurationEnv("BOOKING_LOCATION_MAX_AGE", time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
