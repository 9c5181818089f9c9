package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"reservations/internal/domain/pricing"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	HTTPAddr    string
	Storage     string
	PostgresURL string
	RedisAddr   string
	GatewayAddr string

	HoldTTL  time.Duration
	OfferTTL time.Duration

	HoldSweepInterval       time.Duration
	OfferSweepInterval      time.Duration
	RefundReconcileInterval time.Duration
	RefundReconcileAfter    time.Duration

	RiskTimeout        time.Duration
	RiskMaxRetries     int
	RiskReviewAttempts int
	RiskRejectAttempts int
	RiskWindow         time.Duration

	TicketSigningKey string
	Fees             pricing.Schedule

	JaegerEndpoint string
	LogLevel       logrus.Level
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	e := env{getenv: getenv}
	defaults := pricing.DefaultSchedule()

	cfg := Config{
		HTTPAddr:    e.getString("HTTP_ADDR", ":8080"),
		Storage:     e.getString("STORAGE", StoragePostgres),
		PostgresURL: e.getString("POSTGRES_URL", ""),
		RedisAddr:   e.getString("REDIS_ADDR", ""),
		GatewayAddr: e.getString("GATEWAY_ADDR", ""),

		HoldTTL:  e.getDuration("HOLD_TTL", 15*time.Minute),
		OfferTTL: e.getDuration("OFFER_TTL", 30*time.Minute),

		HoldSweepInterval:       e.getDuration("HOLD_SWEEP_INTERVAL", 30*time.Second),
		OfferSweepInterval:      e.getDuration("OFFER_SWEEP_INTERVAL", 30*time.Second),
		RefundReconcileInterval: e.getDuration("REFUND_RECONCILE_INTERVAL", time.Minute),
		RefundReconcileAfter:    e.getDuration("REFUND_RECONCILE_AFTER", 5*time.Minute),

		RiskTimeout:        e.getDuration("RISK_TIMEOUT", 2*time.Second),
		RiskMaxRetries:     e.getInt("RISK_MAX_RETRIES", 2),
		RiskReviewAttempts: e.getInt("RISK_REVIEW_ATTEMPTS", 5),
		RiskRejectAttempts: e.getInt("RISK_REJECT_ATTEMPTS", 20),
		RiskWindow:         e.getDuration("RISK_WINDOW", 10*time.Minute),

		TicketSigningKey: e.getString("TICKET_SIGNING_KEY", ""),
		Fees: pricing.Schedule{
			GatewayBps:     e.getInt64("FEE_GATEWAY_BPS", defaults.GatewayBps),
			MaintenanceBps: e.getInt64("FEE_MAINTENANCE_BPS", defaults.MaintenanceBps),
			PlatformFlat:   e.getInt64("FEE_PLATFORM_FLAT", defaults.PlatformFlat),
			TaxBps:         e.getInt64("TAX_BPS", defaults.TaxBps),
		},

		JaegerEndpoint: e.getString("JAEGER_ENDPOINT", ""),
		LogLevel:       e.getLevel("LOG_LEVEL", logrus.InfoLevel),
	}

	if err := errors.Join(e.errs...); err != nil {
		return Config{}, err
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required for postgres storage")
		}
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for postgres storage")
		}
	default:
		return fmt.Errorf("STORAGE: unknown storage %q", c.Storage)
	}

	if c.RiskRejectAttempts <= c.RiskReviewAttempts {
		return errors.New("RISK_REJECT_ATTEMPTS must be greater than RISK_REVIEW_ATTEMPTS")
	}

	return nil
}

type env struct {
	getenv func(string) string
	errs   []error
}

func (e *env) getString(key, def string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return def
}

func (e *env) getDuration(key string, def time.Duration) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *env) getInt(key string, def int) int {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return i
}

func (e *env) getInt64(key string, def int64) int64 {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return i
}

func (e *env) getLevel(key string, def logrus.Level) logrus.Level {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	l, err := logrus.ParseLevel(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return l
}
