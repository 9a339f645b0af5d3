package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

// Incident store backends.
const (
	StoreNone     = "none"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	Thresholds        domain.Thresholds
	PeriodDays        int
	ExcludedVariables []string
	ReportsDir        string

	// Carry-over incident store.
	IncidentStore string
	DatabaseURL   string
	RedisURL      string

	// Priority event stream.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is loaded first when
// present; real environment variables take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	th, err := loadThresholds()
	if err != nil {
		return nil, err
	}

	periodDays, err := intEnv("REPORT_PERIOD_DAYS", domain.DefaultPeriodDays)
	if err != nil {
		return nil, err
	}
	if periodDays <= 0 {
		return nil, errors.New("REPORT_PERIOD_DAYS must be positive")
	}

	brokers := os.Getenv("KAFKA_BROKERS")
	kafkaEnabled := brokers != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:          sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
		Thresholds:        th,
		PeriodDays:        periodDays,
		ExcludedVariables: parseList(sharedcfg.EnvOrDefault("EXCLUDED_VARIABLES", strings.Join(domain.DefaultExcludedVariables, ","))),
		ReportsDir:        sharedcfg.EnvOrDefault("REPORTS_DIR", "./reportes"),
		IncidentStore:     strings.ToLower(sharedcfg.EnvOrDefault("INCIDENT_STORE", StoreNone)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:    sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "station-priorities"),
	}

	switch cfg.IncidentStore {
	case StoreNone:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("INCIDENT_STORE is postgres but DATABASE_URL is not set")
		}
	case StoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("INCIDENT_STORE is redis but REDIS_URL is not set")
		}
	default:
		return nil, fmt.Errorf("invalid INCIDENT_STORE %q (want none, postgres or redis)", cfg.IncidentStore)
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func loadThresholds() (domain.Thresholds, error) {
	th := domain.DefaultThresholds()

	floats := []struct {
		env string
		dst *float64
	}{
		{"THRESHOLD_CRITICAL", &th.CriticalPct},
		{"THRESHOLD_ANOMALY", &th.AnomalyPct},
		{"SEVERE_SHORTAGE_PCT", &th.SevereShortagePct},
		{"DORMANCY_MAX_PCT", &th.DormancyMaxPct},
		{"SIGNIFICANT_GAP", &th.SignificantGap},
	}
	for _, f := range floats {
		v, err := floatEnv(f.env, *f.dst)
		if err != nil {
			return th, err
		}
		*f.dst = v
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"NEW_INCIDENT_MAX_DAYS", &th.NewIncidentMaxDays},
		{"RESOLUTION_TOLERANCE_DAYS", &th.ToleranceDays},
		{"DORMANCY_MIN_DAYS", &th.DormancyMinDays},
		{"CLOSURE_MIN_DAYS", &th.ClosureMinDays},
	}
	for _, i := range ints {
		v, err := intEnv(i.env, *i.dst)
		if err != nil {
			return th, err
		}
		*i.dst = v
	}

	if err := th.Validate(); err != nil {
		return th, fmt.Errorf("invalid thresholds: %w", err)
	}
	return th, nil
}

func floatEnv(name string, def float64) (float64, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func intEnv(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
