package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-dispatch/internal/models"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string

	KafkaBrokers []string
	KafkaTopic   string

	// MatcherWeight trades wait-time fairness (0) against proximity (1).
	MatcherWeight  float64
	AssignInterval time.Duration

	// ETAMode selects the travel time source: speed, table or osrm.
	ETAMode         string
	ETATablePath    string
	OSRMEndpoint    string
	DefaultSpeedMps float64
	ETACacheTTL     time.Duration

	// DefaultLocation is used for drivers that have not reported a location yet.
	DefaultLocation models.Stop
	DispatchWebhook string

	LogLevel string
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RedisGeoKey:     "drivers_geo",
		KafkaTopic:      "driver-locations",
		MatcherWeight:   0.5,
		ETAMode:         "speed",
		DefaultSpeedMps: 10,
		ETACacheTTL:     time.Minute,
		DefaultLocation: models.Stop{Address: "Driver"},
		LogLevel:        "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	setFloatFromEnv(&cfg.MatcherWeight, "MATCHER_WEIGHT", &errs)
	setDurationFromEnv(&cfg.AssignInterval, "MATCHER_ASSIGN_INTERVAL", &errs)

	if v := os.Getenv("ETA_MODE"); v != "" {
		cfg.ETAMode = strings.ToLower(strings.TrimSpace(v))
	}
	setStringFromEnv(&cfg.ETATablePath, "ETA_TABLE_PATH")
	setStringFromEnv(&cfg.OSRMEndpoint, "OSRM_ENDPOINT")
	setFloatFromEnv(&cfg.DefaultSpeedMps, "MATCHER_DEFAULT_SPEED_MPS", &errs)
	setDurationFromEnv(&cfg.ETACacheTTL, "ETA_CACHE_TTL", &errs)

	setFloatFromEnv(&cfg.DefaultLocation.Location.Lat, "DEFAULT_DRIVER_LAT", &errs)
	setFloatFromEnv(&cfg.DefaultLocation.Location.Lng, "DEFAULT_DRIVER_LNG", &errs)
	setStringFromEnv(&cfg.DispatchWebhook, "DISPATCH_WEBHOOK")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.MatcherWeight < 0 || cfg.MatcherWeight > 1 {
		errs = append(errs, fmt.Errorf("MATCHER_WEIGHT must be within [0,1]"))
	}
	if cfg.DefaultSpeedMps <= 0 {
		errs = append(errs, fmt.Errorf("MATCHER_DEFAULT_SPEED_MPS must be > 0"))
	}
	switch cfg.ETAMode {
	case "speed", "table":
	case "osrm":
		if cfg.OSRMEndpoint == "" {
			errs = append(errs, fmt.Errorf("OSRM_ENDPOINT is required when ETA_MODE=osrm"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ETA_MODE %q", cfg.ETAMode))
	}

	return cfg, errors.Join(errs...)
}

// SimConfig configures the driver simulator.
type SimConfig struct {
	BackendURL  string
	AdminToken  string
	EventID     uuid.UUID
	VehicleID   uuid.UUID
	AuthCode    string
	DriverCount int
	Provision   bool
	// Accounts are pre-provisioned drivers ("id:token,...") used when
	// Provision is false.
	Accounts []SimAccount

	Speed int
	Tick  time.Duration

	GoogleMapsKey string
	OSRMEndpoint  string
	StepMeters    float64

	KafkaBrokers []string
	KafkaTopic   string

	MetricsAddr string
	LogLevel    string
}

type SimAccount struct {
	DriverID int64
	Token    string
}

func defaultSimConfig() SimConfig {
	return SimConfig{
		BackendURL:  "http://127.0.0.1:8080/graphql",
		VehicleID:   uuid.MustParse("9de3aa13-8945-4044-9826-5597101db209"),
		AuthCode:    "000000",
		DriverCount: 2,
		Provision:   true,
		Speed:       2,
		Tick:        time.Second,
		StepMeters:  25,
		KafkaTopic:  "driver-locations",
		MetricsAddr: ":9102",
		LogLevel:    "info",
	}
}

func LoadSimConfig() (SimConfig, error) {
	cfg := defaultSimConfig()
	var errs []error

	setStringFromEnv(&cfg.BackendURL, "SIM_BACKEND_URL")
	cfg.AdminToken = os.Getenv("SIM_ADMIN_TOKEN")
	setUUIDFromEnv(&cfg.EventID, "SIM_EVENT_ID", &errs)
	setUUIDFromEnv(&cfg.VehicleID, "SIM_VEHICLE_ID", &errs)
	setStringFromEnv(&cfg.AuthCode, "SIM_AUTH_CODE")
	setIntFromEnv(&cfg.DriverCount, "SIM_DRIVER_COUNT", &errs)
	if v := os.Getenv("SIM_PROVISION"); v != "" {
		cfg.Provision = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SIM_ACCOUNTS"); v != "" {
		accts, err := parseAccounts(v)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Accounts = accts
	}

	setIntFromEnv(&cfg.Speed, "SIM_SPEED", &errs)
	setDurationFromEnv(&cfg.Tick, "SIM_TICK", &errs)

	cfg.GoogleMapsKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	setStringFromEnv(&cfg.OSRMEndpoint, "OSRM_ENDPOINT")
	setFloatFromEnv(&cfg.StepMeters, "SIM_STEP_METERS", &errs)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.MetricsAddr, "SIM_METRICS_ADDR")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.EventID == uuid.Nil {
		errs = append(errs, fmt.Errorf("SIM_EVENT_ID is required"))
	}
	if cfg.Speed <= 0 {
		errs = append(errs, fmt.Errorf("SIM_SPEED must be > 0"))
	}
	if cfg.Tick <= 0 {
		errs = append(errs, fmt.Errorf("SIM_TICK must be > 0"))
	}
	if cfg.Provision && cfg.DriverCount <= 0 {
		errs = append(errs, fmt.Errorf("SIM_DRIVER_COUNT must be > 0"))
	}
	if !cfg.Provision && len(cfg.Accounts) == 0 {
		errs = append(errs, fmt.Errorf("SIM_ACCOUNTS is required when SIM_PROVISION=false"))
	}

	return cfg, errors.Join(errs...)
}

// ConsumerConfig configures the location consumer.
type ConsumerConfig struct {
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroup    string
	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string
	MetricsAddr   string
	RetryAttempts int
	RetryDelay    time.Duration
	LogLevel      string
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	cfg := ConsumerConfig{
		KafkaBrokers:  []string{"localhost:9092"},
		KafkaTopic:    "driver-locations",
		KafkaGroup:    "ride-dispatch-consumer",
		RedisAddr:     "localhost:6379",
		RedisGeoKey:   "drivers_geo",
		MetricsAddr:   ":2112",
		RetryAttempts: 3,
		RetryDelay:    200 * time.Millisecond,
		LogLevel:      "info",
	}
	var errs []error

	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		brokers = os.Getenv("KAFKA_BROKER")
	}
	if brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")
	setStringFromEnv(&cfg.RedisAddr, "REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")
	setStringFromEnv(&cfg.MetricsAddr, "CONSUMER_METRICS_ADDR")
	setIntFromEnv(&cfg.RetryAttempts, "CONSUMER_RETRY_ATTEMPTS", &errs)
	setDurationFromEnv(&cfg.RetryDelay, "CONSUMER_RETRY_DELAY", &errs)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS must list at least one broker"))
	}
	if cfg.RetryAttempts <= 0 {
		errs = append(errs, fmt.Errorf("CONSUMER_RETRY_ATTEMPTS must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func parseAccounts(v string) ([]SimAccount, error) {
	var out []SimAccount
	for _, item := range splitAndTrim(v) {
		id, token, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("invalid SIM_ACCOUNTS entry %q: want id:token", item)
		}
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SIM_ACCOUNTS driver id %q: %w", id, err)
		}
		out = append(out, SimAccount{DriverID: n, Token: token})
	}
	return out, nil
}

func setUUIDFromEnv(target *uuid.UUID, key string, errs *[]error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = id
	}
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
