package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.MatcherWeight != 0.5 || cfg.ETAMode != "speed" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadServerConfigFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("MATCHER_WEIGHT", "0.8")
	t.Setenv("MATCHER_ASSIGN_INTERVAL", "5s")
	t.Setenv("ETA_MODE", "OSRM")
	t.Setenv("OSRM_ENDPOINT", "http://osrm:5000")
	t.Setenv("DEFAULT_DRIVER_LAT", "34.68")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.MatcherWeight != 0.8 || cfg.AssignInterval != 5*time.Second || cfg.ETAMode != "osrm" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.DefaultLocation.Location.Lat != 34.68 {
		t.Fatalf("default location not applied: %+v", cfg.DefaultLocation)
	}
}

func TestLoadServerConfigCollectsErrors(t *testing.T) {
	t.Setenv("MATCHER_WEIGHT", "1.5")
	t.Setenv("HTTP_READ_TIMEOUT", "soon")
	t.Setenv("ETA_MODE", "osrm")

	_, err := LoadServerConfig()
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, want := range []string{"MATCHER_WEIGHT", "HTTP_READ_TIMEOUT", "OSRM_ENDPOINT"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}

func TestLoadSimConfig(t *testing.T) {
	if _, err := LoadSimConfig(); err == nil || !strings.Contains(err.Error(), "SIM_EVENT_ID") {
		t.Fatalf("expected missing event error, got %v", err)
	}

	id := uuid.New()
	t.Setenv("SIM_EVENT_ID", id.String())
	t.Setenv("SIM_PROVISION", "false")
	t.Setenv("SIM_ACCOUNTS", "12:tok-a, 13:tok-b")
	t.Setenv("SIM_TICK", "250ms")

	cfg, err := LoadSimConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EventID != id || cfg.Provision || cfg.Tick != 250*time.Millisecond || cfg.Speed != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.Accounts) != 2 || cfg.Accounts[1].DriverID != 13 || cfg.Accounts[1].Token != "tok-b" {
		t.Fatalf("unexpected accounts %+v", cfg.Accounts)
	}
}

func TestLoadSimConfigRejectsBadAccounts(t *testing.T) {
	t.Setenv("SIM_EVENT_ID", uuid.New().String())
	t.Setenv("SIM_ACCOUNTS", "twelve:tok")
	if _, err := LoadSimConfig(); err == nil {
		t.Fatalf("expected invalid account error")
	}
}

func TestLoadConsumerConfig(t *testing.T) {
	t.Setenv("KAFKA_BROKER", "k:9092")
	t.Setenv("CONSUMER_RETRY_ATTEMPTS", "0")
	cfg, err := LoadConsumerConfig()
	if err == nil {
		t.Fatalf("expected retry validation error")
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "k:9092" {
		t.Fatalf("legacy KAFKA_BROKER not honoured: %v", cfg.KafkaBrokers)
	}
}
