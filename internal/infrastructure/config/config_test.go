package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("COMMAND_CONSUMER", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if !cfg.MigrateOnStart {
		t.Fatalf("expected migrations to run on start by default")
	}

	if cfg.DepositPollInterval != 15*time.Second || cfg.DepositMaxPollDuration != 24*time.Hour {
		t.Fatalf("unexpected deposit defaults: %s / %s", cfg.DepositPollInterval, cfg.DepositMaxPollDuration)
	}
	if cfg.LateDepositInterval != 10*time.Minute || cfg.LateDepositWindow != 7*24*time.Hour {
		t.Fatalf("unexpected late deposit defaults: %s / %s", cfg.LateDepositInterval, cfg.LateDepositWindow)
	}

	if cfg.WalletLockTTL != 2*time.Minute || cfg.WalletLockWait != 30*time.Second {
		t.Fatalf("unexpected wallet lock defaults: %s / %s", cfg.WalletLockTTL, cfg.WalletLockWait)
	}

	if cfg.OutboxRetention != 7*24*time.Hour {
		t.Fatalf("expected one week outbox retention, got %s", cfg.OutboxRetention)
	}

	if cfg.DustThresholdNano != 10_000_000 {
		t.Fatalf("expected dust threshold 0.01 TON, got %d", cfg.DustThresholdNano)
	}

	if cfg.BreakerFailureRatio != 0.5 || cfg.BreakerMinRequests != 10 {
		t.Fatalf("unexpected breaker defaults: %v / %d", cfg.BreakerFailureRatio, cfg.BreakerMinRequests)
	}

	if cfg.StatementTimeout != 15*time.Second || cfg.LockTimeout != 5*time.Second || cfg.DBMaxRetries != 3 {
		t.Fatalf("unexpected transaction defaults: %s / %s / %d", cfg.StatementTimeout, cfg.LockTimeout, cfg.DBMaxRetries)
	}

	if cfg.HTTPRateLimitRPS != 20 || cfg.HTTPRateLimitBurst != 40 {
		t.Fatalf("unexpected rate limit defaults: %v / %d", cfg.HTTPRateLimitRPS, cfg.HTTPRateLimitBurst)
	}

	if cfg.EventSink != "redis" || cfg.RedisConnectTimeout != 30*time.Second {
		t.Fatalf("unexpected redis defaults: %s / %s", cfg.EventSink, cfg.RedisConnectTimeout)
	}

	if cfg.CommandConsumer == "" {
		t.Fatalf("expected command consumer to default to the hostname")
	}

	if len(cfg.ConfirmationTiers) != 4 {
		t.Fatalf("expected 4 default tiers, got %d", len(cfg.ConfirmationTiers))
	}
}

func TestDefaultTiers(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	policy, err := cfg.ConfirmationPolicy()
	if err != nil {
		t.Fatalf("unexpected policy error: %v", err)
	}

	tests := []struct {
		amount int64
		want   domain.ConfirmationRequirement
	}{
		{0, domain.ConfirmationRequirement{RequiredConfirmations: 1}},
		{10 * domain.NanoPerTON, domain.ConfirmationRequirement{RequiredConfirmations: 1}},
		{10*domain.NanoPerTON + 1, domain.ConfirmationRequirement{RequiredConfirmations: 3}},
		{1000 * domain.NanoPerTON, domain.ConfirmationRequirement{RequiredConfirmations: 6}},
		{1000*domain.NanoPerTON + 1, domain.ConfirmationRequirement{RequiredConfirmations: 12, OperatorReview: true}},
	}

	for _, tt := range tests {
		if got := policy.Requirement(tt.amount); got != tt.want {
			t.Fatalf("Requirement(%d) = %+v, want %+v", tt.amount, got, tt.want)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("COMMAND_CONSUMER", "worker-7")
	t.Setenv("TONCENTER_RPS", "10")
	t.Setenv("CONFIRMATION_TIERS", "0.5:0:false, max:2:false")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.CommandConsumer != "worker-7" {
		t.Fatalf("expected consumer override, got %s", cfg.CommandConsumer)
	}

	if cfg.ToncenterRPS != 10 {
		t.Fatalf("expected toncenter rps override, got %v", cfg.ToncenterRPS)
	}

	want := config.Tiers{
		{Threshold: 500_000_000, RequiredConfirmations: 0},
		{Threshold: domain.CatchAllThreshold, RequiredConfirmations: 2},
	}
	if len(cfg.ConfirmationTiers) != len(want) {
		t.Fatalf("expected %d tiers, got %d", len(want), len(cfg.ConfirmationTiers))
	}
	for i := range want {
		if cfg.ConfirmationTiers[i] != want[i] {
			t.Fatalf("tier %d = %+v, want %+v", i, cfg.ConfirmationTiers[i], want[i])
		}
	}
}

func TestLoadRejectsBadTiers(t *testing.T) {
	tests := map[string]string{
		"missing field":     "10:1,max:12:true",
		"bad amount":        "ten:1:false,max:12:true",
		"too many decimals": "0.0000000001:1:false,max:12:true",
		"bad confirmations": "10:x:false,max:12:true",
		"bad review flag":   "10:1:maybe,max:12:true",
		"no catch-all":      "10:1:false,100:3:false",
		"not ascending":     "100:1:false,10:3:false,max:12:true",
		"only separators":   ",,",
	}

	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("CONFIRMATION_TIERS", value)

			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error for tiers %q", value)
			}
		})
	}
}

func TestLoadRejectsUnknownEventSink(t *testing.T) {
	t.Setenv("EVENT_SINK", "kafka")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for unknown event sink")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	original := os.Getenv("HTTP_READ_TIMEOUT")
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")
	t.Cleanup(func() {
		t.Setenv("HTTP_READ_TIMEOUT", original)
	})

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
