package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_RequiresRabbitMQURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sonna")
	t.Setenv("RABBITMQ_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when RABBITMQ_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sonna")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.ServerPort)
	}
	if cfg.SnoozeDuration != 10*time.Minute {
		t.Errorf("expected default snooze duration 10m, got %v", cfg.SnoozeDuration)
	}
	if cfg.AckTimeout != 30*time.Minute {
		t.Errorf("expected default ack timeout 30m, got %v", cfg.AckTimeout)
	}
	if cfg.MaxSnoozes != 5 {
		t.Errorf("expected default max snoozes 5, got %d", cfg.MaxSnoozes)
	}
	if cfg.NotifyChannel != "amqp" {
		t.Errorf("expected default notify channel amqp, got %s", cfg.NotifyChannel)
	}
	if cfg.DispatchWorkers != 4 {
		t.Errorf("expected default 4 dispatch workers, got %d", cfg.DispatchWorkers)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sonna")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")
	t.Setenv("SNOOZE_DURATION", "15m")
	t.Setenv("MAX_SNOOZES", "3")
	t.Setenv("DISPATCH_WORKERS", "8")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SnoozeDuration != 15*time.Minute {
		t.Errorf("expected snooze duration 15m, got %v", cfg.SnoozeDuration)
	}
	if cfg.MaxSnoozes != 3 {
		t.Errorf("expected max snoozes 3, got %d", cfg.MaxSnoozes)
	}
	if cfg.DispatchWorkers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.DispatchWorkers)
	}
	if !cfg.OTELEnabled {
		t.Error("expected OTEL enabled")
	}
}

func TestLoad_HTTPNotifyRequiresGatewayURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sonna")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")
	t.Setenv("NOTIFY_CHANNEL", "http")
	t.Setenv("PUSH_GATEWAY_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when NOTIFY_CHANNEL=http without PUSH_GATEWAY_URL")
	}
}

func TestLoad_RejectsUnknownNotifyChannel(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sonna")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")
	t.Setenv("NOTIFY_CHANNEL", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown notify channel")
	}
}
