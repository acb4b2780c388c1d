package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"fortune-wheel-backend/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEPLOYMENT_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ENV", "development")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Timing.ResultDelay != 10*time.Second || cfg.Timing.MaxRetries != 5 {
		t.Errorf("Unexpected default timing: %+v", cfg.Timing)
	}
	if cfg.Timing.AnimationDuration != 3200*time.Millisecond {
		t.Errorf("Expected 3.2s animation, got %s", cfg.Timing.AnimationDuration)
	}
	if cfg.JWTSecret == "" {
		t.Error("Expected a development JWT secret")
	}
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("DEPLOYMENT_FILE", "")
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := config.Load(); err == nil {
		t.Error("Expected error without JWT_SECRET in production")
	}
}

func TestLoadDeploymentWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployment.yaml")
	content := "chain_id: 31337\nwheel_address: \"0x00000000000000000000000000000000000000aa\"\ntoken_address: \"0x00000000000000000000000000000000000000bb\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DEPLOYMENT_FILE", path)
	t.Setenv("TOKEN_CONTRACT_ADDRESS", "0x00000000000000000000000000000000000000cc")
	t.Setenv("RESULT_DELAY", "2s")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	dep := cfg.Deployment
	if dep.ChainID != 31337 || dep.WheelAddress != "0x00000000000000000000000000000000000000aa" {
		t.Errorf("Unexpected deployment: %+v", dep)
	}
	if dep.TokenAddress != "0x00000000000000000000000000000000000000cc" {
		t.Errorf("Expected env override for token address, got %s", dep.TokenAddress)
	}
	if cfg.Timing.ResultDelay != 2*time.Second {
		t.Errorf("Expected RESULT_DELAY override, got %s", cfg.Timing.ResultDelay)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("DEPLOYMENT_FILE", "")
	t.Setenv("RESULT_DELAY", "soon")

	if _, err := config.Load(); err == nil {
		t.Error("Expected error for malformed duration")
	}
}
