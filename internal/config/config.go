package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env     string
	Port    string
	LogMode string
	APIKey  string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string
	JWTExpiry time.Duration

	RPCURL         string
	PrivateKey     string
	DeploymentFile string
	Deployment     *Deployment

	Timing Timing
}

// Timing holds the fixed delays of the bet flow. The defaults mirror the
// block-time assumptions the game front-end was built around.
type Timing struct {
	ResultDelay       time.Duration
	RetryPause        time.Duration
	MaxRetries        int
	AnimationDuration time.Duration
	CooldownSeconds   int
	CooldownTick      time.Duration
	BlockPollInterval time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		ResultDelay:       10 * time.Second,
		RetryPause:        500 * time.Millisecond,
		MaxRetries:        5,
		AnimationDuration: 3200 * time.Millisecond,
		CooldownSeconds:   3,
		CooldownTick:      time.Second,
		BlockPollInterval: 2 * time.Second,
	}
}

// LoadDotEnv loads path into the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		LogMode:        getEnv("LOG_MODE", "dev"),
		APIKey:         os.Getenv("API_KEY"),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:      os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RPCURL:         os.Getenv("RPC_URL"),
		PrivateKey:     os.Getenv("PLAYER_PRIVATE_KEY"),
		DeploymentFile: getEnv("DEPLOYMENT_FILE", "deployment.yaml"),
		Timing:         DefaultTiming(),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.JWTExpiry, err = getDuration("JWT_EXPIRY", 24*time.Hour); err != nil {
		return nil, err
	}

	t := &cfg.Timing
	if t.ResultDelay, err = getDuration("RESULT_DELAY", t.ResultDelay); err != nil {
		return nil, err
	}
	if t.RetryPause, err = getDuration("RESULT_RETRY_PAUSE", t.RetryPause); err != nil {
		return nil, err
	}
	if t.MaxRetries, err = getInt("RESULT_MAX_RETRIES", t.MaxRetries); err != nil {
		return nil, err
	}
	if t.AnimationDuration, err = getDuration("ANIMATION_DURATION", t.AnimationDuration); err != nil {
		return nil, err
	}
	if t.CooldownSeconds, err = getInt("BET_COOLDOWN_SECONDS", t.CooldownSeconds); err != nil {
		return nil, err
	}
	if t.BlockPollInterval, err = getDuration("BLOCK_POLL_INTERVAL", t.BlockPollInterval); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}

	dep, err := LoadDeployment(cfg.DeploymentFile)
	if err != nil {
		return nil, err
	}
	dep.applyEnv()
	cfg.Deployment = dep

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
