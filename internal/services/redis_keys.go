package services

import "time"

const (
	KeyAPISession   = "api:session:%s"
	KeyGame         = "wheel:game:%s"
	KeyAccountGames = "wheel:account:%s:games"
	KeyRateLimit    = "ratelimit:%s:%s"

	TTLGame = 30 * 24 * time.Hour

	// MaxHistory is how many games the per-account index keeps.
	MaxHistory        = 100
	DefaultHistoryLen = 50

	DefaultRateLimitBets     = 30 // per minute
	DefaultRateLimitAutoBets = 5  // per minute
)
