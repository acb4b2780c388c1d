package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"fortune-wheel-backend/internal/config"
	"fortune-wheel-backend/internal/models"
)

var ErrNotFound = errors.New("not found")

type RedisService struct {
	client *redis.Client
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func accountKey(account string) string {
	return fmt.Sprintf(KeyAccountGames, strings.ToLower(account))
}

func (s *RedisService) StoreSession(ctx context.Context, session *models.APISession, expiry time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(KeyAPISession, session.SessionID)
	return s.client.Set(ctx, key, data, expiry).Err()
}

func (s *RedisService) GetSession(ctx context.Context, sessionID string) (*models.APISession, error) {
	key := fmt.Sprintf(KeyAPISession, sessionID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.APISession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	session.LastAccessed = time.Now()
	if updated, err := json.Marshal(session); err == nil {
		s.client.Set(ctx, key, updated, redis.KeepTTL)
	}

	return &session, nil
}

func (s *RedisService) DeleteSession(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyAPISession, sessionID)).Err()
}

// SaveGame stores the game and indexes it under its account, keeping only
// the newest MaxHistory entries.
func (s *RedisService) SaveGame(ctx context.Context, game *models.GameResult) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}

	idx := accountKey(game.Account)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(KeyGame, game.ID), data, TTLGame)
	pipe.ZAdd(ctx, idx, redis.Z{
		Score:  float64(game.CreatedAt.UnixNano()),
		Member: game.ID,
	})
	pipe.ZRemRangeByRank(ctx, idx, 0, -(MaxHistory + 1))
	pipe.Expire(ctx, idx, TTLGame)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (s *RedisService) GetGame(ctx context.Context, gameID string) (*models.GameResult, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyGame, gameID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	var game models.GameResult
	if err := json.Unmarshal([]byte(data), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}
	return &game, nil
}

// GetGameHistory returns the newest games first.
func (s *RedisService) GetGameHistory(ctx context.Context, account string, limit int64) ([]*models.GameResult, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = DefaultHistoryLen
	}

	ids, err := s.client.ZRevRange(ctx, accountKey(account), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get game ids: %w", err)
	}
	if len(ids) == 0 {
		return []*models.GameResult{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyGame, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	games := make([]*models.GameResult, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		var game models.GameResult
		if err := json.Unmarshal([]byte(data), &game); err != nil {
			continue
		}
		games = append(games, &game)
	}

	return games, nil
}

func (s *RedisService) DeleteGame(ctx context.Context, game *models.GameResult) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(KeyGame, game.ID))
	pipe.ZRem(ctx, accountKey(game.Account), game.ID)
	_, err := pipe.Exec(ctx)
	return err
}

// CheckRateLimit counts action for subject in a fixed window.
func (s *RedisService) CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, subject, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, subject, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, subject, action)).Err()
}
