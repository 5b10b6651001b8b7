package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fido2_rp_ms/apperrors"
	"fido2_rp_ms/domain"
	"fido2_rp_ms/util"

	"github.com/redis/go-redis/v9"
)

var ctx = context.Background()

type IChallengeService interface {
	Issue(userID, path, userVerification string) (string, error)
	Consume(value, path string) (*domain.Challenge, error)
}

type ChallengeService struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewChallengeService(rdb *redis.Client, ttl time.Duration) IChallengeService {
	return &ChallengeService{rdb: rdb, ttl: ttl}
}

func challengeKey(path, value string) string {
	return fmt.Sprintf("challenge:%s:%s", path, value)
}

// Issue stores a fresh single-use challenge scoped to its ceremony path.
// The TTL bounds how long an unanswered options call stays pending.
func (s *ChallengeService) Issue(userID, path, userVerification string) (string, error) {
	value, err := util.GenerateChallenge()
	if err != nil {
		return "", apperrors.Wrap("generate challenge", err)
	}

	record := domain.Challenge{
		Value:            value,
		Path:             path,
		UserID:           userID,
		UserVerification: userVerification,
		IssuedAt:         time.Now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", apperrors.Wrap("marshal challenge", err)
	}

	if err := s.rdb.Set(ctx, challengeKey(path, value), data, s.ttl).Err(); err != nil {
		return "", apperrors.Wrap("store challenge", err)
	}
	return value, nil
}

// Consume removes and returns the challenge in one round trip. GETDEL keeps
// consumption at-most-once when two result calls race on the same value;
// a path mismatch resolves to a different key and reads as absent.
func (s *ChallengeService) Consume(value, path string) (*domain.Challenge, error) {
	data, err := s.rdb.GetDel(ctx, challengeKey(path, value)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.Wrap("challenge", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Wrap("consume challenge", err)
	}

	var record domain.Challenge
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, apperrors.Wrap("unmarshal challenge", err)
	}
	return &record, nil
}
