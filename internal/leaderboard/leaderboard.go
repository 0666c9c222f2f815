// Package leaderboard is a read-only ranking of active users by points.
package leaderboard

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"aigc_platform/internal/domain"
	"aigc_platform/internal/utils"
)

// DefaultMax caps the number of entries a caller can request.
const DefaultMax = 50

const (
	cachePrefix   = "leaderboard:"
	rankingPrefix = cachePrefix + "top:"
	generationKey = cachePrefix + "gen"
)

// ErrInvalidLimit is returned for a non-positive limit.
var ErrInvalidLimit = errors.New("leaderboard limit must be positive")

// Entry is one ranked public user summary.
type Entry struct {
	Rank     int    `json:"rank"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Points   int64  `json:"points"`
}

// Board reads rankings from the store, optionally through a cache.
type Board struct {
	db    *gorm.DB
	cache *utils.Cache
	max   int
	ttl   time.Duration

	loaded func() // called between the store read and the cache write; tests only
}

// New constructs a Board. A nil cache disables caching; max <= 0 uses DefaultMax.
func New(db *gorm.DB, cache *utils.Cache, max int, ttl time.Duration) *Board {
	if max <= 0 {
		max = DefaultMax
	}
	return &Board{db: db, cache: cache, max: max, ttl: ttl}
}

// Top returns up to n active users ordered by points descending, ties broken
// by ascending id. n above the board maximum is clamped.
func (b *Board) Top(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	if n > b.max {
		n = b.max
	}

	// Rankings are keyed by generation so a read that races an Invalidate
	// writes under a key nobody looks up any more.
	key := rankingPrefix + strconv.FormatInt(b.generation(ctx), 10) + ":" + strconv.Itoa(n)
	var entries []Entry
	if found, err := b.cache.Get(ctx, key, &entries); err == nil && found {
		return entries, nil
	} else if err != nil {
		logrus.WithError(err).Warn("leaderboard cache read failed")
	}

	var users []domain.User
	if err := b.db.WithContext(ctx).
		Select("id", "username", "nickname", "points").
		Where("is_active = ?", true).
		Order("points desc").
		Order("id asc").
		Limit(n).
		Find(&users).Error; err != nil {
		return nil, domain.StoreError("load leaderboard", err)
	}

	if b.loaded != nil {
		b.loaded()
	}

	entries = make([]Entry, len(users))
	for i, u := range users {
		entries[i] = Entry{Rank: i + 1, UserID: u.ID, Username: u.Username, Nickname: u.Nickname, Points: u.Points}
	}
	if b.ttl > 0 {
		if err := b.cache.Set(ctx, key, entries, b.ttl); err != nil {
			logrus.WithError(err).Warn("leaderboard cache write failed")
		}
	}
	return entries, nil
}

// Invalidate drops every cached ranking.
func (b *Board) Invalidate(ctx context.Context) {
	if _, err := b.cache.Incr(ctx, generationKey); err != nil {
		logrus.WithError(err).Warn("leaderboard generation bump failed")
	}
	if err := b.cache.DeletePrefix(ctx, rankingPrefix); err != nil {
		logrus.WithError(err).Warn("leaderboard cache invalidation failed")
	}
}

func (b *Board) generation(ctx context.Context) int64 {
	var gen int64
	if _, err := b.cache.Get(ctx, generationKey, &gen); err != nil {
		logrus.WithError(err).Warn("leaderboard generation read failed")
	}
	return gen
}
