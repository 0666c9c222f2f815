package api

import (
	"context" // Context for Redis operations
	"strconv" // String conversion

	"github.com/sirupsen/logrus" // Logging

	"aigc_platform/internal/utils" // Cache helper
)

const (
	adminUsersPrefix = "admin:users:" // Cached admin user listings
	recordsPrefix    = "records:"     // Cached per-user point history pages
)

// recordsKeyPrefix is the cache prefix for every history page of one user
func recordsKeyPrefix(userID uint) string {
	return recordsPrefix + strconv.FormatUint(uint64(userID), 10) + ":"
}

// invalidateBalances drops cached views that embed the points of userIDs
func invalidateBalances(ctx context.Context, cache *utils.Cache, userIDs ...uint) {
	for _, id := range userIDs {
		if err := cache.DeletePrefix(ctx, recordsKeyPrefix(id)); err != nil {
			logrus.WithError(err).WithField("user_id", id).Warn("Failed to invalidate history cache")
		}
	}
	if err := cache.DeletePrefix(ctx, adminUsersPrefix); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate admin user cache")
	}
}
