package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"aigc_platform/internal/domain"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestOpenSQLiteMigratesAndTranslatesDuplicates(t *testing.T) {
	conn, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "nested", "app.db")})
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))

	first := domain.User{Username: "alice", Email: "a@example.com", Password: "x", Role: domain.RoleUser, InviteCode: "AAAA1111", IsActive: true}
	require.NoError(t, conn.Create(&first).Error)

	dup := domain.User{Username: "alice", Email: "b@example.com", Password: "x", Role: domain.RoleUser, InviteCode: "BBBB2222", IsActive: true}
	err = conn.Create(&dup).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
