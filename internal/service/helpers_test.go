package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.ActionLog{}, &models.MonitoredUser{}))
	return db
}

func insertActions(t *testing.T, db *gorm.DB, userID uint, action models.ActionType, times ...time.Time) {
	t.Helper()
	for i, at := range times {
		entry := models.ActionLog{
			ID:         uuid.NewString(),
			UserID:     userID,
			Action:     action,
			EntityType: "assignment",
			EntityID:   fmt.Sprintf("%d", i+1),
			OccurredAt: at.UTC(),
		}
		require.NoError(t, db.WithContext(context.Background()).Create(&entry).Error)
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func mustPolicy(t *testing.T, windows ...MonitorWindow) *ThresholdPolicy {
	t.Helper()
	policy, err := NewThresholdPolicy(windows)
	require.NoError(t, err)
	return policy
}
