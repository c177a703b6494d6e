package workers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagecraft-dev/pagecraft/internal/models"
	"github.com/pagecraft-dev/pagecraft/internal/recent"
	"github.com/pagecraft-dev/pagecraft/internal/store/storetest"
	"github.com/pagecraft-dev/pagecraft/internal/tasks"
)

func TestHandlePruneRecent(t *testing.T) {
	db := storetest.NewDB(t)
	ctx := context.Background()

	user := &models.User{Email: "worker@example.com"}
	require.NoError(t, db.Create(user).Error)

	svc := recent.NewService(db, zerolog.Nop(), 10)
	for i := 0; i < 6; i++ {
		_, err := svc.Record(ctx, user.ID, "template", fmt.Sprintf("t-%d", i))
		require.NoError(t, err)
	}

	task, err := tasks.NewPruneRecentTask(user.ID, "template", 2)
	require.NoError(t, err)
	require.NoError(t, HandlePruneRecent(ctx, task, svc, zerolog.Nop()))

	var count int64
	require.NoError(t, db.Model(&models.RecentItem{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestHandlePruneRecent_BadPayloadSkipsRetry(t *testing.T) {
	db := storetest.NewDB(t)
	svc := recent.NewService(db, zerolog.Nop(), 10)

	err := HandlePruneRecent(context.Background(), asynq.NewTask(tasks.TypePruneRecent, []byte(`{}`)), svc, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestPurgeExpiredSessions(t *testing.T) {
	db := storetest.NewDB(t)
	ctx := context.Background()

	user := &models.User{Email: "sessions@example.com"}
	require.NoError(t, db.Create(user).Error)

	now := time.Now().UTC()
	require.NoError(t, db.Create(&models.RefreshToken{ID: "expired", UserID: user.ID, ExpiresAt: now.Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&models.RefreshToken{ID: "live", UserID: user.ID, ExpiresAt: now.Add(time.Hour)}).Error)

	deleted, err := PurgeExpiredSessions(ctx, db, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var ids []string
	require.NoError(t, db.Model(&models.RefreshToken{}).Pluck("id", &ids).Error)
	assert.Equal(t, []string{"live"}, ids)

	require.NoError(t, HandlePurgeSessions(ctx, tasks.NewPurgeSessionsTask(), db, zerolog.Nop()))
}
