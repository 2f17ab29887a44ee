package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dakar-humidity/alert-gateway/internal/model"
	"github.com/dakar-humidity/alert-gateway/internal/repository"
	"github.com/dakar-humidity/alert-gateway/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentUpdate(ref string) model.TerminalUpdate {
	now := time.Now()
	return model.TerminalUpdate{
		Status:            model.NotificationStatusSent,
		ProviderReference: &ref,
		SentAt:            &now,
	}
}

func failedUpdate(detail string) model.TerminalUpdate {
	return model.TerminalUpdate{
		Status:      model.NotificationStatusFailed,
		ErrorDetail: &detail,
	}
}

func TestNotificationRepository_Create(t *testing.T) {
	db := helpers.SetupTestDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()

	t.Run("create notification as pending", func(t *testing.T) {
		created, err := repo.Create(ctx, "humidity alert", "+221770000001", model.NotificationTypeSMS)
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "humidity alert", created.Message)
		assert.Equal(t, "+221770000001", created.Recipient)
		assert.Equal(t, model.NotificationTypeSMS, created.NotificationType)
		assert.Equal(t, model.NotificationStatusPending, created.Status)
		assert.Nil(t, created.ProviderReference)
		assert.Nil(t, created.ErrorDetail)
		assert.Nil(t, created.SentAt)
		assert.NotZero(t, created.CreatedAt)
	})

	t.Run("ids are unique", func(t *testing.T) {
		first, err := repo.Create(ctx, "a", "+221770000001", model.NotificationTypeSMS)
		require.NoError(t, err)
		second, err := repo.Create(ctx, "b", "+221770000001", model.NotificationTypeSMS)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("created record is visible to get", func(t *testing.T) {
		created, err := repo.Create(ctx, "visible", "+221770000002", model.NotificationTypeSMS)
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.NotificationStatusPending, got.Status)
		assert.Equal(t, "visible", got.Message)
	})
}

func TestNotificationRepository_Create_StorageUnavailable(t *testing.T) {
	repo := repository.NewNotificationRepository(helpers.SetupBrokenDB(t))

	created, err := repo.Create(context.Background(), "x", "+221770000000", model.NotificationTypeSMS)
	assert.ErrorIs(t, err, model.ErrStorage)
	assert.Nil(t, created)
}

func TestNotificationRepository_UpdateTerminal(t *testing.T) {
	db := helpers.SetupTestDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()

	t.Run("pending to sent", func(t *testing.T) {
		created, err := repo.Create(ctx, "msg", "+221770000001", model.NotificationTypeSMS)
		require.NoError(t, err)

		updated, err := repo.UpdateTerminal(ctx, created.ID, sentUpdate("SM123"))
		require.NoError(t, err)
		assert.Equal(t, model.NotificationStatusSent, updated.Status)
		require.NotNil(t, updated.ProviderReference)
		assert.Equal(t, "SM123", *updated.ProviderReference)
		assert.Nil(t, updated.ErrorDetail)
		require.NotNil(t, updated.SentAt)
		assert.False(t, updated.SentAt.Before(updated.CreatedAt))
	})

	t.Run("pending to failed", func(t *testing.T) {
		created, err := repo.Create(ctx, "msg", "+221770000001", model.NotificationTypeSMS)
		require.NoError(t, err)

		updated, err := repo.UpdateTerminal(ctx, created.ID, failedUpdate("invalid number"))
		require.NoError(t, err)
		assert.Equal(t, model.NotificationStatusFailed, updated.Status)
		require.NotNil(t, updated.ErrorDetail)
		assert.Equal(t, "invalid number", *updated.ErrorDetail)
		assert.Nil(t, updated.ProviderReference)
		assert.Nil(t, updated.SentAt)
	})

	t.Run("second finalize is rejected and changes nothing", func(t *testing.T) {
		created, err := repo.Create(ctx, "msg", "+221770000001", model.NotificationTypeSMS)
		require.NoError(t, err)
		_, err = repo.UpdateTerminal(ctx, created.ID, sentUpdate("SM1"))
		require.NoError(t, err)

		_, err = repo.UpdateTerminal(ctx, created.ID, failedUpdate("late failure"))
		assert.ErrorIs(t, err, model.ErrAlreadyFinalized)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.NotificationStatusSent, got.Status)
		assert.Nil(t, got.ErrorDetail)
		require.NotNil(t, got.ProviderReference)
		assert.Equal(t, "SM1", *got.ProviderReference)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.UpdateTerminal(ctx, 999_999, sentUpdate("SM1"))
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("invalid outcome combinations are rejected", func(t *testing.T) {
		created, err := repo.Create(ctx, "msg", "+221770000001", model.NotificationTypeSMS)
		require.NoError(t, err)

		_, err = repo.UpdateTerminal(ctx, created.ID, model.TerminalUpdate{Status: model.NotificationStatusSent})
		assert.ErrorIs(t, err, model.ErrValidation)

		_, err = repo.UpdateTerminal(ctx, created.ID, model.TerminalUpdate{Status: model.NotificationStatusPending})
		assert.ErrorIs(t, err, model.ErrValidation)

		both := failedUpdate("boom")
		both.ProviderReference = helpers.Ptr("SM1")
		_, err = repo.UpdateTerminal(ctx, created.ID, both)
		assert.ErrorIs(t, err, model.ErrValidation)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.NotificationStatusPending, got.Status)
	})

	t.Run("concurrent finalizers produce exactly one winner", func(t *testing.T) {
		created, err := repo.Create(ctx, "msg", "+221770000001", model.NotificationTypeSMS)
		require.NoError(t, err)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			winners  int
			rejected int
		)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.UpdateTerminal(ctx, created.ID, failedUpdate("race"))
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					winners++
				} else if assert.ErrorIs(t, err, model.ErrAlreadyFinalized) {
					rejected++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, winners)
		assert.Equal(t, 4, rejected)
	})
}

func TestNotificationRepository_Get(t *testing.T) {
	db := helpers.SetupTestDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()

	t.Run("repeated reads are identical", func(t *testing.T) {
		seeded := helpers.CreateTestNotification(t, db, model.NotificationStatusSent)

		first, err := repo.Get(ctx, seeded.ID)
		require.NoError(t, err)
		second, err := repo.Get(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("missing id", func(t *testing.T) {
		got, err := repo.Get(ctx, 424242)
		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.Nil(t, got)
	})
}

func TestNotificationRepository_List(t *testing.T) {
	db := helpers.SetupTestDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()

	statuses := []model.NotificationStatus{
		model.NotificationStatusSent,
		model.NotificationStatusFailed,
		model.NotificationStatusSent,
		model.NotificationStatusPending,
		model.NotificationStatusFailed,
	}
	for _, s := range statuses {
		helpers.CreateTestNotification(t, db, s)
		time.Sleep(5 * time.Millisecond)
	}

	t.Run("list all newest first", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.NotificationFilter{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, items, 5)
		for i := 0; i < len(items)-1; i++ {
			assert.False(t, items[i].CreatedAt.Before(items[i+1].CreatedAt))
		}
		assert.Equal(t, model.NotificationStatusFailed, items[0].Status)
	})

	t.Run("status filter is exact", func(t *testing.T) {
		failed := model.NotificationStatusFailed
		items, total, err := repo.List(ctx, model.NotificationFilter{Status: &failed, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 2)
		for _, n := range items {
			assert.Equal(t, model.NotificationStatusFailed, n.Status)
		}
		assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt))
	})

	t.Run("pagination", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.NotificationFilter{Limit: 2, Offset: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, items, 2)
	})

	t.Run("offset past the end", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.NotificationFilter{Limit: 10, Offset: 50})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, items, 0)
	})

	t.Run("default limit", func(t *testing.T) {
		items, _, err := repo.List(ctx, model.NotificationFilter{Limit: 0, Offset: -3})
		require.NoError(t, err)
		assert.Len(t, items, 5)
	})
}

func TestNotificationEntity_OutcomeConstraint(t *testing.T) {
	db := helpers.SetupTestDB(t)
	ctx := context.Background()

	entity := func(status model.NotificationStatus) *repository.NotificationEntity {
		return &repository.NotificationEntity{
			Message:          "test alert",
			Recipient:        "+221770000000",
			NotificationType: string(model.NotificationTypeSMS),
			Status:           string(status),
			CreatedAt:        time.Now(),
		}
	}

	t.Run("sent without reference", func(t *testing.T) {
		assert.Error(t, db.Write(ctx).Create(entity(model.NotificationStatusSent)).Error)
	})

	t.Run("failed without detail", func(t *testing.T) {
		assert.Error(t, db.Write(ctx).Create(entity(model.NotificationStatusFailed)).Error)
	})

	t.Run("pending with reference", func(t *testing.T) {
		e := entity(model.NotificationStatusPending)
		e.ProviderReference = helpers.Ptr("SM1")
		assert.Error(t, db.Write(ctx).Create(e).Error)
	})

	t.Run("consistent rows are accepted", func(t *testing.T) {
		helpers.CreateTestNotification(t, db, model.NotificationStatusPending)
		helpers.CreateTestNotification(t, db, model.NotificationStatusSent)
		helpers.CreateTestNotification(t, db, model.NotificationStatusFailed)
	})
}
