package helpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dakar-humidity/alert-gateway/internal/model"
	"github.com/dakar-humidity/alert-gateway/internal/repository"
	"github.com/dakar-humidity/alert-gateway/pkg/pg"
	"github.com/dakar-humidity/alert-gateway/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory sqlite database with the notifications
// schema. A single connection keeps every query on the same memory database.
func SetupTestDB(t *testing.T) *pg.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&repository.NotificationEntity{}))

	return pg.New(db, db)
}

// SetupBrokenDB returns a database handle whose connection is already closed,
// so every query fails.
func SetupBrokenDB(t *testing.T) *pg.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	return pg.New(db, db)
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	// adapters are cached by name, so every test gets its own
	connName := fmt.Sprintf("%s-%s", t.Name(), mr.Addr())
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestNotification(t *testing.T, db *pg.DB, status model.NotificationStatus) *repository.NotificationEntity {
	t.Helper()

	ctx := context.Background()
	n := &repository.NotificationEntity{
		Message:          "test alert",
		Recipient:        "+221770000000",
		NotificationType: string(model.NotificationTypeSMS),
		Status:           string(status),
		CreatedAt:        time.Now(),
	}
	switch status {
	case model.NotificationStatusSent:
		sentAt := n.CreatedAt.Add(time.Millisecond)
		n.ProviderReference = Ptr("SM" + fmt.Sprint(time.Now().UnixNano()))
		n.SentAt = &sentAt
	case model.NotificationStatusFailed:
		n.ErrorDetail = Ptr("delivery failed: test")
	}
	require.NoError(t, db.Write(ctx).Create(n).Error)
	return n
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func Ptr[T any](v T) *T {
	return &v
}
