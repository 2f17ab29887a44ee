package pg

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type txContextKey string

const txKey txContextKey = "trx"

// DB routes reads and writes to separate pools. A transaction opened with
// WithinTransaction travels in the context and takes over both sides.
type DB struct {
	read  *gorm.DB
	write *gorm.DB
}

func Create(config Config, withDebug bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.DSN()),
		&gorm.Config{
			NamingStrategy: schema.NamingStrategy{
				SingularTable: true,
			},
		})
	if err != nil {
		return nil, err
	}

	if withDebug {
		db = db.Debug()
	}
	return db, nil
}

func CreateReadWrite(readConfig Config, writeConfig Config, withDebug bool) (*DB, error) {
	read, err := Create(readConfig, withDebug)
	if err != nil {
		return nil, fmt.Errorf("open read pool: %w", err)
	}
	write, err := Create(writeConfig, withDebug)
	if err != nil {
		return nil, fmt.Errorf("open write pool: %w", err)
	}
	return &DB{read, write}, nil
}

// New wraps already opened handles. Passing the same handle twice is fine.
func New(read, write *gorm.DB) *DB {
	return &DB{read: read, write: write}
}

func (r *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.write.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}

func (r *DB) Write(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok {
		return tx
	}

	return r.write.WithContext(ctx)
}

func (r *DB) Read(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok {
		return tx
	}

	return r.read.WithContext(ctx)
}

func (r *DB) Ping(ctx context.Context) error {
	sqlDB, err := r.write.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
