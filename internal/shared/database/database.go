package database

import (
	"context"
	"time"

	"carequeue/internal/shared/config"
	"carequeue/pkg/logger"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds database connections
type DB struct {
	PostgreSQL *gorm.DB
	Redis      *redis.Client
}

type txKey struct{}

// InitDB initializes the database connections
func InitDB(cfg *config.Config) (*DB, error) {
	pg, err := initPostgreSQL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize PostgreSQL")
	}
	if err := Migrate(pg); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}
	if err := MigrateConstraints(pg); err != nil {
		return nil, errors.Wrap(err, "failed to add constraints")
	}
	rdb, err := initRedis(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize Redis")
	}

	return &DB{
		PostgreSQL: pg,
		Redis:      rdb,
	}, nil
}

// NewFromGorm wraps an already opened gorm handle, used by tests and tools.
func NewFromGorm(db *gorm.DB, rdb *redis.Client) *DB {
	return &DB{PostgreSQL: db, Redis: rdb}
}

// initPostgreSQL initializes PostgreSQL connection with GORM
func initPostgreSQL(cfg *config.Config) (*gorm.DB, error) {
	var gl gormlogger.Interface
	if cfg.IsDevelopment() {
		gl = gormlogger.Default.LogMode(gormlogger.Info)
	} else {
		gl = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	gormConfig := &gorm.Config{
		Logger: gl,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt:                              true,
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), gormConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying sql.DB")
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	logger.GetDefault().Info("PostgreSQL connected", "host", cfg.Database.Host, "db", cfg.Database.Name)
	return db, nil
}

// initRedis initializes Redis connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,

		PoolSize:     10,
		MinIdleConns: 5,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	logger.GetDefault().Info("Redis connected", "addr", cfg.Redis.Addr)
	return rdb, nil
}

// WithTx runs fn inside a transaction carried by the returned context.
// A context that already carries a transaction joins it instead of nesting.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return db.PostgreSQL.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn returns the transaction bound to ctx, or the pool when there is none.
func (db *DB) Conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.PostgreSQL.WithContext(ctx)
}

// Close closes all database connections
func (db *DB) Close() error {
	var errs error

	if db.PostgreSQL != nil {
		if sqlDB, err := db.PostgreSQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = errors.CombineErrors(errs, errors.Wrap(err, "failed to close PostgreSQL"))
			}
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrap(err, "failed to close Redis"))
		}
	}

	return errs
}

// HealthCheck performs health checks on all database connections
func (db *DB) HealthCheck(ctx context.Context) error {
	if db.PostgreSQL != nil {
		sqlDB, err := db.PostgreSQL.DB()
		if err != nil {
			return errors.Wrap(err, "PostgreSQL health check failed")
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return errors.Wrap(err, "PostgreSQL ping failed")
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "redis ping failed")
		}
	}

	return nil
}

// GetRedisClient returns the Redis client
func (db *DB) GetRedisClient() *redis.Client {
	return db.Redis
}

// GetPostgreSQL returns the PostgreSQL GORM instance
func (db *DB) GetPostgreSQL() *gorm.DB {
	return db.PostgreSQL
}
