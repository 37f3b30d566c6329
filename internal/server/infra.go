package server

import (
	"context"
	"fmt"
	"time"

	"taskflow/internal/cache"
	"taskflow/internal/config"
	"taskflow/internal/events"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Broker is what the bus publishes to and the stream handlers read from.
type Broker interface {
	events.Transport
	events.Subscriber
}

func OpenDB(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	log.WithFields(logrus.Fields{"host": cfg.DBHost, "db": cfg.DBName}).Info("connected to database")
	return db, nil
}

// OpenRedis returns nil, nil when no address is configured.
func OpenRedis(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisAddr)
	if err != nil {
		opts = &redis.Options{Addr: cfg.RedisAddr}
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB != 0 {
		opts.DB = cfg.RedisDB
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	log.WithField("addr", opts.Addr).Info("connected to redis")
	return rdb, nil
}

func NewCacheStore(cfg *config.Config, rdb *redis.Client, log *logrus.Logger) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendMemory, "":
		log.Info("using in-memory cache")
		return cache.NewMemoryStore(), nil
	case config.CacheBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("cache backend %q needs REDIS_ADDR", cfg.CacheBackend)
		}
		log.Info("using redis cache")
		return cache.NewRedisStore(rdb, cfg.RedisChannelPrefix, log), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// NewBroker uses Redis pub/sub when a client is available so that every
// instance sees every event; otherwise events stay in process.
func NewBroker(rdb *redis.Client, cfg *config.Config, log *logrus.Logger) Broker {
	if rdb == nil {
		log.Warn("REDIS_ADDR not set, events are delivered in process only")
		return events.NewLocalTransport()
	}
	return events.NewRedisTransport(rdb, cfg.RedisChannelPrefix)
}

func NewBus(broker Broker, cfg *config.Config, log *logrus.Logger) *events.Bus {
	return events.NewBus(broker, events.Options{
		Workers:        cfg.EventWorkers,
		Buffer:         cfg.EventBuffer,
		SendTimeout:    cfg.EventSendTimeout,
		HandoffTimeout: 50 * time.Millisecond,
	}, log)
}
