package redis

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var NilError = goredis.Nil

type Options = goredis.UniversalOptions

type RedisAdapter interface {
	Set(key string, value []byte, ttl time.Duration) error
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)
	Get(key string) ([]byte, error)
	Del(key string) error
	// DelIfEquals deletes key only while it still holds value.
	DelIfEquals(key string, value []byte) (bool, error)
	Exist(key string) (int64, error)
	Ping(ctx context.Context) error
	Client() goredis.UniversalClient
}

type redisAdapter struct {
	prefix   string
	Conn     goredis.UniversalClient
	ConnName string
}

var redisLock = &sync.RWMutex{}
var redisInstance map[string]RedisAdapter

var delIfEquals = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisAdapter(connName string, keysPrefix string, opts *goredis.UniversalOptions) (RedisAdapter, error) {
	// First check if adapter already exists (with read lock)
	redisLock.RLock()
	if redisInstance != nil {
		if adapter, ok := redisInstance[connName]; ok {
			redisLock.RUnlock()
			return adapter, nil
		}
	}
	redisLock.RUnlock()

	redisLock.Lock()
	if redisInstance == nil {
		redisInstance = make(map[string]RedisAdapter)
	}
	if adapter, ok := redisInstance[connName]; ok {
		redisLock.Unlock()
		return adapter, nil
	}
	redisLock.Unlock()

	c := goredis.NewUniversalClient(opts)
	if cmd := c.Ping(context.Background()); cmd.Err() != nil {
		_ = c.Close()
		return nil, cmd.Err()
	}

	adapter := &redisAdapter{
		Conn:     c,
		prefix:   keysPrefix,
		ConnName: connName,
	}

	redisLock.Lock()
	redisInstance[connName] = adapter
	redisLock.Unlock()

	return adapter, nil
}

func GetRedis(connName ...string) RedisAdapter {
	redisLock.RLock()
	defer redisLock.RUnlock()

	name := "default"
	if len(connName) > 0 && connName[0] != "" {
		name = connName[0]
	}

	if adapter, ok := redisInstance[name]; ok {
		return adapter
	}

	// Fallback to default
	return redisInstance["default"]
}

func (r *redisAdapter) Set(key string, value []byte, ttl time.Duration) error {
	st := r.Conn.Set(context.Background(), r.prefix+key, value, ttl)
	return st.Err()
}

func (r *redisAdapter) SetNX(key string, value []byte, ttl time.Duration) (bool, error) {
	cmd := r.Conn.SetNX(context.Background(), r.prefix+key, value, ttl)
	if err := cmd.Err(); err != nil {
		return false, err
	}
	return cmd.Val(), nil
}

func (r *redisAdapter) Get(key string) ([]byte, error) {
	st := r.Conn.Get(context.Background(), r.prefix+key)
	if err := st.Err(); err != nil {
		return nil, err
	}
	return st.Bytes()
}

func (r *redisAdapter) Del(key string) error {
	cmd := r.Conn.Del(context.Background(), r.prefix+key)
	return cmd.Err()
}

func (r *redisAdapter) DelIfEquals(key string, value []byte) (bool, error) {
	n, err := delIfEquals.Run(context.Background(), r.Conn, []string{r.prefix + key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *redisAdapter) Exist(key string) (int64, error) {
	res, err := r.Conn.Exists(context.Background(), r.prefix+key).Result()
	return res, err
}

func (r *redisAdapter) Ping(ctx context.Context) error {
	return r.Conn.Ping(ctx).Err()
}

func (r *redisAdapter) Client() goredis.UniversalClient {
	return r.Conn
}
