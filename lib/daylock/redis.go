package daylock

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/mediocregopher/radix/v3"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "settlement:lock:"

// releaseScript deletes the key only while it still holds our token
var releaseScript = radix.NewEvalScript(1, `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry forward only while the key still holds our token
var extendScript = radix.NewEvalScript(1, `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker shares the day lock between processes with SET NX PX. While a key is held it is
// extended every third of the ttl, so a run longer than the ttl keeps it.
type RedisLocker struct {
	client radix.Client
	ttl    time.Duration
}

// NewRedisLocker opens a connection pool to the given address
func NewRedisLocker(network, address string, poolSize int, ttl time.Duration) (*RedisLocker, error) {
	pool, err := radix.NewPool(network, address, poolSize)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to redis")
	}
	return NewRedisLockerWithClient(pool, ttl), nil
}

// NewRedisLockerWithClient wraps an existing radix client
func NewRedisLockerWithClient(client radix.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) Acquire(_ context.Context, key string) (func(), error) {
	token := xid.New().String()
	redisKey := keyPrefix + key

	var reply string
	mn := radix.MaybeNil{Rcv: &reply}
	ttl := strconv.FormatInt(l.ttl.Milliseconds(), 10)
	if err := l.client.Do(radix.Cmd(&mn, "SET", redisKey, token, "NX", "PX", ttl)); err != nil {
		return nil, errors.Wrap(err, "unable to acquire day lock")
	}
	if mn.Nil {
		return nil, ErrRunInProgress
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, redisKey, token, ttl, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			if err := l.client.Do(releaseScript.Cmd(nil, redisKey, token)); err != nil {
				log.Error().Err(err).Str("section", "daylock").Str("key", key).Msg("Unable to release day lock")
			}
		})
	}, nil
}

func (l *RedisLocker) keepAlive(key, redisKey, token, ttl string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := l.ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			var extended int
			if err := l.client.Do(extendScript.Cmd(&extended, redisKey, token, ttl)); err != nil {
				log.Error().Err(err).Str("section", "daylock").Str("key", key).Msg("Unable to extend day lock")
				continue
			}
			if extended == 0 {
				log.Error().Str("section", "daylock").Str("key", key).Msg("Day lock expired while held")
				return
			}
		}
	}
}

// Close the underlying client
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
