// Package redis implements store.Store on top of Redis. Documents are hashes
// whose fields hold raw JSON values; lists are Redis lists of JSON entries.
package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	// ExpireDuration is refreshed on every write. Zero keeps keys forever.
	ExpireDuration time.Duration
	// OpTimeout bounds every single store operation.
	OpTimeout time.Duration
}

type repo struct {
	rc                  *redis.Client
	expireDuration      time.Duration
	opTimeout           time.Duration
	hSetIfNotExists     *redis.Script
	hMergeIfNewerScript *redis.Script
}

func NewRepo(rc *redis.Client, cfg *Config) *repo {
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 3 * time.Second
	}

	return &repo{
		rc:             rc,
		expireDuration: cfg.ExpireDuration,
		opTimeout:      opTimeout,
		hSetIfNotExists: redis.NewScript(`
			if redis.call('EXISTS', KEYS[1]) == 1 then
				return 0
			end
			for i = 2, #ARGV, 2 do
				redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
			end
			local ttl = tonumber(ARGV[1])
			if ttl > 0 then
				redis.call('PEXPIRE', KEYS[1], ttl)
			end
			return 1
		`),
		hMergeIfNewerScript: redis.NewScript(`
			local current = redis.call('HGET', KEYS[1], ARGV[1])
			if current and tonumber(current) > tonumber(ARGV[2]) then
				local revision = redis.call('HGET', KEYS[1], 'revision') or '0'
				return {0, tonumber(revision)}
			end
			for i = 4, #ARGV, 2 do
				redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
			end
			local revision = redis.call('HINCRBY', KEYS[1], 'revision', 1)
			local ttl = tonumber(ARGV[3])
			if ttl > 0 then
				redis.call('PEXPIRE', KEYS[1], ttl)
			end
			return {1, revision}
		`),
	}
}
