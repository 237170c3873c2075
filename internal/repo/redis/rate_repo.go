package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// slidingWindowScript keeps one sorted-set member per admitted request,
// scored by its arrival time in milliseconds. A denied request is not added.
var slidingWindowScript = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local capacity = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[5])
local count = redis.call('ZCARD', key)
if count >= capacity then
	local retry = window
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if oldest[2] then
		retry = tonumber(oldest[2]) + window - now
	end
	if retry < 1 then
		retry = 1
	end
	return {0, count, retry}
end

redis.call('ZADD', key, ARGV[1], ARGV[4])
redis.call('PEXPIRE', key, ARGV[2])
return {1, count + 1, 0}
`)

type RateRepo struct {
	client *goredis.Client
}

func NewRateRepo(client *goredis.Client) *RateRepo {
	return &RateRepo{client: client}
}

// WindowResult is the outcome of one sliding window admission check.
type WindowResult struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// AdmitSlidingWindow atomically evicts entries older than window, and admits
// member when fewer than capacity entries remain.
func (r *RateRepo) AdmitSlidingWindow(
	ctx context.Context,
	key, member string,
	now time.Time,
	window time.Duration,
	capacity int,
) (WindowResult, error) {
	if r.client == nil {
		return WindowResult{}, fmt.Errorf("redis client is nil")
	}
	if key == "" || member == "" || window <= 0 || capacity <= 0 {
		return WindowResult{}, fmt.Errorf("invalid rate window payload")
	}

	nowMS := now.UnixMilli()
	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		windowMS = 1
	}

	res, err := slidingWindowScript.Run(ctx, r.client, []string{key},
		strconv.FormatInt(nowMS, 10),
		strconv.FormatInt(windowMS, 10),
		strconv.Itoa(capacity),
		member,
		strconv.FormatInt(nowMS-windowMS, 10),
	).Int64Slice()
	if err != nil {
		return WindowResult{}, fmt.Errorf("run sliding window script: %w", err)
	}
	if len(res) != 3 {
		return WindowResult{}, fmt.Errorf("unexpected sliding window reply length %d", len(res))
	}

	return WindowResult{
		Allowed:    res[0] == 1,
		Count:      res[1],
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
