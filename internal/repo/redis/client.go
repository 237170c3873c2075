package redis

import (
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NewClient does not dial. go-redis connects lazily and redials after an
// outage, so callers ping separately when they want a boot-time check.
func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
}
