package transfer

import (
	"blobcache/internal/core/types"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

const (
	DefaultRateLimit = 1 * humanize.GiByte // 1GiB/s
	DefaultRateBurst = 1 * humanize.MiByte
)

func DefaultRateLimiter() *rate.Limiter {
	return NewRateLimiter(DefaultRateLimit, DefaultRateBurst)
}

// NewRateLimiter builds a limiter for producer throughput. A zero rate
// means unlimited.
func NewRateLimiter(rateLimit, rateBurst types.Bytes) *rate.Limiter {
	if rateLimit == 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	burst := rateBurst.Int()
	// Keep the burst under a tenth of the rate so throttling stays smooth.
	if limit := rateLimit.Int() / 10; burst > limit {
		burst = limit
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rateLimit.Uint64()), burst)
}
