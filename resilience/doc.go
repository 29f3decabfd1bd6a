// Package resilience paces calls made against external services.
//
// RateLimiter is a token bucket shared by every pipeline worker, so the
// configured rate bounds the whole run rather than each worker:
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Name: "s3", Rate: 100})
//	if err := rl.Wait(ctx); err != nil {
//	    return err // ctx cancelled while waiting
//	}
package resilience
