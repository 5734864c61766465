package rest

import (
	"github.com/redis/go-redis/v9"
	"github.com/xompass/vsaas-joins/helpers"
	"github.com/xompass/vsaas-joins/http_errors"
)

// rateLimitDB keeps the counters away from application data.
const rateLimitDB = 1

func newRedisClient(logger *helpers.Logger) *redis.Client {
	host, ok := lookupEnv("REDIS_HOST")
	if !ok {
		logger.Warnf("REDIS_HOST environment variable not set, using default 'localhost'")
		host = "localhost"
	}

	port, ok := lookupEnv("REDIS_PORT")
	if !ok {
		logger.Warnf("REDIS_PORT environment variable not set, using default '6379'")
		port = "6379"
	}

	return redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: helpers.GetEnv("REDIS_PASSWORD", ""),
		DB:       rateLimitDB,
	})
}

func lookupEnv(key string) (string, bool) {
	value := helpers.GetEnv(key, "")
	return value, value != ""
}

// checkRateLimit counts the request in a fixed window keyed by endpoint and
// client address, unless the endpoint supplies its own key.
func checkRateLimit(e *EndpointContext) error {
	if e.Endpoint.RateLimiter == nil {
		return nil
	}

	redisClient := e.App.redisClient
	if redisClient == nil {
		e.App.Warnf("Endpoint %s has a rate limit but the rate limiter is disabled", e.Endpoint.Name)
		return nil
	}

	rateLimit := e.Endpoint.RateLimiter(e)

	key := e.Endpoint.Name + "_" + e.IpAddress
	if rateLimit.Key != "" {
		key = rateLimit.Key
	}

	ctx := e.Context()
	pipe := redisClient.TxPipeline()
	incrCmd := pipe.Incr(ctx, key)
	expireCmd := pipe.ExpireNX(ctx, key, rateLimit.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	count, err := incrCmd.Result()
	if err != nil {
		return err
	}

	if _, err := expireCmd.Result(); err != nil {
		return err
	}

	if count > int64(rateLimit.Max) {
		e.App.Warnf("Rate limit exceeded for %s: %d requests", key, count)
		return http_errors.TooManyRequestsErrorWithCode(ErrorCodeRateLimited, "Too many requests")
	}

	return nil
}
