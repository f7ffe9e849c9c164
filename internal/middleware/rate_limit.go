package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"beverageHub/pkg/logger"
	jsonres "beverageHub/pkg/response"

	"github.com/labstack/echo/v4"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, int64, time.Duration, error)
	Capacity() int
}

// RateLimit applies a token bucket per user (or client IP) and route. A nil
// limiter disables limiting; limiter failures let the request through.
func RateLimit(limiter Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil {
			return next
		}

		return func(c echo.Context) error {
			allowed, remaining, retryAfter, err := limiter.Allow(c.Request().Context(), rateKey(c))
			if err != nil {
				logger.Warn("Rate limiter unavailable", "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Capacity()))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, jsonres.Error(
					"TOO_MANY_REQUESTS", "Too many payment requests, please wait before retrying", map[string]int{"retry_after": secs},
				))
			}

			return next(c)
		}
	}
}

func rateKey(c echo.Context) string {
	route := c.Request().Method + " " + c.Path()
	if userID, ok := c.Get("user_id").(uint); ok {
		return fmt.Sprintf("user:%d:%s", userID, route)
	}

	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip + ":" + route
}
