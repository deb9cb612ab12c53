package middleware

import (
	"context"
	"net/http"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type RateLimiter interface {
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// AIRateLimit caps AI calls per school per hour. A limit of 0 disables it.
type AIRateLimit struct {
	limiter RateLimiter
	limit   int
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func NewAIRateLimit(limiter RateLimiter, perHour int, m *metrics.Metrics, log logrus.FieldLogger) *AIRateLimit {
	return &AIRateLimit{limiter: limiter, limit: perHour, metrics: m, log: log}
}

func (r *AIRateLimit) Middleware(feature string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.limit == 0 {
				return next(c)
			}
			schoolID, ok := common.GetSchoolIDFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, common.ErrUnscoped.Error())
			}

			limited, err := r.limiter.IsRateLimited(c.Request().Context(), "ai:"+schoolID.String(), r.limit, time.Hour)
			if err != nil {
				// Fail open while Redis is unavailable.
				r.log.WithError(err).Warn("AI rate limit check failed")
				return next(c)
			}
			if limited {
				if r.metrics != nil {
					r.metrics.AIRateLimitedTotal.WithLabelValues(feature).Inc()
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, "AI rate limit exceeded, try again later")
			}
			return next(c)
		}
	}
}
