package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/config"
)

// NewAuthLimiter throttles credential endpoints per client IP. Counters
// live in Redis when rdb is available so every instance shares them, and
// in process memory otherwise.
func NewAuthLimiter(cfg config.AuthLimitConfig, rdb *redis.Client, log *logrus.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return passthrough
	}
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		log.WithError(err).WithField("rate", cfg.Rate).Warn("invalid AUTH_RATE_LIMIT, using 10-M")
		rate, _ = limiter.NewRateFromFormatted("10-M")
	}

	opts := limiter.StoreOptions{Prefix: cfg.Prefix}
	var store limiter.Store
	if rdb != nil {
		store, err = sredis.NewStoreWithOptions(rdb, opts)
		if err != nil {
			log.WithError(err).Warn("auth limiter: redis store unavailable, using memory")
		}
	}
	if store == nil {
		store = memory.NewStoreWithOptions(opts)
	}

	mw := stdlib.NewMiddleware(limiter.New(store, rate),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "too many attempts, try again later",
				"code":  string(apperr.CodeTooManyRequests),
			})
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			log.WithError(err).Warn("auth limiter store error")
			w.WriteHeader(http.StatusServiceUnavailable)
		}),
	)
	return echo.WrapMiddleware(mw.Handler)
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
