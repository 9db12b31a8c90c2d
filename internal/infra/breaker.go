package infra

import (
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/metrics"
)

// NewBreaker trips once at least MinRequests calls were made inside Interval and the failure
// ratio reached FailureRatio. isSuccessful decides which errors count against the breaker.
func NewBreaker(
	name string,
	cfg config.Breaker,
	logger zerolog.Logger,
	isSuccessful func(err error) bool,
) *gobreaker.CircuitBreaker {
	logger = logger.With().
		Str(constants.KEY_TAG, "infra NewBreaker").
		Str("circuit", name).
		Logger()

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests || counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(BreakerStateValue(to))
			logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
		IsSuccessful: isSuccessful,
	})
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return cb
}

// BreakerStateValue maps closed, open and half-open to 0, 1 and 2.
func BreakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
