package infra

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/metrics"
)

type Pinger interface {
	Ping(c context.Context) error
}

// Readiness caches the result of the last ping so request paths never block on the store.
type Readiness struct {
	pinger Pinger
	driver string
	ready  atomic.Bool
}

func NewReadiness(pinger Pinger, driver string) *Readiness {
	return &Readiness{pinger: pinger, driver: driver}
}

func (r *Readiness) Ready() bool {
	return r.ready.Load()
}

func (r *Readiness) Set(ready bool) {
	r.ready.Store(ready)
	value := 0.0
	if ready {
		value = 1
	}
	metrics.PersistenceReady.WithLabelValues(r.driver).Set(value)
}

// Check pings once with a bounded timeout and stores the outcome.
func (r *Readiness) Check(c context.Context, timeout time.Duration) bool {
	c, cancel := context.WithTimeout(c, timeout)
	defer cancel()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "infra Readiness Check").
		Str(constants.KEY_DB_DRIVER, r.driver).
		Logger()

	err := r.pinger.Ping(c)
	ready := err == nil
	if ready != r.Ready() {
		if ready {
			logger.Info().Msg("persistence layer connected")
		} else {
			logger.Warn().Err(err).Msg("persistence layer disconnected")
		}
	}
	r.Set(ready)
	return ready
}

// Watch re-checks on every interval tick until c is done.
func (r *Readiness) Watch(c context.Context, interval time.Duration) {
	r.Check(c, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Done():
			return
		case <-ticker.C:
			r.Check(c, interval)
		}
	}
}
