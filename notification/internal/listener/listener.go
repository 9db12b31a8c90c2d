package listener

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/order/pkg/event"
)

type OrderListener struct {
	received atomic.Uint64
	degraded atomic.Uint64
}

func NewOrderListener() *OrderListener {
	return &OrderListener{}
}

// Handle logs an accepted order. Orders that were acknowledged without being stored are logged
// at warn level.
func (l *OrderListener) Handle(c context.Context, accepted event.OrderAccepted) {
	received := l.received.Add(1)

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "OrderListener Handle").
		Object(constants.KEY_ORDER_EVENT, accepted).
		Logger()

	// Customer details are not stored anywhere for an unsaved order. The request id is the only
	// handle that matches the order intake request log.
	if !accepted.Persisted {
		logger.Warn().
			Str(constants.KEY_REQUEST_ID, accepted.RequestID).
			Uint64("unsavedOrders", l.degraded.Add(1)).
			Msg("order acknowledged but not saved, customer details were not stored")
		return
	}
	logger.Info().Uint64("receivedOrders", received).Msg("order saved")
}

func (l *OrderListener) Received() uint64 {
	return l.received.Load()
}

func (l *OrderListener) Degraded() uint64 {
	return l.degraded.Load()
}
