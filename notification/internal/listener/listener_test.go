package listener

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/Alturino/storefront/order/pkg/event"
)

func TestHandle(t *testing.T) {
	tests := []struct {
		name             string
		events           []event.OrderAccepted
		expectedReceived uint64
		expectedDegraded uint64
		expectedLevel    string
		expectedText     []string
	}{
		{
			name:             "given saved order should log info",
			events:           []event.OrderAccepted{{Persisted: true, ItemCount: 2}},
			expectedReceived: 1,
			expectedLevel:    `"level":"info"`,
		},
		{
			name:             "given unsaved order should log warn",
			events:           []event.OrderAccepted{{Persisted: true}, {Persisted: false, ItemCount: 1, RequestID: "req-42"}},
			expectedReceived: 2,
			expectedDegraded: 1,
			expectedLevel:    `"level":"warn"`,
			expectedText: []string{
				`"requestId":"req-42"`,
				"customer details were not stored",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := zerolog.New(&buf).WithContext(context.Background())
			l := NewOrderListener()

			for _, e := range tt.events {
				e.At = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
				l.Handle(c, e)
			}

			assert.Equal(t, tt.expectedReceived, l.Received())
			assert.Equal(t, tt.expectedDegraded, l.Degraded())
			assert.Contains(t, buf.String(), tt.expectedLevel)
			for _, text := range tt.expectedText {
				assert.Contains(t, buf.String(), text)
			}
			assert.NotContains(t, buf.String(), "follow up with the customer")
		})
	}
}
