package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
)

// OrderAccepted is published for every acknowledged order. It carries no customer data.
type OrderAccepted struct {
	At          time.Time `json:"at"`
	RequestID   string    `json:"requestId,omitempty"`
	ItemCount   int       `json:"itemCount"`
	TotalKg     float64   `json:"totalKg"`
	TotalAmount float64   `json:"totalAmount"`
	TotalCarats float64   `json:"totalCarats"`
	Persisted   bool      `json:"persisted"`
}

func (e OrderAccepted) MarshalZerologObject(ev *zerolog.Event) {
	ev.Time("at", e.At).
		Str("requestId", e.RequestID).
		Int("itemCount", e.ItemCount).
		Float64("totalKg", e.TotalKg).
		Float64("totalAmount", e.TotalAmount).
		Float64("totalCarats", e.TotalCarats).
		Bool("persisted", e.Persisted)
}

type Publisher interface {
	Publish(c context.Context, event OrderAccepted) error
}

type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(c context.Context, event OrderAccepted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed marshaling order event with error=%w", err)
	}
	if err = p.client.Publish(c, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed publishing order event to channel=%s with error=%w", p.channel, err)
	}
	return nil
}

// Subscribe delivers decoded events to handle until c is done. Undecodable messages are logged
// and skipped.
func Subscribe(
	c context.Context,
	client *redis.Client,
	channel string,
	handle func(context.Context, OrderAccepted),
) error {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "event Subscribe").
		Str(constants.KEY_CHANNEL, channel).
		Logger()

	pubsub := client.Subscribe(c, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(c); err != nil {
		return fmt.Errorf("failed subscribing to channel=%s with error=%w", channel, err)
	}
	logger.Info().Msg("subscribed")

	messages := pubsub.Channel()
	for {
		select {
		case <-c.Done():
			return nil
		case message, ok := <-messages:
			if !ok {
				return nil
			}
			event := OrderAccepted{}
			if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
				err = fmt.Errorf("failed decoding order event with error=%w", err)
				logger.Error().Err(err).Msg(err.Error())
				continue
			}
			handle(c, event)
		}
	}
}
