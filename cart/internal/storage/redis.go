package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
)

// RedisStore namespaces every key by session so one redis can hold many carts. Changes are
// announced on <namespace>:changes.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

func NewRedisStore(client *redis.Client, session string) *RedisStore {
	return &RedisStore{client: client, namespace: "storefront:cart:" + session}
}

func (s *RedisStore) key(key string) string {
	return s.namespace + ":" + key
}

func (s *RedisStore) channel() string {
	return s.namespace + ":changes"
}

func (s *RedisStore) Get(c context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(c, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed getting key=%s with error=%w", key, err)
	}
	return value, true, nil
}

func (s *RedisStore) Set(c context.Context, key string, value string) error {
	if err := s.client.Set(c, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed setting key=%s with error=%w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(c context.Context, key string) error {
	if err := s.client.Del(c, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed deleting key=%s with error=%w", key, err)
	}
	return nil
}

func (s *RedisStore) Publish(c context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed marshaling event with error=%w", err)
	}
	if err = s.client.Publish(c, s.channel(), payload).Err(); err != nil {
		return fmt.Errorf("failed publishing event with error=%w", err)
	}
	return nil
}

func (s *RedisStore) Subscribe(c context.Context) (<-chan Event, func(), error) {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "RedisStore Subscribe").
		Str(constants.KEY_CHANNEL, s.channel()).
		Logger()

	pubsub := s.client.Subscribe(c, s.channel())
	if _, err := pubsub.Receive(c); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed subscribing to channel=%s with error=%w", s.channel(), err)
	}

	events := make(chan Event, subscriberBuffer)
	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = pubsub.Close() })
	}

	go func() {
		defer close(events)
		defer cancel()
		messages := pubsub.Channel()
		for {
			select {
			case <-c.Done():
				return
			case message, ok := <-messages:
				if !ok {
					return
				}
				event := Event{}
				if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
					logger.Error().Err(err).Msg("failed decoding change event")
					continue
				}
				select {
				case events <- event:
				default:
				}
			}
		}
	}()

	return events, cancel, nil
}
