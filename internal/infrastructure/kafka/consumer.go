package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mxkrv/novellib-backend/internal/infrastructure/redis"
	"github.com/segmentio/kafka-go"
)

// Consumer читает события notification_created и ведёт счётчики
// непрочитанных уведомлений в Redis.
type Consumer struct {
	reader      *kafka.Reader
	redisClient redis.RedisClient
}

func NewConsumer(brokers []string, topic, groupID string, redisClient redis.RedisClient) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		redisClient: redisClient,
	}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key))

		var event struct {
			EventType   string `json:"event_type"`
			OwnerUserID int32  `json:"owner_user_id"`
			Type        string `json:"type"`
		}
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal notification event", "error", err)
			continue
		}
		if event.EventType != "notification_created" {
			continue
		}

		unreadKey := fmt.Sprintf("user:%d:notifications:unread", event.OwnerUserID)
		count, err := c.redisClient.Incr(ctx, unreadKey)
		if err != nil {
			slog.Error("failed to increment unread counter", "user_id", event.OwnerUserID, "error", err)
			continue
		}
		slog.Info("unread counter updated", "user_id", event.OwnerUserID, "type", event.Type, "unread", count)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
