package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kapu/kfp-startpage/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RefreshMessage is published whenever a replica runs a refresh.
type RefreshMessage struct {
	Origin      string    `json:"origin"`
	RequestedAt time.Time `json:"requested_at"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Channel  string
}

// RefreshBroadcaster fans a refresh out to every replica over Redis pub/sub.
type RefreshBroadcaster struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

func NewRefreshBroadcaster(cfg RedisConfig, logger *zap.Logger) (*RefreshBroadcaster, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewBroadcastError("failed to connect to Redis", "ping", cfg.Channel, err)
	}

	b := &RefreshBroadcaster{
		client:  client,
		channel: cfg.Channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}

	logger.Info("Redis connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
		zap.String("channel", cfg.Channel),
		zap.String("origin", b.origin),
	)
	return b, nil
}

func (b *RefreshBroadcaster) Origin() string {
	return b.origin
}

// PublishRefresh tells the other replicas to run a refresh.
func (b *RefreshBroadcaster) PublishRefresh(ctx context.Context) error {
	payload, err := json.Marshal(RefreshMessage{Origin: b.origin, RequestedAt: time.Now().UTC()})
	if err != nil {
		return errors.NewBroadcastError("marshal failed", "publish", b.channel, err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Error("Refresh publish failed", zap.String("channel", b.channel), zap.Error(err))
		return errors.NewBroadcastError("publish failed", "publish", b.channel, err)
	}
	return nil
}

// Listen calls onRefresh for every refresh published by another replica until
// ctx is done.
func (b *RefreshBroadcaster) Listen(ctx context.Context, onRefresh func(ctx context.Context)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return errors.NewBroadcastError("subscribe failed", "subscribe", b.channel, err)
	}
	b.logger.Info("Listening for refresh broadcasts", zap.String("channel", b.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if b.shouldHandle(msg.Payload) {
				onRefresh(ctx)
			}
		}
	}
}

// shouldHandle reports whether payload is a refresh from another replica.
func (b *RefreshBroadcaster) shouldHandle(payload string) bool {
	var msg RefreshMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		b.logger.Warn("Ignoring malformed refresh message", zap.Error(err))
		return false
	}
	if msg.Origin == b.origin {
		return false
	}
	b.logger.Debug("Refresh requested by replica",
		zap.String("origin", msg.Origin),
		zap.Time("requested_at", msg.RequestedAt),
	)
	return true
}

func (b *RefreshBroadcaster) Close() error {
	if err := b.client.Close(); err != nil {
		b.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	b.logger.Info("Redis disconnected")
	return nil
}
