package liveevents

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// broadcastTimeout bounds a single cross-replica publish.
const broadcastTimeout = 2 * time.Second

// Bridge replicates order events across instances through a redis channel so
// SSE clients connected to any replica see updates. Best-effort only: redis
// failures are logged and swallowed, never surfaced to ingestion.
type Bridge struct {
	rdb        *redis.Client
	hub        *Hub
	log        *zap.Logger
	channel    string
	instanceID string

	cancel context.CancelFunc
	done   chan struct{}
}

type bridgeMessage struct {
	Instance string     `json:"instance"`
	Event    OrderEvent `json:"event"`
}

func NewBridge(addr, channel string, hub *Hub, log *zap.Logger) *Bridge {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	if strings.TrimSpace(channel) == "" {
		channel = "orderhook.orders"
	}
	return &Bridge{
		rdb:        redis.NewClient(&redis.Options{Addr: addr}),
		hub:        hub,
		log:        log.Named("liveevents.bridge"),
		channel:    channel,
		instanceID: uuid.NewString(),
		done:       make(chan struct{}),
	}
}

// Broadcast publishes the event for other replicas to pick up. The publish
// runs off the caller's goroutine with its own deadline so a slow or
// unreachable redis never delays a webhook response.
func (b *Bridge) Broadcast(event OrderEvent) {
	if b == nil {
		return
	}
	payload, err := json.Marshal(bridgeMessage{Instance: b.instanceID, Event: event})
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
		defer cancel()
		if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
			b.log.Warn("broadcast failed", zap.Error(err))
		}
	}()
}

// Start subscribes to the channel and re-injects remote events into the
// local hub. Events tagged with this instance id are skipped to avoid echo.
func (b *Bridge) Start() {
	if b == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	sub := b.rdb.Subscribe(ctx, b.channel)
	go func() {
		defer close(b.done)
		for msg := range sub.Channel() {
			var decoded bridgeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &decoded); err != nil {
				b.log.Warn("bad bridge message", zap.Error(err))
				continue
			}
			if decoded.Instance == b.instanceID {
				continue
			}
			b.hub.Publish(decoded.Event)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()
}

func (b *Bridge) Stop() {
	if b == nil {
		return
	}
	if b.cancel == nil {
		_ = b.rdb.Close()
		return
	}
	b.cancel()
	<-b.done
	_ = b.rdb.Close()
}
