package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Room channel formats. The socket tier subscribes to these and relays
// messages to connected clients; delivery is fire-and-forget.
const (
	ChannelUser   = "room:user:%d"
	ChannelOutlet = "room:outlet:%d"

	// Dedup marker for event processing: dedup:{scope}:{id}
	keyDedup = "dedup:%s:%s"
)

// TTLDedup bounds how long processed event ids are remembered.
var TTLDedup = 48 * time.Hour

// Broadcaster pushes display-only updates to per-user and per-outlet rooms.
type Broadcaster interface {
	PublishToUser(ctx context.Context, userID int64, event string, payload any)
	PublishToOutlet(ctx context.Context, outletID int64, event string, payload any)
}

// Deduper remembers processed event ids so at-least-once consumers can apply
// each event exactly once.
type Deduper interface {
	// MarkOnce returns true the first time it sees id within scope.
	MarkOnce(ctx context.Context, scope, id string) (bool, error)
}

// Client implements Broadcaster and Deduper on top of redis.
type Client struct {
	rdb *redis.Client
}

func New(addr string) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

// Ping verifies the connection at startup.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

type message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

func (c *Client) publish(ctx context.Context, channel, event string, payload any) {
	body, err := json.Marshal(message{Event: event, Payload: payload})
	if err != nil {
		return
	}
	// No delivery confirmation: these updates are display-only.
	_ = c.rdb.Publish(ctx, channel, body).Err()
}

func (c *Client) PublishToUser(ctx context.Context, userID int64, event string, payload any) {
	c.publish(ctx, fmt.Sprintf(ChannelUser, userID), event, payload)
}

func (c *Client) PublishToOutlet(ctx context.Context, outletID int64, event string, payload any) {
	c.publish(ctx, fmt.Sprintf(ChannelOutlet, outletID), event, payload)
}

func (c *Client) MarkOnce(ctx context.Context, scope, id string) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf(keyDedup, scope, id), "1", TTLDedup).Result()
}
