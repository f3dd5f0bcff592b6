package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

func snapshotKey(gameID uint64) string {
	return "game:" + strconv.FormatUint(gameID, 10) + ":snapshot"
}

// SetSnapshot stores the frozen game snapshot JSON. Snapshots are the
// read-only hand-off surface: every successful command overwrites the
// snapshot with the post-command view, and observers read it without
// touching the primary store.
func (c *Client) SetSnapshot(ctx context.Context, gameID uint64, state json.RawMessage) error {
	return c.rdb.Set(ctx, snapshotKey(gameID), []byte(state), 0).Err()
}

// GetSnapshot retrieves the frozen snapshot, or nil when none exists.
func (c *Client) GetSnapshot(ctx context.Context, gameID uint64) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return json.RawMessage(data), nil
}

// DeleteSnapshot removes a game's snapshot.
func (c *Client) DeleteSnapshot(ctx context.Context, gameID uint64) error {
	return c.rdb.Del(ctx, snapshotKey(gameID)).Err()
}
