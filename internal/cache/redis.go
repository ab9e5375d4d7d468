// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list holding queue-event records for offline
// analytics (play counts, vote histograms).
var DefaultQueueName = "tribal_events"

// QueueEventRecord is one room event as journaled: a vote, an added song, or
// a playback transition.
type QueueEventRecord struct {
	PlaylistHash string                 `json:"playlist_hash"`
	ConnID       uuid.UUID              `json:"conn_id"`
	EventType    string                 `json:"event_type"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	Timestamp    int64                  `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishQueueEvent serializes the record to JSON and pushes it onto the
// journal list. Best effort; callers treat failure as log-only.
func PublishQueueEvent(ctx context.Context, record QueueEventRecord) error {
	if Rdb == nil {
		return nil
	}
	if record.Timestamp == 0 {
		record.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal QueueEventRecord: %w", err)
	}

	queueName := getEnv("EVENT_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
