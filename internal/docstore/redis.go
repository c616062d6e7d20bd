package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each collection in a hash keyed by record id, with a
// companion sorted set scoring records by creation time so List can return
// newest first without decoding every document.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(redisURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisBackend{client: client}, nil
}

// NewRedisBackendWithClient wraps an existing client. Used by tests.
func NewRedisBackendWithClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) hashKey(collection string) string {
	return "doc:" + collection
}

func (b *RedisBackend) createdKey(collection string) string {
	return "doc:" + collection + ":created"
}

func (b *RedisBackend) Insert(ctx context.Context, collection string, data map[string]any) (Doc, error) {
	now := time.Now().UTC()
	doc := Doc{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Data:      normalizeMap(data),
	}
	raw, err := json.Marshal(merged(doc))
	if err != nil {
		return Doc{}, fmt.Errorf("encode document: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, b.hashKey(collection), doc.ID, raw)
	pipe.ZAdd(ctx, b.createdKey(collection), redis.Z{Score: float64(now.UnixNano()), Member: doc.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return Doc{}, fmt.Errorf("insert %s: %w", collection, err)
	}
	return doc, nil
}

func (b *RedisBackend) Get(ctx context.Context, collection, id string) (Doc, bool, error) {
	raw, err := b.client.HGet(ctx, b.hashKey(collection), id).Result()
	if err == redis.Nil {
		return Doc{}, false, nil
	}
	if err != nil {
		return Doc{}, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	doc, err := decodeRaw(raw)
	if err != nil {
		return Doc{}, false, err
	}
	return doc, true, nil
}

func (b *RedisBackend) List(ctx context.Context, collection string) ([]Doc, error) {
	ids, err := b.client.ZRevRange(ctx, b.createdKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return []Doc{}, nil
	}

	values, err := b.client.HMGet(ctx, b.hashKey(collection), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	docs := make([]Doc, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		doc, err := decodeRaw(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (b *RedisBackend) Patch(ctx context.Context, collection, id string, fields map[string]any) (Doc, error) {
	raw, err := b.client.HGet(ctx, b.hashKey(collection), id).Result()
	if err == redis.Nil {
		return Doc{}, ErrNotFound
	}
	if err != nil {
		return Doc{}, fmt.Errorf("patch %s/%s: %w", collection, id, err)
	}

	var item map[string]any
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return Doc{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	for k, v := range normalizeMap(fields) {
		if k == keyID || k == keyCreatedAt || k == keyUpdatedAt {
			continue
		}
		item[k] = v
	}
	item[keyUpdatedAt] = time.Now().UTC().Format(time.RFC3339Nano)

	updated, err := json.Marshal(item)
	if err != nil {
		return Doc{}, fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if err := b.client.HSet(ctx, b.hashKey(collection), id, updated).Err(); err != nil {
		return Doc{}, fmt.Errorf("patch %s/%s: %w", collection, id, err)
	}
	return split(item), nil
}

func (b *RedisBackend) Delete(ctx context.Context, collection, id string) error {
	pipe := b.client.TxPipeline()
	pipe.HDel(ctx, b.hashKey(collection), id)
	pipe.ZRem(ctx, b.createdKey(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (b *RedisBackend) Query(ctx context.Context, collection string, conds []Condition) ([]Doc, error) {
	// Redis has no server-side field filtering; evaluate with the same
	// operator table the local path uses.
	docs, err := b.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]Doc, 0, len(docs))
	for _, doc := range docs {
		if matchesAll(merged(doc), conds) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func decodeRaw(raw string) (Doc, error) {
	var item map[string]any
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return Doc{}, fmt.Errorf("decode document: %w", err)
	}
	return split(item), nil
}
