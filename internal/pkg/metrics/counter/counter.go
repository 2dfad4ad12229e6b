// Package counter buffers high-frequency counters in Redis and applies them
// to the database in batches.
package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ConversionHitsKey holds pending conversion cache hits, field = FNSKU.
const ConversionHitsKey = "fnsku:counters:hits"

// Buffer collects per-FNSKU cache hits in a Redis hash and drains them into
// conversion_cache_entries.hit_count.
type Buffer struct {
	rdb *redis.Client
	db  *gorm.DB
	key string
}

func NewBuffer(rdb *redis.Client, db *gorm.DB) *Buffer {
	return &Buffer{rdb: rdb, db: db, key: ConversionHitsKey}
}

// RecordHit increments the pending hit counter for an FNSKU in Redis.
func (b *Buffer) RecordHit(ctx context.Context, fnsku string) error {
	return b.rdb.HIncrBy(ctx, b.key, fnsku, 1).Err()
}

// Pending returns the buffered, not yet flushed count for an FNSKU.
func (b *Buffer) Pending(ctx context.Context, fnsku string) (int64, error) {
	n, err := b.rdb.HGet(ctx, b.key, fnsku).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Flush drains the hash and applies the increments. It returns the number
// of FNSKUs drained.
func (b *Buffer) Flush(ctx context.Context) (int, error) {
	return flushHashToTable(ctx, b.rdb, b.db, b.key, "conversion_cache_entries", "fnsku", "hit_count")
}

// flushHashToTable drains a Redis hash atomically and applies batched increments to table.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func flushHashToTable(ctx context.Context, rdb *redis.Client, db *gorm.DB, redisKey, table, keyColumn, column string) (int, error) {
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Rename(ctx, redisKey, tmpKey).Err(); err != nil {
		// nothing buffered yet
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return 0, nil
		}
		return 0, err
	}
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return 0, err
	}

	type pair struct {
		key string
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{key: k, inc: inc})
	}
	if len(pairs) == 0 {
		return 0, nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	// UPDATE <table> SET <column> = <column> + CASE <key> WHEN ? THEN ? ... END WHERE <key> IN (...)
	var builder strings.Builder
	args := make([]any, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE ")
	builder.WriteString(keyColumn)
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.key, p.inc)
	}
	builder.WriteString(" ELSE 0 END WHERE ")
	builder.WriteString(keyColumn)
	builder.WriteString(" IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.key)
	}
	builder.WriteString(")")

	if err := db.WithContext(ctx).Exec(builder.String(), args...).Error; err != nil {
		return 0, err
	}
	return len(pairs), nil
}
