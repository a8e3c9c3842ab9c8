package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/equipment-registry/internal/constants"

	"github.com/redis/go-redis/v9"
)

// GetReport 读取报表缓存
func GetReport(ctx context.Context, dest interface{}) (bool, error) {
	return GetJSON(ctx, constants.CacheKeyReport, dest)
}

// SetReportIfVersion 报表数据版本未变化时写入缓存，返回是否写入
func SetReportIfVersion(ctx context.Context, value interface{}, ttl time.Duration, version int64) (bool, error) {
	return setIfVersion(ctx, constants.CacheKeyReport, value, ttl, version)
}

// GetStats 读取统计缓存
func GetStats(ctx context.Context, dest interface{}) (bool, error) {
	return GetJSON(ctx, constants.CacheKeyStats, dest)
}

// SetStatsIfVersion 报表数据版本未变化时写入统计缓存
func SetStatsIfVersion(ctx context.Context, value interface{}, ttl time.Duration, version int64) (bool, error) {
	return setIfVersion(ctx, constants.CacheKeyStats, value, ttl, version)
}

// ReportVersion 读取报表数据版本号，每次失效递增
func ReportVersion(ctx context.Context) (int64, error) {
	if !Enabled() {
		return 0, nil
	}
	version, err := redisClient.Get(ctx, buildKey(constants.CacheKeyReportVersion)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

// InvalidateReport 设备数据变更后递增版本号并清理报表与统计缓存
// 递增版本号让失效前开始计算的结果无法再写回缓存。
func InvalidateReport(ctx context.Context) error {
	if !Enabled() {
		return nil
	}
	_, err := redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, buildKey(constants.CacheKeyReportVersion))
		pipe.Del(ctx, buildKey(constants.CacheKeyReport), buildKey(constants.CacheKeyStats))
		return nil
	})
	return err
}

func setIfVersion(ctx context.Context, key string, value interface{}, ttl time.Duration, version int64) (bool, error) {
	if !Enabled() {
		return false, nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	versionKey := buildKey(constants.CacheKeyReportVersion)
	stored := false
	err = redisClient.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, buildKey(key), payload, ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, versionKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}
