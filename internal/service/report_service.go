package service

import (
	"context"
	"strings"
	"time"

	"github.com/equipment-registry/internal/cache"
	"github.com/equipment-registry/internal/config"
	"github.com/equipment-registry/internal/constants"
	"github.com/equipment-registry/internal/logger"
	"github.com/equipment-registry/internal/models"
	"github.com/equipment-registry/internal/repository"
)

const (
	defaultReportCacheTTL = 45 * time.Second
	defaultDashboardLimit = 500
)

// ReportService 报表服务
// 说明：聚合结果写入 Redis 缓存，设备数据变更时由登记流程清理。
type ReportService struct {
	repo      repository.EquipmentRepository
	cache     reportCache
	reference string
	cacheTTL  time.Duration
	listLimit int
}

// reportCache 报表缓存，写入前校验数据版本，计算期间发生失效时放弃写入
type reportCache interface {
	Version(ctx context.Context) (int64, error)
	GetReport(ctx context.Context, dest interface{}) (bool, error)
	SetReport(ctx context.Context, value interface{}, ttl time.Duration, version int64) (bool, error)
	GetStats(ctx context.Context, dest interface{}) (bool, error)
	SetStats(ctx context.Context, value interface{}, ttl time.Duration, version int64) (bool, error)
}

type redisReportCache struct{}

func (redisReportCache) Version(ctx context.Context) (int64, error) {
	return cache.ReportVersion(ctx)
}

func (redisReportCache) GetReport(ctx context.Context, dest interface{}) (bool, error) {
	return cache.GetReport(ctx, dest)
}

func (redisReportCache) SetReport(ctx context.Context, value interface{}, ttl time.Duration, version int64) (bool, error) {
	return cache.SetReportIfVersion(ctx, value, ttl, version)
}

func (redisReportCache) GetStats(ctx context.Context, dest interface{}) (bool, error) {
	return cache.GetStats(ctx, dest)
}

func (redisReportCache) SetStats(ctx context.Context, value interface{}, ttl time.Duration, version int64) (bool, error) {
	return cache.SetStatsIfVersion(ctx, value, ttl, version)
}

// NewReportService 创建报表服务
func NewReportService(cfg *config.Config, repo repository.EquipmentRepository) *ReportService {
	svc := &ReportService{
		repo:      repo,
		cache:     redisReportCache{},
		reference: config.LeadTimeFromCreatedAt,
		cacheTTL:  defaultReportCacheTTL,
		listLimit: defaultDashboardLimit,
	}
	if cfg != nil {
		svc.reference = cfg.Registration.Normalize().LeadTimeReference
		if cfg.Report.CacheTTLSeconds > 0 {
			svc.cacheTTL = time.Duration(cfg.Report.CacheTTLSeconds) * time.Second
		}
		if cfg.Report.ListLimit > 0 {
			svc.listLimit = cfg.Report.ListLimit
		}
	}
	return svc
}

// Stats 统计接口响应
type Stats struct {
	Total     int64                 `json:"total"`
	Pending   int64                 `json:"pending"`
	Completed int64                 `json:"completed"`
	ByModel   map[string]ModelStats `json:"by_model"`
}

// DashboardData 仪表盘页面数据
type DashboardData struct {
	Report    Report             `json:"report"`
	Pending   []models.Equipment `json:"pending"`
	Completed []models.Equipment `json:"completed"`
}

// GetReport 获取报表，优先读取缓存
func (s *ReportService) GetReport(ctx context.Context, forceRefresh bool) (*Report, error) {
	if !forceRefresh {
		var cached Report
		hit, err := s.cache.GetReport(ctx, &cached)
		if err == nil && hit {
			return &cached, nil
		}
		if err != nil {
			logger.Warnw("report_cache_read_failed", "error", err)
		}
	}

	version, versionErr := s.cache.Version(ctx)
	rows, err := s.repo.ListReportRows()
	if err != nil {
		return nil, upstreamError("list report rows", err)
	}
	report := BuildReport(rows, s.reference)
	if versionErr == nil {
		if _, err := s.cache.SetReport(ctx, report, s.cacheTTL, version); err != nil {
			logger.Warnw("report_cache_write_failed", "error", err)
		}
	}
	return &report, nil
}

// GetStats 按型号统计总数、待安装与已安装
func (s *ReportService) GetStats(ctx context.Context) (*Stats, error) {
	var cached Stats
	if hit, err := s.cache.GetStats(ctx, &cached); err == nil && hit {
		return &cached, nil
	}

	version, versionErr := s.cache.Version(ctx)
	counts, err := s.repo.CountByModel()
	if err != nil {
		return nil, upstreamError("count by model", err)
	}
	stats := &Stats{ByModel: make(map[string]ModelStats, len(counts))}
	for _, row := range counts {
		model := strings.TrimSpace(row.Model)
		if model == "" {
			model = constants.ModelUnclassified
		}
		item := stats.ByModel[model]
		item.Total += row.Total
		item.Completed += row.Completed
		item.Pending += row.Total - row.Completed
		stats.ByModel[model] = item

		stats.Total += row.Total
		stats.Completed += row.Completed
	}
	stats.Pending = stats.Total - stats.Completed
	if versionErr == nil {
		if _, err := s.cache.SetStats(ctx, stats, s.cacheTTL, version); err != nil {
			logger.Warnw("report_stats_cache_write_failed", "error", err)
		}
	}
	return stats, nil
}

// Dashboard 获取仪表盘报表与待安装、已安装列表
func (s *ReportService) Dashboard(ctx context.Context) (*DashboardData, error) {
	report, err := s.GetReport(ctx, false)
	if err != nil {
		return nil, err
	}
	pending, _, err := s.repo.List(repository.EquipmentListFilter{
		Status: constants.EquipmentStatusPending,
		Limit:  s.listLimit,
	})
	if err != nil {
		return nil, upstreamError("list pending equipment", err)
	}
	completed, _, err := s.repo.List(repository.EquipmentListFilter{
		Status: constants.EquipmentStatusCompleted,
		Limit:  s.listLimit,
	})
	if err != nil {
		return nil, upstreamError("list completed equipment", err)
	}
	return &DashboardData{
		Report:    *report,
		Pending:   pending,
		Completed: completed,
	}, nil
}
