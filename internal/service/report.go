package service

import (
	"sort"
	"strings"
	"time"

	"github.com/equipment-registry/internal/config"
	"github.com/equipment-registry/internal/constants"
	"github.com/equipment-registry/internal/repository"

	"github.com/shopspring/decimal"
)

var flexibleDateLayouts = []string{
	constants.DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseFlexibleDate 解析纯日期或完整时间戳，统一截断为 UTC 零点的日期
func ParseFlexibleDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrDateInvalid
	}
	for _, layout := range flexibleDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return dateOnly(parsed), nil
		}
	}
	return time.Time{}, ErrDateInvalid
}

// dateOnly 丢弃时分秒，保留该时间自身时区下的日期
func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ModelStats 单个型号统计
type ModelStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
}

// MonthlyCount 月度安装数
type MonthlyCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// LeadTimeBucket 交付周期分桶
type LeadTimeBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// LeadTimeStats 交付周期统计
type LeadTimeStats struct {
	Reference string           `json:"reference"`
	Samples   int64            `json:"samples"`
	Average   float64          `json:"average"`
	Buckets   []LeadTimeBucket `json:"buckets"`
}

// Report 仪表盘报表
type Report struct {
	Total     int64                 `json:"total"`
	Pending   int64                 `json:"pending"`
	Completed int64                 `json:"completed"`
	ByModel   map[string]ModelStats `json:"by_model"`
	Monthly   []MonthlyCount        `json:"monthly"`
	LeadTime  LeadTimeStats         `json:"lead_time"`
}

// BuildReport 聚合设备记录，reference 为 created_at 或 shipment_date
func BuildReport(rows []repository.ReportRow, reference string) Report {
	if reference != config.LeadTimeFromShipmentDate {
		reference = config.LeadTimeFromCreatedAt
	}
	report := Report{
		ByModel: make(map[string]ModelStats),
		Monthly: []MonthlyCount{},
		LeadTime: LeadTimeStats{
			Reference: reference,
			Buckets:   make([]LeadTimeBucket, 0, len(constants.LeadTimeBuckets)),
		},
	}
	monthly := make(map[string]int64)
	bucketCounts := make(map[string]int64, len(constants.LeadTimeBuckets))
	var leadSum int64

	for _, row := range rows {
		model := strings.TrimSpace(row.Model)
		if model == "" {
			model = constants.ModelUnclassified
		}
		stats := report.ByModel[model]
		stats.Total++
		report.Total++

		if row.InstallationDate == nil {
			stats.Pending++
			report.Pending++
			report.ByModel[model] = stats
			continue
		}
		stats.Completed++
		report.Completed++
		report.ByModel[model] = stats

		installed := dateOnly(*row.InstallationDate)
		monthly[installed.Format(constants.MonthLayout)]++

		ref := referenceDate(row, reference)
		if ref == nil {
			continue
		}
		days := LeadTimeDays(*ref, installed)
		leadSum += days
		report.LeadTime.Samples++
		bucketCounts[LeadTimeBucketFor(days)]++
	}

	for _, label := range constants.LeadTimeBuckets {
		report.LeadTime.Buckets = append(report.LeadTime.Buckets, LeadTimeBucket{Label: label, Count: bucketCounts[label]})
	}
	if report.LeadTime.Samples > 0 {
		report.LeadTime.Average = decimal.NewFromInt(leadSum).
			Div(decimal.NewFromInt(report.LeadTime.Samples)).
			Round(1).
			InexactFloat64()
	}
	report.Monthly = lastMonths(monthly, constants.MonthlyWindow)
	return report
}

func referenceDate(row repository.ReportRow, reference string) *time.Time {
	if reference == config.LeadTimeFromShipmentDate {
		return row.ShipmentDate
	}
	if row.CreatedAt.IsZero() {
		return nil
	}
	created := row.CreatedAt
	return &created
}

// LeadTimeDays 两个日期相差的整天数，忽略时分秒
func LeadTimeDays(reference, installed time.Time) int64 {
	return int64(dateOnly(installed).Sub(dateOnly(reference)).Hours() / 24)
}

// LeadTimeBucketFor 负数与 7 天以内都归入 0-7
func LeadTimeBucketFor(days int64) string {
	switch {
	case days <= 7:
		return constants.LeadTimeBucket0To7
	case days <= 14:
		return constants.LeadTimeBucket8To14
	case days <= 30:
		return constants.LeadTimeBucket15To30
	case days <= 60:
		return constants.LeadTimeBucket31To60
	default:
		return constants.LeadTimeBucketOver60
	}
}

func lastMonths(monthly map[string]int64, window int) []MonthlyCount {
	keys := make([]string, 0, len(monthly))
	for key := range monthly {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) > window {
		keys = keys[len(keys)-window:]
	}
	result := make([]MonthlyCount, 0, len(keys))
	for _, key := range keys {
		result = append(result, MonthlyCount{Month: key, Count: monthly[key]})
	}
	return result
}
