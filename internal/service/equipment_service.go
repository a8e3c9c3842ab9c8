package service

import (
	"context"
	"strings"

	"github.com/equipment-registry/internal/constants"
	"github.com/equipment-registry/internal/models"
	"github.com/equipment-registry/internal/repository"
)

// EquipmentService 设备查询服务（供 ERP 等外部系统调用）
type EquipmentService struct {
	repo repository.EquipmentRepository
}

// NewEquipmentService 创建设备查询服务
func NewEquipmentService(repo repository.EquipmentRepository) *EquipmentService {
	return &EquipmentService{repo: repo}
}

// ListQuery 设备列表查询参数
type ListQuery struct {
	Status   string
	FromDate string
	ToDate   string
	Model    string
	Search   string
	Limit    int
	Offset   int
}

// ListResult 设备列表结果
type ListResult struct {
	Count  int                `json:"count"`
	Total  int64              `json:"total"`
	Offset int                `json:"offset"`
	Limit  int                `json:"limit"`
	Data   []models.Equipment `json:"data"`
}

// BulkResult 批量查询结果
type BulkResult struct {
	Found    []models.Equipment `json:"found"`
	NotFound []string           `json:"not_found"`
}

// NormalizeLimitOffset 默认 100 条，最多 1000 条
func NormalizeLimitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = constants.DefaultListLimit
	}
	if limit > constants.MaxListLimit {
		limit = constants.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Get 按产品编码获取设备
func (s *EquipmentService) Get(ctx context.Context, code string) (*models.Equipment, error) {
	equipment, err := s.repo.FindByCode(code)
	if err != nil {
		return nil, upstreamError("find equipment by code", err)
	}
	if equipment == nil {
		return nil, ErrEquipmentNotFound
	}
	return equipment, nil
}

// BuildFilter 将查询参数转换为仓库过滤条件
func (q ListQuery) BuildFilter() (repository.EquipmentListFilter, error) {
	limit, offset := NormalizeLimitOffset(q.Limit, q.Offset)
	filter := repository.EquipmentListFilter{
		Status: normalizeStatus(q.Status),
		Model:  strings.TrimSpace(q.Model),
		Search: strings.TrimSpace(q.Search),
		Limit:  limit,
		Offset: offset,
	}
	if raw := strings.TrimSpace(q.FromDate); raw != "" {
		from, err := ParseFlexibleDate(raw)
		if err != nil {
			return filter, err
		}
		filter.CreatedFrom = &from
	}
	if raw := strings.TrimSpace(q.ToDate); raw != "" {
		to, err := ParseFlexibleDate(raw)
		if err != nil {
			return filter, err
		}
		filter.CreatedTo = &to
	}
	return filter, nil
}

func normalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case constants.EquipmentStatusPending:
		return constants.EquipmentStatusPending
	case constants.EquipmentStatusCompleted:
		return constants.EquipmentStatusCompleted
	default:
		return constants.EquipmentStatusAll
	}
}

// List 按状态、创建日期、型号分页查询
func (s *EquipmentService) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	filter, err := query.BuildFilter()
	if err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(filter)
	if err != nil {
		return nil, upstreamError("list equipment", err)
	}
	if rows == nil {
		rows = []models.Equipment{}
	}
	return &ListResult{
		Count:  len(rows),
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
		Data:   rows,
	}, nil
}

// Bulk 批量按产品编码查询，最多 100 个
func (s *EquipmentService) Bulk(ctx context.Context, codes []string) (*BulkResult, error) {
	if len(codes) == 0 {
		return nil, ErrBulkCodesRequired
	}
	if len(codes) > constants.MaxBulkCodes {
		return nil, ErrBulkCodesTooMany
	}
	found, notFound, err := s.repo.BulkFind(codes)
	if err != nil {
		return nil, upstreamError("bulk find equipment", err)
	}
	if len(notFound) == 0 && len(found) == 0 {
		return nil, ErrBulkCodesRequired
	}
	return &BulkResult{Found: found, NotFound: notFound}, nil
}

// ListByCodes 按产品编码获取设备（标签打印用）
func (s *EquipmentService) ListByCodes(ctx context.Context, codes []string) ([]models.Equipment, error) {
	if len(codes) == 0 {
		return nil, ErrBulkCodesRequired
	}
	if len(codes) > constants.MaxBulkCodes {
		return nil, ErrBulkCodesTooMany
	}
	rows, err := s.repo.ListByCodes(codes)
	if err != nil {
		return nil, upstreamError("list equipment by codes", err)
	}
	return rows, nil
}

// Export 按列表条件导出全部匹配记录，忽略 limit/offset
func (s *EquipmentService) Export(ctx context.Context, query ListQuery) ([]models.Equipment, error) {
	query.Limit = constants.MaxListLimit
	query.Offset = 0
	filter, err := query.BuildFilter()
	if err != nil {
		return nil, err
	}
	all := make([]models.Equipment, 0)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, total, err := s.repo.List(filter)
		if err != nil {
			return nil, upstreamError("export equipment", err)
		}
		all = append(all, rows...)
		filter.Offset += len(rows)
		if len(rows) == 0 || int64(filter.Offset) >= total {
			return all, nil
		}
	}
}
