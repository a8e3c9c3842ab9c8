package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/equipment-registry/internal/cache"
	"github.com/equipment-registry/internal/config"
	"github.com/equipment-registry/internal/erp"
	"github.com/equipment-registry/internal/logger"
	"github.com/equipment-registry/internal/models"
	"github.com/equipment-registry/internal/repository"
	"github.com/equipment-registry/internal/service"
)

const (
	defaultEnrichInterval = 10 * time.Minute
	defaultEnrichBatch    = 200
)

// Enricher 从 ERP 补全待安装设备的出货信息
// 按 id 游标分批扫描，一轮扫到末尾后从头开始，ERP 中找不到的设备不会卡住后续批次。
type Enricher struct {
	repo    repository.EquipmentRepository
	adapter erp.Adapter
	batch   int
	now     func() time.Time

	mu     sync.Mutex
	cursor uint
}

// ShipmentImporter 出货清单入库
type ShipmentImporter interface {
	ImportShipments(ctx context.Context, items []service.IngestInput) service.ImportSummary
}

// NewEnricher 创建出货信息补全器
func NewEnricher(repo repository.EquipmentRepository, adapter erp.Adapter, batch int) *Enricher {
	if batch <= 0 {
		batch = defaultEnrichBatch
	}
	return &Enricher{repo: repo, adapter: adapter, batch: batch, now: time.Now}
}

// Enabled ERP 未配置时不执行
func (e *Enricher) Enabled() bool {
	return e != nil && e.repo != nil && e.adapter != nil && e.adapter.Configured()
}

// RunOnce 处理一批缺少出货信息的设备，返回更新条数
func (e *Enricher) RunOnce(ctx context.Context) (int, error) {
	if !e.Enabled() {
		return 0, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := e.repo.ListMissingShipment(e.cursor, e.batch)
	if err != nil {
		return 0, err
	}
	if len(rows) < e.batch {
		e.cursor = 0
	} else {
		e.cursor = rows[len(rows)-1].ID
	}
	if len(rows) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if code := strings.TrimSpace(row.ProductCode); code != "" {
			ids = append(ids, code)
		}
	}
	products, err := e.adapter.GetProductsByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	byID := make(map[string]erp.ShipmentProduct, len(products))
	for _, product := range products {
		byID[strings.TrimSpace(product.ProductID)] = product
	}

	updated := 0
	for _, row := range rows {
		product, ok := byID[strings.TrimSpace(row.ProductCode)]
		if !ok {
			continue
		}
		fields := shipmentFields(row, product)
		if len(fields) == 0 {
			continue
		}
		fields["updated_at"] = e.now().UTC()
		if err := e.repo.Update(row.ID, fields); err != nil {
			logger.Warnw("worker_erp_enrich_update_failed", "equipment_id", row.ID, "error", err)
			continue
		}
		updated++
	}
	if updated > 0 {
		if err := cache.InvalidateReport(ctx); err != nil {
			logger.Warnw("worker_erp_enrich_invalidate_cache_failed", "error", err)
		}
	}
	return updated, nil
}

// ImportShipment 按出货单号拉取 ERP 产品并入库，已存在的设备保持不变
func (e *Enricher) ImportShipment(ctx context.Context, shipmentID string, importer ShipmentImporter) (service.ImportSummary, error) {
	if !e.Enabled() {
		return service.ImportSummary{}, erp.ErrNotConfigured
	}
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return service.ImportSummary{}, errors.New("shipment id is required")
	}
	products, err := e.adapter.GetProductsByShipment(ctx, shipmentID)
	if err != nil {
		return service.ImportSummary{}, err
	}
	items := make([]service.IngestInput, 0, len(products))
	for _, product := range products {
		items = append(items, service.IngestInput{
			ProductCode:   product.ProductID,
			Model:         product.Model,
			UnitNumber:    product.UnitNumber,
			OrderNumber:   product.OrderNumber,
			ExportCountry: product.ExportCountry,
			ShipmentDate:  product.ShipmentDate,
		})
	}
	summary := importer.ImportShipments(ctx, items)
	logger.Infow("worker_erp_shipment_imported",
		"shipment_id", shipmentID,
		"products", len(products),
		"created", summary.Created,
		"existing", summary.Existing,
		"failed", summary.Failed,
	)
	return summary, nil
}

// shipmentFields 只返回与当前记录不同的出货字段
func shipmentFields(row models.Equipment, product erp.ShipmentProduct) map[string]interface{} {
	fields := make(map[string]interface{})
	if v := strings.TrimSpace(product.OrderNumber); v != "" && v != row.OrderNumber {
		fields["order_number"] = v
	}
	if v := strings.TrimSpace(product.ExportCountry); v != "" && v != row.ExportCountry {
		fields["export_country"] = v
	}
	if product.ShipmentDate != nil {
		fields["shipment_date"] = *product.ShipmentDate
	}
	return fields
}

// EnrichService 周期性执行出货信息补全，不依赖任务队列
type EnrichService struct {
	name     string
	interval time.Duration
	enricher *Enricher
	stop     chan struct{}
}

// NewEnrichService 创建补全服务
func NewEnrichService(cfg config.ERPConfig, enricher *Enricher) (*EnrichService, error) {
	if !enricher.Enabled() {
		return nil, errors.New("erp not configured")
	}
	interval := defaultEnrichInterval
	if cfg.SyncIntervalSeconds > 0 {
		interval = time.Duration(cfg.SyncIntervalSeconds) * time.Second
	}
	return &EnrichService{
		name:     "erp_enrich",
		interval: interval,
		enricher: enricher,
		stop:     make(chan struct{}),
	}, nil
}

// Name 服务名称
func (s *EnrichService) Name() string {
	if s == nil || s.name == "" {
		return "erp_enrich"
	}
	return s.name
}

// Start 启动补全循环，直到 ctx 结束或 Stop
func (s *EnrichService) Start(ctx context.Context) error {
	if s == nil || s.enricher == nil {
		return errors.New("erp enrich not initialized")
	}
	runOnce := func() {
		updated, err := s.enricher.RunOnce(ctx)
		if err != nil {
			logger.Warnw("worker_erp_enrich_failed", "error", err)
			return
		}
		if updated > 0 {
			logger.Infow("worker_erp_enrich_done", "updated", updated)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-ticker.C:
			runOnce()
		}
	}
}

// Stop 停止服务
func (s *EnrichService) Stop(ctx context.Context) error {
	if s == nil || s.stop == nil {
		return nil
	}
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return nil
}
