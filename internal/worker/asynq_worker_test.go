package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/equipment-registry/internal/config"
	"github.com/equipment-registry/internal/erp"
	"github.com/equipment-registry/internal/models"
	"github.com/equipment-registry/internal/provider"
	"github.com/equipment-registry/internal/queue"
	"github.com/equipment-registry/internal/repository"
	"github.com/equipment-registry/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

type fakeAdapter struct {
	configured bool
	products   []erp.ShipmentProduct
	recorded   []erp.Installation
	recordErr  error
	closed     bool
}

func (f *fakeAdapter) Configured() bool { return f.configured }

func (f *fakeAdapter) GetProductsByIDs(ctx context.Context, productIDs []string) ([]erp.ShipmentProduct, error) {
	return f.products, nil
}

func (f *fakeAdapter) GetProductsByShipment(ctx context.Context, shipmentID string) ([]erp.ShipmentProduct, error) {
	var rows []erp.ShipmentProduct
	for _, product := range f.products {
		if product.ShipmentID == shipmentID {
			rows = append(rows, product)
		}
	}
	return rows, nil
}

func (f *fakeAdapter) RecordInstallation(ctx context.Context, record erp.Installation) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, record)
	return nil
}

func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

func setupWorkerTest(t *testing.T) *repository.GormEquipmentRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return repository.NewEquipmentRepository(db)
}

func seedEquipment(t *testing.T, repo *repository.GormEquipmentRepository, code string, installed bool) *models.Equipment {
	t.Helper()
	row := &models.Equipment{
		AccessToken: "token-" + code,
		NaturalKey:  "code:" + code,
		ProductCode: code,
		Model:       "GroupA",
		UnitNumber:  "U-" + code,
	}
	if installed {
		date := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
		row.InstallationDate = &date
		row.DealerCode = "9000400467"
	}
	if err := repo.Create(row); err != nil {
		t.Fatalf("create equipment failed: %v", err)
	}
	return row
}

func syncTask(t *testing.T, id uint) *asynq.Task {
	t.Helper()
	task, err := queue.NewInstallationSyncTask(queue.InstallationSyncPayload{EquipmentID: id})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	return task
}

func TestHandleInstallationSync(t *testing.T) {
	repo := setupWorkerTest(t)
	installed := seedEquipment(t, repo, "SCB1", true)
	pending := seedEquipment(t, repo, "SCB2", false)
	adapter := &fakeAdapter{configured: true}
	consumer := NewConsumer(&provider.Container{EquipmentRepo: repo, ERP: adapter})

	if err := consumer.handleInstallationSync(context.Background(), syncTask(t, installed.ID)); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(adapter.recorded) != 1 || adapter.recorded[0].UnitNumber != "U-SCB1" || adapter.recorded[0].DealerCode != "9000400467" {
		t.Fatalf("installation not recorded: %+v", adapter.recorded)
	}

	if err := consumer.handleInstallationSync(context.Background(), syncTask(t, pending.ID)); err != nil {
		t.Fatalf("pending equipment should be skipped, got %v", err)
	}
	if err := consumer.handleInstallationSync(context.Background(), syncTask(t, 9999)); err != nil {
		t.Fatalf("missing equipment should be skipped, got %v", err)
	}
	if len(adapter.recorded) != 1 {
		t.Fatalf("skipped tasks should not write erp, recorded=%d", len(adapter.recorded))
	}
}

func TestHandleInstallationSyncErrors(t *testing.T) {
	repo := setupWorkerTest(t)
	installed := seedEquipment(t, repo, "SCB1", true)

	bad := asynq.NewTask(queue.TaskInstallationERPSync, []byte(`{"equipment_id":0}`))
	consumer := NewConsumer(&provider.Container{EquipmentRepo: repo, ERP: &fakeAdapter{configured: true}})
	if err := consumer.handleInstallationSync(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("invalid payload want SkipRetry got %v", err)
	}

	failing := &fakeAdapter{configured: true, recordErr: errors.New("erp down")}
	consumer = NewConsumer(&provider.Container{EquipmentRepo: repo, ERP: failing})
	if err := consumer.handleInstallationSync(context.Background(), syncTask(t, installed.ID)); err == nil {
		t.Fatalf("erp failure should be returned for retry")
	}

	disabled := NewConsumer(&provider.Container{EquipmentRepo: repo, ERP: erp.Noop{}})
	if err := disabled.handleInstallationSync(context.Background(), syncTask(t, installed.ID)); err != nil {
		t.Fatalf("disabled erp should skip, got %v", err)
	}
}

func TestEnricherRunOnce(t *testing.T) {
	repo := setupWorkerTest(t)
	first := seedEquipment(t, repo, "SCB1", false)
	seedEquipment(t, repo, "SCB2", false)
	shipped := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		configured: true,
		products: []erp.ShipmentProduct{
			{ProductID: "SCB1", OrderNumber: "ORD-1", ExportCountry: "Japan", ShipmentDate: &shipped},
		},
	}
	enricher := NewEnricher(repo, adapter, 10)

	updated, err := enricher.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("enrich failed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("updated want 1 got %d", updated)
	}
	got, err := repo.GetByID(first.ID)
	if err != nil || got == nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.OrderNumber != "ORD-1" || got.ExportCountry != "Japan" || got.ShipmentDate == nil {
		t.Fatalf("shipment fields not applied: %+v", got)
	}

	missing, err := repo.ListMissingShipment(0, 10)
	if err != nil {
		t.Fatalf("list missing failed: %v", err)
	}
	if len(missing) != 1 || missing[0].ProductCode != "SCB2" {
		t.Fatalf("only SCB2 should remain without shipment: %+v", missing)
	}
}

func setupERPDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_erp?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open erp sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&erp.ShipmentProduct{}, &erp.InstallationRecord{}); err != nil {
		t.Fatalf("migrate erp tables failed: %v", err)
	}
	return db
}

func TestHandleInstallationSyncRetryRecordsOnce(t *testing.T) {
	repo := setupWorkerTest(t)
	installed := seedEquipment(t, repo, "SCB1", true)
	erpDB := setupERPDatabase(t)
	if err := erpDB.Create(&erp.ShipmentProduct{ProductID: "SCB1", Model: "GroupA", UnitNumber: "U-SCB1"}).Error; err != nil {
		t.Fatalf("seed erp product failed: %v", err)
	}

	failNext := true
	err := erpDB.Callback().Update().Before("gorm:update").Register("test:fail_product_update", func(tx *gorm.DB) {
		if failNext {
			failNext = false
			_ = tx.AddError(errors.New("erp timeout"))
		}
	})
	if err != nil {
		t.Fatalf("register callback failed: %v", err)
	}

	consumer := NewConsumer(&provider.Container{EquipmentRepo: repo, ERP: erp.NewGormAdapter(erpDB)})
	if err := consumer.handleInstallationSync(context.Background(), syncTask(t, installed.ID)); err == nil {
		t.Fatalf("first attempt should return error for retry")
	}
	if err := consumer.handleInstallationSync(context.Background(), syncTask(t, installed.ID)); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	var count int64
	if err := erpDB.Model(&erp.InstallationRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count records failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("installation records want 1 got %d", count)
	}
	var product erp.ShipmentProduct
	if err := erpDB.Where("product_id = ?", "SCB1").First(&product).Error; err != nil {
		t.Fatalf("load product failed: %v", err)
	}
	if product.InstallationDate == nil || product.DealerCode != "9000400467" {
		t.Fatalf("product not updated after retry: %+v", product)
	}
}

func TestEnricherAdvancesPastUnmatchedRows(t *testing.T) {
	repo := setupWorkerTest(t)
	seedEquipment(t, repo, "NOERP", false)
	matched := seedEquipment(t, repo, "SCB2", false)
	shipped := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		configured: true,
		products: []erp.ShipmentProduct{
			{ProductID: "SCB2", OrderNumber: "ORD-2", ShipmentDate: &shipped},
		},
	}
	enricher := NewEnricher(repo, adapter, 1)

	total := 0
	for cycle := 0; cycle < 2; cycle++ {
		updated, err := enricher.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("cycle %d failed: %v", cycle, err)
		}
		total += updated
	}
	if total != 1 {
		t.Fatalf("updated want 1 got %d", total)
	}
	got, err := repo.GetByID(matched.ID)
	if err != nil || got == nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.ShipmentDate == nil || got.OrderNumber != "ORD-2" {
		t.Fatalf("SCB2 should be enriched: %+v", got)
	}

	// 扫到末尾后从头开始
	if _, err := enricher.RunOnce(context.Background()); err != nil {
		t.Fatalf("wrap cycle failed: %v", err)
	}
	if enricher.cursor != 0 {
		t.Fatalf("cursor should reset after last batch, got %d", enricher.cursor)
	}
}

func TestEnricherSkipsUnchangedRows(t *testing.T) {
	repo := setupWorkerTest(t)
	seedEquipment(t, repo, "SCB1", false)
	adapter := &fakeAdapter{
		configured: true,
		products: []erp.ShipmentProduct{
			{ProductID: "SCB1", OrderNumber: "ORD-1", ExportCountry: "Japan"},
		},
	}
	enricher := NewEnricher(repo, adapter, 10)

	updated, err := enricher.RunOnce(context.Background())
	if err != nil || updated != 1 {
		t.Fatalf("first run want 1 update got %d err=%v", updated, err)
	}
	updated, err = enricher.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if updated != 0 {
		t.Fatalf("row without shipment date should not be rewritten, updated=%d", updated)
	}
}

type recordingImporter struct {
	items []service.IngestInput
}

func (r *recordingImporter) ImportShipments(ctx context.Context, items []service.IngestInput) service.ImportSummary {
	r.items = append(r.items, items...)
	return service.ImportSummary{Created: len(items)}
}

func TestEnricherImportShipment(t *testing.T) {
	repo := setupWorkerTest(t)
	shipped := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		configured: true,
		products: []erp.ShipmentProduct{
			{ProductID: "P1", ShipmentID: "S1", Model: "GroupA", UnitNumber: "U1", OrderNumber: "ORD-1", ExportCountry: "Japan", ShipmentDate: &shipped},
			{ProductID: "P2", ShipmentID: "S1", Model: "GroupA", UnitNumber: "U2"},
			{ProductID: "P3", ShipmentID: "S2", Model: "GroupB", UnitNumber: "U3"},
		},
	}
	enricher := NewEnricher(repo, adapter, 10)
	importer := &recordingImporter{}

	summary, err := enricher.ImportShipment(context.Background(), " S1 ", importer)
	if err != nil {
		t.Fatalf("import shipment failed: %v", err)
	}
	if summary.Created != 2 || len(importer.items) != 2 {
		t.Fatalf("want 2 items got summary=%+v items=%+v", summary, importer.items)
	}
	first := importer.items[0]
	if first.ProductCode != "P1" || first.Model != "GroupA" || first.OrderNumber != "ORD-1" || first.ShipmentDate == nil {
		t.Fatalf("unexpected ingest input: %+v", first)
	}

	if _, err := enricher.ImportShipment(context.Background(), "  ", importer); err == nil {
		t.Fatalf("blank shipment id should fail")
	}
	disabled := NewEnricher(repo, erp.Noop{}, 10)
	if _, err := disabled.ImportShipment(context.Background(), "S1", importer); !errors.Is(err, erp.ErrNotConfigured) {
		t.Fatalf("disabled erp want ErrNotConfigured got %v", err)
	}
}

func TestEnricherDisabled(t *testing.T) {
	repo := setupWorkerTest(t)
	enricher := NewEnricher(repo, erp.Noop{}, 0)
	if enricher.Enabled() {
		t.Fatalf("noop adapter should disable enricher")
	}
	if _, err := NewEnrichService(erpConfigForTest(), enricher); err == nil {
		t.Fatalf("enrich service should not start without erp")
	}
}

func erpConfigForTest() config.ERPConfig {
	return config.ERPConfig{SyncIntervalSeconds: 60}
}
