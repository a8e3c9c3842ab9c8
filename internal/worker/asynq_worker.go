package worker

import (
	"context"
	"fmt"

	"github.com/equipment-registry/internal/erp"
	"github.com/equipment-registry/internal/logger"
	"github.com/equipment-registry/internal/provider"
	"github.com/equipment-registry/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskInstallationERPSync, c.handleInstallationSync)
}

// handleInstallationSync 将安装登记写回 ERP
// 设备不存在或尚未安装时直接确认任务，ERP 写入失败交给 asynq 重试，重试不会重复插入登记记录。
func (c *Consumer) handleInstallationSync(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_installation_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseInstallationSyncPayload(task)
	if err != nil {
		logger.Warnw("worker_installation_sync_invalid_payload", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if c.ERP == nil || !c.ERP.Configured() {
		logger.Debugw("worker_installation_sync_skip_erp_disabled", "equipment_id", payload.EquipmentID)
		return nil
	}
	if c.EquipmentRepo == nil {
		logger.Warnw("worker_installation_sync_skip_repo_nil", "equipment_id", payload.EquipmentID)
		return nil
	}

	equipment, err := c.EquipmentRepo.GetByID(payload.EquipmentID)
	if err != nil {
		logger.Warnw("worker_installation_sync_fetch_failed", "equipment_id", payload.EquipmentID, "error", err)
		return err
	}
	if equipment == nil {
		logger.Debugw("worker_installation_sync_skip_not_found", "equipment_id", payload.EquipmentID)
		return nil
	}
	if !equipment.Installed() {
		logger.Debugw("worker_installation_sync_skip_not_installed", "equipment_id", equipment.ID)
		return nil
	}

	record := erp.Installation{
		Model:            equipment.Model,
		UnitNumber:       equipment.UnitNumber,
		InstallationDate: *equipment.InstallationDate,
		DealerCode:       equipment.DealerCode,
		CarrierInfo:      equipment.CarrierInfo,
		Latitude:         equipment.RegistrationLatitude,
		Longitude:        equipment.RegistrationLongitude,
	}
	if err := c.ERP.RecordInstallation(ctx, record); err != nil {
		logger.Warnw("worker_installation_sync_failed",
			"equipment_id", equipment.ID,
			"model", equipment.Model,
			"unit_number", equipment.UnitNumber,
			"error", err,
		)
		return err
	}
	logger.Infow("worker_installation_synced",
		"equipment_id", equipment.ID,
		"model", equipment.Model,
		"unit_number", equipment.UnitNumber,
	)
	return nil
}
