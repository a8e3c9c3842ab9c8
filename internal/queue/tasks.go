package queue

import (
	"encoding/json"
	"fmt"

	"github.com/equipment-registry/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskInstallationERPSync 安装登记回写 ERP 任务
	TaskInstallationERPSync = constants.TaskInstallationERPSync
)

// InstallationSyncPayload 安装登记回写任务载荷
type InstallationSyncPayload struct {
	EquipmentID uint `json:"equipment_id"`
}

// NewInstallationSyncTask 创建安装登记回写任务
func NewInstallationSyncTask(payload InstallationSyncPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInstallationERPSync, body), nil
}

// ParseInstallationSyncPayload 解析安装登记回写任务载荷
func ParseInstallationSyncPayload(task *asynq.Task) (InstallationSyncPayload, error) {
	var payload InstallationSyncPayload
	if task == nil {
		return payload, fmt.Errorf("nil task")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	if payload.EquipmentID == 0 {
		return payload, fmt.Errorf("equipment_id is required")
	}
	return payload, nil
}
