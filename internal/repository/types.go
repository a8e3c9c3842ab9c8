package repository

import "time"

// EquipmentListFilter 查询设备列表的过滤条件
type EquipmentListFilter struct {
	Status      string // pending / completed / all
	CreatedFrom *time.Time
	CreatedTo   *time.Time // 按自然日包含当天
	Model       string
	Search      string
	Limit       int
	Offset      int
}

// ModelCount 按型号统计
type ModelCount struct {
	Model     string `gorm:"column:model"`
	Total     int64  `gorm:"column:total"`
	Completed int64  `gorm:"column:completed"`
}

// ReportRow 报表聚合所需的精简字段
type ReportRow struct {
	Model            string     `gorm:"column:model"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	ShipmentDate     *time.Time `gorm:"column:shipment_date"`
	InstallationDate *time.Time `gorm:"column:installation_date"`
}
