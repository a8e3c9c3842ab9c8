package erp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/equipment-registry/internal/config"

	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotConfigured = errors.New("erp not configured")
)

// ShipmentProduct ERP 出货产品
type ShipmentProduct struct {
	ProductID        string     `gorm:"column:product_id;type:varchar(100);primaryKey" json:"product_id"`
	ShipmentID       string     `gorm:"column:shipment_id;type:varchar(100);index" json:"shipment_id,omitempty"`
	Model            string     `gorm:"column:model;type:varchar(100)" json:"model"`
	UnitNumber       string     `gorm:"column:unit_number;type:varchar(100)" json:"unit_number"`
	OrderNumber      string     `gorm:"column:order_number;type:varchar(100)" json:"order_number"`
	ExportCountry    string     `gorm:"column:export_country;type:varchar(100)" json:"export_country"`
	ShipmentDate     *time.Time `gorm:"column:shipment_date" json:"shipment_date"`
	InstallationDate *time.Time `gorm:"column:installation_date" json:"installation_date,omitempty"`
	DealerCode       string     `gorm:"column:dealer_code;type:varchar(64)" json:"dealer_code,omitempty"`
	UpdatedAt        *time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at,omitempty"`
}

// TableName 指定表名
func (ShipmentProduct) TableName() string {
	return "shipment_products"
}

// InstallationRecord ERP 安装登记记录
type InstallationRecord struct {
	ID               uint      `gorm:"column:id;primaryKey"`
	Model            string    `gorm:"column:model;type:varchar(100)"`
	UnitNumber       string    `gorm:"column:unit_number;type:varchar(100)"`
	InstallationDate time.Time `gorm:"column:installation_date"`
	DealerCode       string    `gorm:"column:dealer_code;type:varchar(64)"`
	CarrierInfo      string    `gorm:"column:carrier_info;type:varchar(255)"`
	Latitude         *float64  `gorm:"column:latitude"`
	Longitude        *float64  `gorm:"column:longitude"`
	RegisteredAt     time.Time `gorm:"column:registered_at"`
}

// TableName 指定表名
func (InstallationRecord) TableName() string {
	return "installation_records"
}

// Installation 回写 ERP 的安装信息
type Installation struct {
	Model            string
	UnitNumber       string
	InstallationDate time.Time
	DealerCode       string
	CarrierInfo      string
	Latitude         *float64
	Longitude        *float64
}

// Adapter ERP 访问接口
type Adapter interface {
	Configured() bool
	GetProductsByIDs(ctx context.Context, productIDs []string) ([]ShipmentProduct, error)
	GetProductsByShipment(ctx context.Context, shipmentID string) ([]ShipmentProduct, error)
	RecordInstallation(ctx context.Context, record Installation) error
	Close() error
}

// Noop 未配置 ERP 时使用
type Noop struct{}

func (Noop) Configured() bool { return false }

func (Noop) GetProductsByIDs(ctx context.Context, productIDs []string) ([]ShipmentProduct, error) {
	return nil, ErrNotConfigured
}

func (Noop) GetProductsByShipment(ctx context.Context, shipmentID string) ([]ShipmentProduct, error) {
	return nil, ErrNotConfigured
}

func (Noop) RecordInstallation(ctx context.Context, record Installation) error {
	return ErrNotConfigured
}

func (Noop) Close() error { return nil }

// GormAdapter 基于 GORM 的 ERP 实现，生产环境连接 SQL Server
type GormAdapter struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormAdapter 使用已有连接创建 ERP 适配器
func NewGormAdapter(db *gorm.DB) *GormAdapter {
	return &GormAdapter{db: db, now: time.Now}
}

// Open 按配置连接 ERP，未配置时返回 Noop
func Open(cfg config.ERPConfig) (Adapter, error) {
	if !cfg.Configured() {
		return Noop{}, nil
	}
	db, err := gorm.Open(sqlserver.Open(BuildDSN(cfg)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open erp database: %w", err)
	}
	return NewGormAdapter(db), nil
}

// BuildDSN 生成 SQL Server 连接串
func BuildDSN(cfg config.ERPConfig) string {
	host := strings.TrimSpace(cfg.DBHost)
	if cfg.DBPort > 0 {
		host = host + ":" + strconv.Itoa(cfg.DBPort)
	}
	query := url.Values{}
	query.Set("database", strings.TrimSpace(cfg.DBName))
	query.Set("TrustServerCertificate", "true")
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(strings.TrimSpace(cfg.DBUser), cfg.DBPassword),
		Host:     host,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// Configured 是否可用
func (a *GormAdapter) Configured() bool {
	return a != nil && a.db != nil
}

var shipmentColumns = []string{"product_id", "model", "unit_number", "order_number", "export_country", "shipment_date"}

// GetProductsByIDs 按产品 ID 查询出货信息
func (a *GormAdapter) GetProductsByIDs(ctx context.Context, productIDs []string) ([]ShipmentProduct, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []ShipmentProduct{}, nil
	}
	var rows []ShipmentProduct
	err := a.db.WithContext(ctx).
		Select(shipmentColumns).
		Where("product_id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetProductsByShipment 查询某次出货的全部产品
func (a *GormAdapter) GetProductsByShipment(ctx context.Context, shipmentID string) ([]ShipmentProduct, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return []ShipmentProduct{}, nil
	}
	var rows []ShipmentProduct
	err := a.db.WithContext(ctx).
		Select(shipmentColumns).
		Where("shipment_id = ?", shipmentID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RecordInstallation 在同一事务内写入安装登记并回写出货产品
// 同一台设备同一安装日期的登记记录已存在时不再插入，任务重试不会产生重复记录。
func (a *GormAdapter) RecordInstallation(ctx context.Context, record Installation) error {
	if !a.Configured() {
		return ErrNotConfigured
	}
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := a.saveInstallation(tx, record); err != nil {
			return err
		}
		return a.updateProductInstallation(tx, record)
	})
}

func (a *GormAdapter) saveInstallation(tx *gorm.DB, record Installation) error {
	var existing int64
	err := tx.Model(&InstallationRecord{}).
		Where("model = ? AND unit_number = ? AND installation_date = ?", record.Model, record.UnitNumber, record.InstallationDate).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	row := InstallationRecord{
		Model:            record.Model,
		UnitNumber:       record.UnitNumber,
		InstallationDate: record.InstallationDate,
		DealerCode:       record.DealerCode,
		CarrierInfo:      record.CarrierInfo,
		Latitude:         record.Latitude,
		Longitude:        record.Longitude,
		RegisteredAt:     a.now(),
	}
	return tx.Create(&row).Error
}

func (a *GormAdapter) updateProductInstallation(tx *gorm.DB, record Installation) error {
	return tx.Model(&ShipmentProduct{}).
		Where("model = ? AND unit_number = ?", record.Model, record.UnitNumber).
		Updates(map[string]interface{}{
			"installation_date": record.InstallationDate,
			"dealer_code":       record.DealerCode,
			"updated_at":        a.now(),
		}).Error
}

// Close 关闭 ERP 数据库连接
func (a *GormAdapter) Close() error {
	if !a.Configured() {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
