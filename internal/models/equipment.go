package models

import (
	"time"
)

// 定位来源
const (
	LocationSourceGPS = "gps"
	LocationSourceIP  = "ip"
)

// Equipment 设备（一台带二维码的整机）
type Equipment struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	AccessToken string `gorm:"type:varchar(64);uniqueIndex;not null" json:"access_token"`
	NaturalKey  string `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`

	ProductCode   string `gorm:"type:varchar(100);index" json:"product_code"`
	ProductName   string `gorm:"type:varchar(255)" json:"product_name"`
	Model         string `gorm:"type:varchar(100);index" json:"model"`
	UnitNumber    string `gorm:"type:varchar(100)" json:"unit_number"`
	OrderNumber   string `gorm:"type:varchar(100)" json:"order_number"`
	Customer      string `gorm:"type:varchar(255)" json:"customer"`
	ExportCountry string `gorm:"type:varchar(100)" json:"export_country"`

	ShipmentDate     *time.Time `json:"shipment_date"`
	QRRegisteredDate *time.Time `json:"qr_registered_date"`

	InstallationDate      *time.Time `gorm:"index" json:"installation_date"`
	CarrierInfo           string     `gorm:"type:varchar(255)" json:"carrier_info"`
	DealerCode            string     `gorm:"type:varchar(64)" json:"dealer_code"`
	RegistrationLatitude  *float64   `json:"registration_latitude"`
	RegistrationLongitude *float64   `json:"registration_longitude"`
	RegistrationTimestamp *time.Time `json:"registration_timestamp"`
	LocationSource        string     `gorm:"type:varchar(16)" json:"location_source,omitempty"`
	RegistrationCity      string     `gorm:"type:varchar(128)" json:"registration_city,omitempty"`
	RegistrationCountry   string     `gorm:"type:varchar(128)" json:"registration_country,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Equipment) TableName() string {
	return "equipment"
}

// Installed 是否已登记安装
func (e *Equipment) Installed() bool {
	return e != nil && e.InstallationDate != nil
}

// HasLocation 是否记录了坐标
func (e *Equipment) HasLocation() bool {
	return e != nil && e.RegistrationLatitude != nil && e.RegistrationLongitude != nil
}
