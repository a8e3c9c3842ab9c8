package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/equipment-registry/internal/constants"
	"github.com/equipment-registry/internal/models"

	"gorm.io/gorm"
)

// EquipmentRepository 设备数据访问接口
type EquipmentRepository interface {
	GetByID(id uint) (*models.Equipment, error)
	FindByCode(code string) (*models.Equipment, error)
	FindByKeys(model, unitNumber string) (*models.Equipment, error)
	FindByNaturalKey(key string) (*models.Equipment, error)
	FindByToken(token string) (*models.Equipment, error)
	Create(equipment *models.Equipment) error
	Update(id uint, fields map[string]interface{}) error
	CommitInstallation(id uint, fields map[string]interface{}) (bool, error)
	List(filter EquipmentListFilter) ([]models.Equipment, int64, error)
	BulkFind(codes []string) ([]models.Equipment, []string, error)
	CountByModel() ([]ModelCount, error)
	ListReportRows() ([]ReportRow, error)
	ListMissingShipment(afterID uint, limit int) ([]models.Equipment, error)
	ListByCodes(codes []string) ([]models.Equipment, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormEquipmentRepository
}

// GormEquipmentRepository GORM 实现
type GormEquipmentRepository struct {
	db *gorm.DB
}

// NewEquipmentRepository 创建设备仓库
func NewEquipmentRepository(db *gorm.DB) *GormEquipmentRepository {
	return &GormEquipmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormEquipmentRepository) WithTx(tx *gorm.DB) *GormEquipmentRepository {
	if tx == nil {
		return r
	}
	return &GormEquipmentRepository{db: tx}
}

// Transaction 执行事务
func (r *GormEquipmentRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

func (r *GormEquipmentRepository) first(query *gorm.DB) (*models.Equipment, error) {
	var equipment models.Equipment
	if err := query.Order("id asc").First(&equipment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &equipment, nil
}

// GetByID 根据 ID 获取设备
func (r *GormEquipmentRepository) GetByID(id uint) (*models.Equipment, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(r.db.Where("id = ?", id))
}

// FindByCode 根据产品编码获取设备
func (r *GormEquipmentRepository) FindByCode(code string) (*models.Equipment, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	return r.first(r.db.Where("product_code = ?", code))
}

// FindByKeys 根据型号与机号获取设备
func (r *GormEquipmentRepository) FindByKeys(model, unitNumber string) (*models.Equipment, error) {
	model = strings.TrimSpace(model)
	unitNumber = strings.TrimSpace(unitNumber)
	if unitNumber == "" {
		return nil, nil
	}
	return r.first(r.db.Where("model = ? AND unit_number = ?", model, unitNumber))
}

// FindByNaturalKey 根据自然键获取设备
func (r *GormEquipmentRepository) FindByNaturalKey(key string) (*models.Equipment, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	return r.first(r.db.Where("natural_key = ?", key))
}

// FindByToken 根据访问令牌获取设备
func (r *GormEquipmentRepository) FindByToken(token string) (*models.Equipment, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return r.first(r.db.Where("access_token = ?", token))
}

// Create 创建设备
func (r *GormEquipmentRepository) Create(equipment *models.Equipment) error {
	return r.db.Create(equipment).Error
}

// Update 按 ID 更新字段
func (r *GormEquipmentRepository) Update(id uint, fields map[string]interface{}) error {
	if id == 0 || len(fields) == 0 {
		return nil
	}
	return r.db.Model(&models.Equipment{}).Where("id = ?", id).Updates(fields).Error
}

// CommitInstallation 仅当安装日期为空时写入登记信息，返回是否写入成功
func (r *GormEquipmentRepository) CommitInstallation(id uint, fields map[string]interface{}) (bool, error) {
	if id == 0 || len(fields) == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Equipment{}).
		Where("id = ? AND installation_date IS NULL", id).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// List 设备列表
func (r *GormEquipmentRepository) List(filter EquipmentListFilter) ([]models.Equipment, int64, error) {
	query := r.db.Model(&models.Equipment{})

	switch strings.ToLower(strings.TrimSpace(filter.Status)) {
	case constants.EquipmentStatusPending:
		query = query.Where("installation_date IS NULL")
	case constants.EquipmentStatusCompleted:
		query = query.Where("installation_date IS NOT NULL")
	}
	if filter.CreatedFrom != nil {
		from := startOfDay(*filter.CreatedFrom)
		query = query.Where("created_at >= ?", from)
	}
	if filter.CreatedTo != nil {
		// 截止日期包含当天全天
		to := startOfDay(*filter.CreatedTo).AddDate(0, 0, 1)
		query = query.Where("created_at < ?", to)
	}
	if model := strings.TrimSpace(filter.Model); model != "" {
		query = query.Where("model = ?", model)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		condition, argCount := buildLikeCondition(r.db, []string{"product_code", "unit_number", "customer", "order_number"})
		query = query.Where(condition, repeatLikeArgs(like, argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyLimitOffset(query, filter.Limit, filter.Offset)

	var rows []models.Equipment
	if err := query.Order("created_at desc").Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// BulkFind 批量按产品编码查询，未找到的编码按输入顺序返回
func (r *GormEquipmentRepository) BulkFind(codes []string) ([]models.Equipment, []string, error) {
	normalized := normalizeCodes(codes)
	if len(normalized) == 0 {
		return []models.Equipment{}, []string{}, nil
	}
	rows, err := r.ListByCodes(normalized)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		seen[row.ProductCode] = struct{}{}
	}
	notFound := make([]string, 0)
	for _, code := range normalized {
		if _, ok := seen[code]; !ok {
			notFound = append(notFound, code)
		}
	}
	return rows, notFound, nil
}

// ListByCodes 按产品编码列表查询
func (r *GormEquipmentRepository) ListByCodes(codes []string) ([]models.Equipment, error) {
	normalized := normalizeCodes(codes)
	if len(normalized) == 0 {
		return []models.Equipment{}, nil
	}
	var rows []models.Equipment
	if err := r.db.Where("product_code IN ?", normalized).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByModel 按型号统计总数与已安装数
func (r *GormEquipmentRepository) CountByModel() ([]ModelCount, error) {
	var rows []ModelCount
	err := r.db.Model(&models.Equipment{}).
		Select("model, COUNT(*) AS total, SUM(CASE WHEN installation_date IS NOT NULL THEN 1 ELSE 0 END) AS completed").
		Group("model").
		Order("model asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListReportRows 查询报表所需字段
func (r *GormEquipmentRepository) ListReportRows() ([]ReportRow, error) {
	var rows []ReportRow
	err := r.db.Model(&models.Equipment{}).
		Select("model, created_at, shipment_date, installation_date").
		Order("id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListMissingShipment 按 id 游标查询未安装且缺少出货信息的设备
func (r *GormEquipmentRepository) ListMissingShipment(afterID uint, limit int) ([]models.Equipment, error) {
	query := r.db.Where("installation_date IS NULL AND shipment_date IS NULL AND id > ?", afterID).Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Equipment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func normalizeCodes(codes []string) []string {
	result := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		result = append(result, code)
	}
	return result
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
