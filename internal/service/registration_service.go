package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/equipment-registry/internal/cache"
	"github.com/equipment-registry/internal/config"
	"github.com/equipment-registry/internal/constants"
	"github.com/equipment-registry/internal/dealer"
	"github.com/equipment-registry/internal/geo"
	"github.com/equipment-registry/internal/i18n"
	"github.com/equipment-registry/internal/logger"
	"github.com/equipment-registry/internal/models"
	"github.com/equipment-registry/internal/queue"
	"github.com/equipment-registry/internal/repository"
)

const (
	naturalKeyCodePrefix = "code:"
	naturalKeyUnitPrefix = "unit:"
	geoLookupTimeout     = 5 * time.Second
)

// 扫码页面类型
const (
	ViewKindForm         = "form"
	ViewKindVerification = "verification"
)

// RegistrationService 设备登记流程
// 说明：负责二维码解析、首次入库、安装登记与扫码页面数据准备，自身不保存状态。
type RegistrationService struct {
	cfg      config.RegistrationConfig
	baseURL  string
	repo     repository.EquipmentRepository
	dealers  *dealer.Directory
	resolver *i18n.Resolver
	locator  geo.Locator
	queue    *queue.Client
	now      func() time.Time
	newToken func() (string, error)
}

// NewRegistrationService 创建登记服务
func NewRegistrationService(
	cfg *config.Config,
	repo repository.EquipmentRepository,
	dealers *dealer.Directory,
	locator geo.Locator,
	queueClient *queue.Client,
) *RegistrationService {
	registration := config.RegistrationConfig{}.Normalize()
	baseURL := ""
	if cfg != nil {
		registration = cfg.Registration.Normalize()
		baseURL = cfg.Server.BaseURL
	}
	if locator == nil {
		locator = geo.Noop{}
	}
	if dealers == nil {
		dealers = dealer.NewDirectory(nil)
	}
	return &RegistrationService{
		cfg:      registration,
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		repo:     repo,
		dealers:  dealers,
		resolver: i18n.NewResolver(registration.CountryLocale),
		locator:  locator,
		queue:    queueClient,
		now:      time.Now,
		newToken: GenerateAccessToken,
	}
}

// QRPayload 二维码内容：产品编码?产品名称?产品组?机号[?客户]
type QRPayload struct {
	ProductCode  string
	ProductName  string
	ProductGroup string
	UnitNumber   string
	Customer     string
}

// ParseQRPayload 解析 ERP 生成的二维码文本
func ParseQRPayload(raw string) (*QRPayload, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrQRDataEmpty
	}
	parts := strings.Split(raw, "?")
	if len(parts) < 4 || len(parts) > 5 {
		return nil, ErrQRFormatInvalid
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	payload := &QRPayload{
		ProductCode:  parts[0],
		ProductName:  parts[1],
		ProductGroup: parts[2],
		UnitNumber:   parts[3],
	}
	if len(parts) == 5 {
		payload.Customer = parts[4]
	}
	if payload.ProductCode == "" || payload.UnitNumber == "" {
		return nil, ErrQRRequiredField
	}
	return payload, nil
}

// IngestInput 首次入库输入
type IngestInput struct {
	ProductCode   string
	ProductName   string
	Model         string
	UnitNumber    string
	Customer      string
	OrderNumber   string
	ExportCountry string
	ShipmentDate  *time.Time
}

func (in IngestInput) normalized() IngestInput {
	in.ProductCode = strings.TrimSpace(in.ProductCode)
	in.ProductName = strings.TrimSpace(in.ProductName)
	in.Model = strings.TrimSpace(in.Model)
	in.UnitNumber = strings.TrimSpace(in.UnitNumber)
	in.Customer = strings.TrimSpace(in.Customer)
	in.OrderNumber = strings.TrimSpace(in.OrderNumber)
	in.ExportCountry = strings.TrimSpace(in.ExportCountry)
	return in
}

// IngestResult 入库结果
type IngestResult struct {
	Status           string
	AccessToken      string
	AlreadyInstalled bool
	Equipment        *models.Equipment
}

// ScanQRResult 扫码入库接口响应
type ScanQRResult struct {
	Status           string `json:"status"`
	ProductGroup     string `json:"product_group"`
	UnitNumber       string `json:"unit_number"`
	AccessToken      string `json:"access_token"`
	AlreadyInstalled *bool  `json:"already_installed,omitempty"`
}

// NaturalKey 按部署配置生成自然键，缺少关键字段时返回空串
func (s *RegistrationService) NaturalKey(productCode, model, unitNumber string) string {
	productCode = strings.TrimSpace(productCode)
	model = strings.TrimSpace(model)
	unitNumber = strings.TrimSpace(unitNumber)
	if s.cfg.NaturalKey == config.NaturalKeyModelUnit {
		if unitNumber == "" {
			return ""
		}
		return naturalKeyUnitPrefix + model + "|" + unitNumber
	}
	if productCode == "" {
		return ""
	}
	return naturalKeyCodePrefix + productCode
}

// ScanQR 解析二维码并入库
func (s *RegistrationService) ScanQR(ctx context.Context, raw string) (*ScanQRResult, error) {
	payload, err := ParseQRPayload(raw)
	if err != nil {
		return nil, err
	}
	result, err := s.Ingest(ctx, IngestInput{
		ProductCode: payload.ProductCode,
		ProductName: payload.ProductName,
		Model:       payload.ProductGroup,
		UnitNumber:  payload.UnitNumber,
		Customer:    payload.Customer,
	})
	if err != nil {
		return nil, err
	}
	resp := &ScanQRResult{
		Status:       result.Status,
		ProductGroup: payload.ProductGroup,
		UnitNumber:   payload.UnitNumber,
		AccessToken:  result.AccessToken,
	}
	if result.Status == constants.IngestStatusExists {
		installed := result.AlreadyInstalled
		resp.AlreadyInstalled = &installed
	}
	return resp, nil
}

// Ingest 首次见到设备时入库，已存在则原样返回（幂等）
func (s *RegistrationService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	input = input.normalized()
	key := s.NaturalKey(input.ProductCode, input.Model, input.UnitNumber)
	if key == "" {
		return nil, ErrRequiredMissing
	}

	existing, err := s.repo.FindByNaturalKey(key)
	if err != nil {
		return nil, upstreamError("find equipment", err)
	}
	if existing != nil {
		return existingResult(existing), nil
	}

	token, err := s.newToken()
	if err != nil {
		return nil, err
	}
	equipment := &models.Equipment{
		AccessToken: token,
		NaturalKey:  key,
		ProductCode: input.ProductCode,
		ProductName: input.ProductName,
		Model:       input.Model,
		UnitNumber:  input.UnitNumber,
		Customer:    input.Customer,
	}
	s.applyShipmentFields(equipment, input)

	if err := s.repo.Create(equipment); err != nil {
		// 并发插入命中唯一索引时回读已存在的记录
		again, findErr := s.repo.FindByNaturalKey(key)
		if findErr == nil && again != nil {
			logger.Infow("equipment_ingest_race_resolved", "natural_key", key, "equipment_id", again.ID)
			return existingResult(again), nil
		}
		return nil, upstreamError("create equipment", err)
	}

	s.invalidateReport(ctx)
	logger.Infow("equipment_ingested",
		"equipment_id", equipment.ID,
		"natural_key", key,
	)
	return &IngestResult{
		Status:      constants.IngestStatusCreated,
		AccessToken: token,
		Equipment:   equipment,
	}, nil
}

func existingResult(equipment *models.Equipment) *IngestResult {
	return &IngestResult{
		Status:           constants.IngestStatusExists,
		AccessToken:      equipment.AccessToken,
		AlreadyInstalled: equipment.Installed(),
		Equipment:        equipment,
	}
}

func (s *RegistrationService) applyShipmentFields(equipment *models.Equipment, input IngestInput) {
	if s.cfg.UseOrderNumber {
		equipment.OrderNumber = input.OrderNumber
	}
	if s.cfg.UseExportCountry {
		equipment.ExportCountry = input.ExportCountry
	}
	if s.cfg.UseShipmentDate && input.ShipmentDate != nil {
		shipped := *input.ShipmentDate
		equipment.ShipmentDate = &shipped
	}
}

// CommitInput 安装登记表单
type CommitInput struct {
	EquipmentID      string
	InstallationDate string
	CarrierInfo      string
	DealerCode       string
	Latitude         string
	Longitude        string
	ClientIP         string
}

// CommitInstallation 登记安装信息，每台设备只能登记一次
func (s *RegistrationService) CommitInstallation(ctx context.Context, input CommitInput) (*models.Equipment, error) {
	rawID := strings.TrimSpace(input.EquipmentID)
	rawDate := strings.TrimSpace(input.InstallationDate)
	dealerCode := strings.TrimSpace(input.DealerCode)
	if rawID == "" || rawDate == "" {
		return nil, ErrRequiredMissing
	}
	if dealerCode == "" {
		return nil, ErrDealerRequired
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return nil, ErrEquipmentIDInvalid
	}
	installedOn, err := ParseFlexibleDate(rawDate)
	if err != nil {
		return nil, ErrInstallationDateInvalid
	}

	current, err := s.repo.GetByID(uint(id))
	if err != nil {
		return nil, upstreamError("get equipment", err)
	}
	if current == nil {
		return nil, ErrEquipmentNotFound
	}
	if current.Installed() {
		return nil, ErrAlreadyRegistered
	}

	now := s.now().UTC()
	fields := map[string]interface{}{
		"installation_date":      installedOn,
		"carrier_info":           strings.TrimSpace(input.CarrierInfo),
		"dealer_code":            dealerCode,
		"registration_timestamp": now,
		"updated_at":             now,
	}
	if lat, lon, ok := parseCoordinates(input.Latitude, input.Longitude); ok {
		fields["registration_latitude"] = lat
		fields["registration_longitude"] = lon
		fields["location_source"] = models.LocationSourceGPS
	} else if s.cfg.IPFallback {
		s.applyIPLocation(ctx, input.ClientIP, fields)
	}

	committed, err := s.repo.CommitInstallation(current.ID, fields)
	if err != nil {
		return nil, upstreamError("commit installation", err)
	}
	if !committed {
		logger.Warnw("installation_commit_conflict", "equipment_id", current.ID)
		return nil, ErrAlreadyRegistered
	}

	updated, err := s.repo.GetByID(current.ID)
	if err != nil || updated == nil {
		updated = current
	}

	if err := s.queue.EnqueueInstallationSync(queue.InstallationSyncPayload{EquipmentID: current.ID}); err != nil {
		logger.Warnw("installation_sync_enqueue_failed", "equipment_id", current.ID, "error", err)
	}
	s.invalidateReport(ctx)
	logger.Infow("installation_committed",
		"equipment_id", current.ID,
		"dealer_code", dealerCode,
		"installation_date", installedOn.Format(constants.DateLayout),
		"location_source", fields["location_source"],
	)
	return updated, nil
}

func (s *RegistrationService) applyIPLocation(ctx context.Context, clientIP string, fields map[string]interface{}) {
	if s.locator == nil || !geo.Routable(clientIP) {
		return
	}
	lookupCtx, cancel := context.WithTimeout(ctx, geoLookupTimeout)
	defer cancel()
	loc, err := s.locator.Locate(lookupCtx, clientIP)
	if err != nil {
		if !errors.Is(err, geo.ErrAddressSkipped) {
			logger.Warnw("geo_lookup_failed", "ip", clientIP, "error", err)
		}
		return
	}
	if loc == nil {
		return
	}
	fields["registration_latitude"] = loc.Latitude
	fields["registration_longitude"] = loc.Longitude
	fields["registration_city"] = loc.City
	fields["registration_country"] = loc.Country
	fields["location_source"] = models.LocationSourceIP
}

// parseCoordinates 两个坐标都合法时才返回
func parseCoordinates(rawLat, rawLon string) (float64, float64, bool) {
	rawLat = strings.TrimSpace(rawLat)
	rawLon = strings.TrimSpace(rawLon)
	if rawLat == "" || rawLon == "" {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return 0, 0, false
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// ViewInput 扫码页面请求
type ViewInput struct {
	Token          string
	AcceptLanguage string
	Lang           string // 显式指定语言，优先级最高
}

// ScanView 扫码页面数据
type ScanView struct {
	Kind       string
	Equipment  *models.Equipment
	Locale     string
	Messages   map[string]string
	DealerName string
	Today      string
	DealerJSON string
}

// ResolveView 根据令牌决定展示登记表单还是正品验证页
func (s *RegistrationService) ResolveView(ctx context.Context, input ViewInput) (*ScanView, error) {
	equipment, err := s.repo.FindByToken(input.Token)
	if err != nil {
		return nil, upstreamError("find equipment by token", err)
	}
	if equipment == nil {
		return nil, ErrEquipmentNotFound
	}

	locale := s.ResolveLocale(equipment.ExportCountry, input.Lang, input.AcceptLanguage)
	view := &ScanView{
		Equipment: equipment,
		Locale:    locale,
		Messages:  i18n.Messages(locale),
	}
	if equipment.Installed() {
		view.Kind = ViewKindVerification
		view.DealerName = s.dealers.Name(equipment.DealerCode)
		return view, nil
	}
	view.Kind = ViewKindForm
	view.Today = s.now().Format(constants.DateLayout)
	view.DealerJSON = s.dealers.JSON()
	return view, nil
}

// ResolveLocale 显式语言 > 出口国家 > Accept-Language > en
func (s *RegistrationService) ResolveLocale(country, lang, acceptLanguage string) string {
	if lang = strings.ToLower(strings.TrimSpace(lang)); i18n.IsSupported(lang) {
		return lang
	}
	return s.resolver.ResolveHeader(country, acceptLanguage)
}

// IssueInput 生成二维码输入
type IssueInput struct {
	ProductCode   string `json:"product_code"`
	ProductName   string `json:"product_name"`
	Model         string `json:"model"`
	UnitNumber    string `json:"unit_number"`
	Customer      string `json:"customer"`
	OrderNumber   string `json:"order_number"`
	ExportCountry string `json:"export_country"`
	ShipmentDate  string `json:"shipment_date"`
}

// IssueResult 生成二维码结果
type IssueResult struct {
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
	ScanURL     string `json:"scan_url"`
	QRImage     string `json:"qr_image"`
}

// IssueQR 按自然键新建或刷新设备并生成扫码二维码，令牌一经签发不再更换
func (s *RegistrationService) IssueQR(ctx context.Context, input IssueInput, requestBaseURL string) (*IssueResult, error) {
	ingest := IngestInput{
		ProductCode:   input.ProductCode,
		ProductName:   input.ProductName,
		Model:         input.Model,
		UnitNumber:    input.UnitNumber,
		Customer:      input.Customer,
		OrderNumber:   input.OrderNumber,
		ExportCountry: input.ExportCountry,
	}.normalized()
	if s.cfg.NaturalKey == config.NaturalKeyModelUnit && (ingest.Model == "" || ingest.UnitNumber == "") {
		return nil, ErrIssueFieldsRequired
	}
	if s.NaturalKey(ingest.ProductCode, ingest.Model, ingest.UnitNumber) == "" {
		return nil, ErrIssueFieldsRequired
	}
	if raw := strings.TrimSpace(input.ShipmentDate); raw != "" {
		shipped, err := ParseFlexibleDate(raw)
		if err != nil {
			return nil, ErrDateInvalid
		}
		ingest.ShipmentDate = &shipped
	}

	result, err := s.Ingest(ctx, ingest)
	if err != nil {
		return nil, err
	}
	status := result.Status
	if status == constants.IngestStatusExists && !result.AlreadyInstalled {
		if err := s.refreshShipment(ctx, result.Equipment, ingest); err != nil {
			return nil, err
		}
		status = constants.IssueStatusUpdated
	}
	if status == constants.IngestStatusCreated {
		now := s.now().UTC()
		if err := s.repo.Update(result.Equipment.ID, map[string]interface{}{"qr_registered_date": now}); err != nil {
			return nil, upstreamError("mark qr registered", err)
		}
	}

	scanURL := BuildScanURL(s.baseURLOr(requestBaseURL), result.AccessToken)
	image, err := RenderQRBase64(scanURL)
	if err != nil {
		return nil, upstreamError("render qr", err)
	}
	logger.Infow("qr_issued", "equipment_id", result.Equipment.ID, "status", status)
	return &IssueResult{
		Status:      status,
		AccessToken: result.AccessToken,
		ScanURL:     scanURL,
		QRImage:     image,
	}, nil
}

func (s *RegistrationService) refreshShipment(ctx context.Context, equipment *models.Equipment, input IngestInput) error {
	fields := map[string]interface{}{
		"qr_registered_date": s.now().UTC(),
		"updated_at":         s.now().UTC(),
	}
	if input.ProductName != "" {
		fields["product_name"] = input.ProductName
	}
	if input.Customer != "" {
		fields["customer"] = input.Customer
	}
	if s.cfg.UseOrderNumber && input.OrderNumber != "" {
		fields["order_number"] = input.OrderNumber
	}
	if s.cfg.UseExportCountry && input.ExportCountry != "" {
		fields["export_country"] = input.ExportCountry
	}
	if s.cfg.UseShipmentDate && input.ShipmentDate != nil {
		fields["shipment_date"] = *input.ShipmentDate
	}
	if err := s.repo.Update(equipment.ID, fields); err != nil {
		return upstreamError("refresh shipment", err)
	}
	s.invalidateReport(ctx)
	return nil
}

func (s *RegistrationService) baseURLOr(requestBaseURL string) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	return strings.TrimRight(strings.TrimSpace(requestBaseURL), "/")
}

// BuildScanURL 生成扫码地址
func BuildScanURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/scan/" + token
}

// ScanURL 按配置的站点地址生成扫码地址
func (s *RegistrationService) ScanURL(requestBaseURL, token string) string {
	return BuildScanURL(s.baseURLOr(requestBaseURL), token)
}

func (s *RegistrationService) invalidateReport(ctx context.Context) {
	if err := cache.InvalidateReport(ctx); err != nil {
		logger.Warnw("report_cache_invalidate_failed", "error", err)
	}
}
