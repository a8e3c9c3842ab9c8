package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/equipment-registry/internal/constants"
	"github.com/equipment-registry/internal/logger"
	"github.com/equipment-registry/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Equipment"

var exportHeaders = []interface{}{
	"ID", "Product Code", "Product Name", "Model", "Unit Number", "Customer",
	"Order Number", "Export Country", "Shipment Date", "Created At",
	"Installation Date", "Dealer Code", "Carrier Info", "Latitude", "Longitude",
	"Location Source", "Registered At",
}

// ExportEquipmentXLSX 导出设备列表为 xlsx
func ExportEquipmentXLSX(rows []models.Equipment) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheetName); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheetName, "A1", &exportHeaders); err != nil {
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
		_ = f.SetCellStyle(exportSheetName, "A1", lastCol+"1", style)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			row.ID,
			row.ProductCode,
			row.ProductName,
			row.Model,
			row.UnitNumber,
			row.Customer,
			row.OrderNumber,
			row.ExportCountry,
			formatDatePtr(row.ShipmentDate),
			row.CreatedAt.UTC().Format(time.RFC3339),
			formatDatePtr(row.InstallationDate),
			row.DealerCode,
			row.CarrierInfo,
			formatFloatPtr(row.RegistrationLatitude),
			formatFloatPtr(row.RegistrationLongitude),
			row.LocationSource,
			formatTimestampPtr(row.RegistrationTimestamp),
		}
		if err := f.SetSheetRow(exportSheetName, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(constants.DateLayout)
}

func formatTimestampPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// 表头别名（英文列名与 ERP 导出的韩文列名）
var importHeaderAliases = map[string]string{
	"product_code":   "product_code",
	"product code":   "product_code",
	"제품코드":           "product_code",
	"product_name":   "product_name",
	"product name":   "product_name",
	"제품명":            "product_name",
	"model":          "model",
	"product_group":  "model",
	"product group":  "model",
	"기종":             "model",
	"제품그룹명":          "model",
	"unit_number":    "unit_number",
	"unit number":    "unit_number",
	"호기":             "unit_number",
	"customer":       "customer",
	"거래처":            "customer",
	"order_number":   "order_number",
	"order number":   "order_number",
	"수주번호":           "order_number",
	"export_country": "export_country",
	"export country": "export_country",
	"수출국":            "export_country",
	"shipment_date":  "shipment_date",
	"shipment date":  "shipment_date",
	"출하일":            "shipment_date",
}

// ParseShipmentSheet 读取出货清单，自动识别表头所在行
func ParseShipmentSheet(r io.Reader) ([]IngestInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, err
		}
		for rIdx, row := range rows {
			columns := matchImportHeaders(row)
			if _, ok := columns["unit_number"]; !ok {
				continue
			}
			if _, ok := columns["product_code"]; !ok {
				if _, hasModel := columns["model"]; !hasModel {
					continue
				}
			}
			return parseShipmentRows(rows[rIdx+1:], columns, rIdx+2)
		}
	}
	return nil, fmt.Errorf("%w: header row with unit number not found", ErrValidation)
}

func matchImportHeaders(row []string) map[string]int {
	columns := make(map[string]int)
	for cIdx, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		if field, ok := importHeaderAliases[name]; ok {
			if _, seen := columns[field]; !seen {
				columns[field] = cIdx
			}
		}
	}
	return columns
}

func parseShipmentRows(rows [][]string, columns map[string]int, firstLine int) ([]IngestInput, error) {
	get := func(row []string, field string) string {
		idx, ok := columns[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	items := make([]IngestInput, 0, len(rows))
	for i, row := range rows {
		item := IngestInput{
			ProductCode:   get(row, "product_code"),
			ProductName:   get(row, "product_name"),
			Model:         get(row, "model"),
			UnitNumber:    get(row, "unit_number"),
			Customer:      get(row, "customer"),
			OrderNumber:   get(row, "order_number"),
			ExportCountry: get(row, "export_country"),
		}
		if item.ProductCode == "" && item.UnitNumber == "" {
			continue
		}
		if raw := get(row, "shipment_date"); raw != "" {
			shipped, err := parseSheetDate(raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", firstLine+i, err)
			}
			item.ShipmentDate = &shipped
		}
		items = append(items, item)
	}
	return items, nil
}

// parseSheetDate 兼容文本日期与 Excel 日期序列号
func parseSheetDate(raw string) (time.Time, error) {
	if parsed, err := ParseFlexibleDate(raw); err == nil {
		return parsed, nil
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, ErrDateInvalid
	}
	parsed, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, ErrDateInvalid
	}
	return dateOnly(parsed), nil
}

// ImportSummary 导入统计
type ImportSummary struct {
	Created  int      `json:"created"`
	Existing int      `json:"existing"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportShipments 批量入库出货清单，已存在的设备保持不变
func (s *RegistrationService) ImportShipments(ctx context.Context, items []IngestInput) ImportSummary {
	summary := ImportSummary{}
	for i, item := range items {
		result, err := s.Ingest(ctx, item)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d (%s): %v", i+1, item.ProductCode, err))
			continue
		}
		if result.Status == constants.IngestStatusCreated {
			summary.Created++
		} else {
			summary.Existing++
		}
	}
	logger.Infow("shipment_import_finished",
		"created", summary.Created,
		"existing", summary.Existing,
		"failed", summary.Failed,
	)
	return summary
}
