package admin

import (
	"fmt"
	"time"

	handlershared "github.com/equipment-registry/internal/http/handlers/shared"
	"github.com/equipment-registry/internal/http/response"
	"github.com/equipment-registry/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// ProductCodesRequest 批量产品编码请求
type ProductCodesRequest struct {
	ProductCodes []string `json:"product_codes"`
}

func parseListQuery(c *gin.Context) service.ListQuery {
	return service.ListQuery{
		Status:   c.Query("status"),
		FromDate: c.Query("from_date"),
		ToDate:   c.Query("to_date"),
		Model:    c.Query("model"),
		Search:   c.Query("search"),
		Limit:    handlershared.QueryInt(c, "limit", 0),
		Offset:   handlershared.QueryInt(c, "offset", 0),
	}
}

// GetEquipment 按产品编码查询单台设备
func (h *Handler) GetEquipment(c *gin.Context) {
	equipment, err := h.EquipmentService.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondQueryError(c, err, "error.internal")
		return
	}
	response.Success(c, equipment)
}

// ListEquipment 设备列表
func (h *Handler) ListEquipment(c *gin.Context) {
	result, err := h.EquipmentService.List(c.Request.Context(), parseListQuery(c))
	if err != nil {
		respondQueryError(c, err, "error.internal")
		return
	}
	response.Success(c, result)
}

// BulkEquipment 批量查询设备
func (h *Handler) BulkEquipment(c *gin.Context) {
	var req ProductCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bulk_codes_required", nil)
		return
	}
	result, err := h.EquipmentService.Bulk(c.Request.Context(), req.ProductCodes)
	if err != nil {
		respondQueryError(c, err, "error.internal")
		return
	}
	response.Success(c, result)
}

// ExportEquipment 按列表条件导出 xlsx
func (h *Handler) ExportEquipment(c *gin.Context) {
	rows, err := h.EquipmentService.Export(c.Request.Context(), parseListQuery(c))
	if err != nil {
		respondQueryError(c, err, "error.export_failed")
		return
	}
	data, err := service.ExportEquipmentXLSX(rows)
	if err != nil {
		respondError(c, response.CodeInternal, "error.export_failed", err)
		return
	}
	requestLog(c).Infow("equipment_exported", "rows", len(rows))
	filename := fmt.Sprintf("equipment_%s.xlsx", time.Now().Format("20060102_150405"))
	response.Attachment(c, filename, contentTypeXLSX, data)
}

// PrintLabels 生成带二维码的标签页 PDF
func (h *Handler) PrintLabels(c *gin.Context) {
	var req ProductCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bulk_codes_required", nil)
		return
	}
	rows, err := h.EquipmentService.ListByCodes(c.Request.Context(), req.ProductCodes)
	if err != nil {
		respondQueryError(c, err, "error.label_failed")
		return
	}
	if len(rows) == 0 {
		respondError(c, response.CodeNotFound, "error.equipment_not_found", nil)
		return
	}
	baseURL := handlershared.RequestBaseURL(c)
	labels := service.LabelsForEquipment(rows, func(token string) string {
		return h.RegistrationService.ScanURL(baseURL, token)
	})
	data, err := service.BuildLabelSheet(labels, service.DefaultLabelLayout())
	if err != nil {
		respondError(c, response.CodeInternal, "error.label_failed", err)
		return
	}
	response.Attachment(c, "labels.pdf", contentTypePDF, data)
}
