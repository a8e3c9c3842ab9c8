package public

import (
	"net/http"
	"strings"

	handlershared "github.com/equipment-registry/internal/http/handlers/shared"
	"github.com/equipment-registry/internal/http/response"
	"github.com/equipment-registry/internal/http/templates"
	"github.com/equipment-registry/internal/i18n"
	"github.com/equipment-registry/internal/service"

	"github.com/gin-gonic/gin"
)

// ScanQRRequest 扫码入库请求
type ScanQRRequest struct {
	QRData string `json:"qr_data"`
}

// ScanQR 解析二维码内容并首次入库
func (h *Handler) ScanQR(c *gin.Context) {
	var req ScanQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.qr_data_empty", nil)
		return
	}
	result, err := h.RegistrationService.ScanQR(c.Request.Context(), req.QRData)
	if err != nil {
		respondScanQRError(c, err)
		return
	}
	response.Success(c, result)
}

// ScanPage 扫码落地页：未安装显示登记表单，已安装显示正品验证
func (h *Handler) ScanPage(c *gin.Context) {
	view, err := h.RegistrationService.ResolveView(c.Request.Context(), service.ViewInput{
		Token:          strings.TrimSpace(c.Param("token")),
		AcceptLanguage: c.GetHeader("Accept-Language"),
		Lang:           c.Query("lang"),
	})
	if err != nil {
		renderErrorPage(c, err, scanPageErrorRules)
		return
	}
	page := templates.Page{
		Locale:     view.Locale,
		T:          view.Messages,
		Equipment:  view.Equipment,
		DealerName: view.DealerName,
		DealerJSON: view.DealerJSON,
		Today:      view.Today,
	}
	if view.Kind == service.ViewKindVerification {
		c.HTML(http.StatusOK, templates.PageVerification, page)
		return
	}
	c.HTML(http.StatusOK, templates.PageScan, page)
}

// UpdateInstallationDate 登记表单提交
func (h *Handler) UpdateInstallationDate(c *gin.Context) {
	_, err := h.RegistrationService.CommitInstallation(c.Request.Context(), service.CommitInput{
		EquipmentID:      c.PostForm("equipment_id"),
		InstallationDate: c.PostForm("installation_date"),
		CarrierInfo:      c.PostForm("carrier_info"),
		DealerCode:       c.PostForm("dealer_code"),
		Latitude:         c.PostForm("latitude"),
		Longitude:        c.PostForm("longitude"),
		ClientIP:         c.ClientIP(),
	})
	if err != nil {
		respondCommitError(c, err)
		return
	}
	response.Message(c, i18n.T(i18n.ResolveLocale(c), "message.installation_registered"))
}

// GenerateQR 签发或刷新设备二维码
func (h *Handler) GenerateQR(c *gin.Context) {
	var req service.IssueInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.RegistrationService.IssueQR(c.Request.Context(), req, handlershared.RequestBaseURL(c))
	if err != nil {
		respondIssueError(c, err)
		return
	}
	response.Success(c, result)
}
