package admin

import (
	"net/http"
	"strconv"

	"github.com/equipment-registry/internal/http/response"
	"github.com/equipment-registry/internal/http/templates"
	"github.com/equipment-registry/internal/i18n"

	"github.com/gin-gonic/gin"
)

// GetStats 按型号统计
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.ReportService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, stats)
}

// GetReport 报表 JSON，refresh=true 时跳过缓存
func (h *Handler) GetReport(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))
	report, err := h.ReportService.GetReport(c.Request.Context(), refresh)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, report)
}

// Dashboard 仪表盘页面
func (h *Handler) Dashboard(c *gin.Context) {
	locale := i18n.ResolveLocale(c)
	page := templates.Page{
		Locale: locale,
		T:      i18n.Messages(locale),
	}
	data, err := h.ReportService.Dashboard(c.Request.Context())
	if err != nil {
		requestLog(c).Errorw("dashboard_load_failed", "error", err)
		page.Message = i18n.T(locale, "error.internal")
		page.RequestID = response.RequestID(c)
		c.HTML(http.StatusInternalServerError, templates.PageError, page)
		return
	}
	page.Data = data
	c.HTML(http.StatusOK, templates.PageDashboard, page)
}
