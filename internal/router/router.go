package router

import (
	"fmt"
	"strings"

	"github.com/equipment-registry/internal/cache"
	"github.com/equipment-registry/internal/config"
	adminhandlers "github.com/equipment-registry/internal/http/handlers/admin"
	publichandlers "github.com/equipment-registry/internal/http/handlers/public"
	"github.com/equipment-registry/internal/http/response"
	"github.com/equipment-registry/internal/http/templates"
	"github.com/equipment-registry/internal/i18n"
	"github.com/equipment-registry/internal/logger"
	"github.com/equipment-registry/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()
	r.HTMLRender = templates.MustRenderer()

	// 初始化 Handler（现场扫码 / 后台查询）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "eqr"
	}
	redisClient := cache.Client()
	scanRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:scan", redisPrefix),
		WindowSeconds: cfg.Security.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RateLimit.MaxRequests,
	}
	commitRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:commit", redisPrefix),
		WindowSeconds: cfg.Security.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(SecurityHeadersMiddleware())

	api := r.Group("/api")
	{
		api.POST("/scan_qr", RateLimitMiddleware(redisClient, scanRule, KeyByIP), publicHandler.ScanQR)

		// export 必须先于 :code 注册
		api.GET("/equipment/export", adminHandler.ExportEquipment)
		api.GET("/equipment/:code", adminHandler.GetEquipment)
		api.GET("/equipment", adminHandler.ListEquipment)
		api.POST("/equipment/bulk", adminHandler.BulkEquipment)
		api.GET("/stats", adminHandler.GetStats)
		api.GET("/report", adminHandler.GetReport)
		api.POST("/labels", adminHandler.PrintLabels)
	}

	// 扫码页面与表单提交
	r.GET("/scan/:token", publicHandler.ScanPage)
	r.POST("/update_installation_date", RateLimitMiddleware(redisClient, commitRule, KeyByIPAndFormField("equipment_id")), publicHandler.UpdateInstallationDate)
	r.POST("/generate_qr", publicHandler.GenerateQR)
	r.GET("/dashboard", adminHandler.Dashboard)

	// 健康检查
	r.GET("/health", publicHandler.Health)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, i18n.T(i18n.ResolveLocale(c), "error.not_found"))
	})

	return r
}
