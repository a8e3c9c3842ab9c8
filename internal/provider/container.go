package provider

import (
	"github.com/equipment-registry/internal/cache"
	"github.com/equipment-registry/internal/config"
	"github.com/equipment-registry/internal/dealer"
	"github.com/equipment-registry/internal/erp"
	"github.com/equipment-registry/internal/geo"
	"github.com/equipment-registry/internal/logger"
	"github.com/equipment-registry/internal/models"
	"github.com/equipment-registry/internal/queue"
	"github.com/equipment-registry/internal/repository"
	"github.com/equipment-registry/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client

	// Collaborators
	Dealers *dealer.Directory
	Locator geo.Locator
	ERP     erp.Adapter

	// Repositories
	EquipmentRepo repository.EquipmentRepository

	// Services
	RegistrationService *service.RegistrationService
	EquipmentService    *service.EquipmentService
	ReportService       *service.ReportService
}

// NewContainer 初始化容器，使用全局数据库连接
func NewContainer(cfg *config.Config) *Container {
	return NewContainerWithDB(cfg, models.DB)
}

// NewContainerWithDB 使用指定数据库连接初始化容器
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) *Container {
	if cfg == nil {
		cfg = &config.Config{}
	}

	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
	}

	// 1. 外部协作方
	c.initCollaborators()

	// 2. 初始化 Repositories
	c.initRepositories()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initCollaborators() {
	dealers, err := dealer.Load()
	if err != nil {
		logger.Errorw("provider_load_dealers_failed", "error", err)
		dealers = dealer.NewDirectory(nil)
	}
	c.Dealers = dealers

	c.Locator = geo.NewLocator(c.Config.Geo)

	adapter, err := erp.Open(c.Config.ERP)
	if err != nil {
		logger.Warnw("provider_open_erp_failed", "error", err)
		adapter = erp.Noop{}
	}
	c.ERP = adapter
}

func (c *Container) initRepositories() {
	c.EquipmentRepo = repository.NewEquipmentRepository(c.DB)
}

func (c *Container) initServices() {
	c.RegistrationService = service.NewRegistrationService(c.Config, c.EquipmentRepo, c.Dealers, c.Locator, c.QueueClient)
	c.EquipmentService = service.NewEquipmentService(c.EquipmentRepo)
	c.ReportService = service.NewReportService(c.Config, c.EquipmentRepo)
}

// Close 释放连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
	if c.ERP != nil {
		if err := c.ERP.Close(); err != nil {
			logger.Warnw("provider_close_erp_failed", "error", err)
		}
	}
}
