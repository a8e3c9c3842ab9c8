package app

import (
	"errors"

	"github.com/equipment-registry/internal/config"
	"github.com/equipment-registry/internal/logger"
	"github.com/equipment-registry/internal/provider"
	"github.com/equipment-registry/internal/router"
	"github.com/equipment-registry/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)
	runner, err := buildRunner(cfg, mode, container)
	if err != nil {
		container.Close()
		return nil, err
	}
	runner.OnShutdown(container.Close)
	return runner, nil
}

func buildRunner(cfg *config.Config, mode string, container *provider.Container) (*Runner, error) {
	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine)
		services = append(services, httpService)
	}

	if mode == ModeAll || mode == ModeWorker {
		// 队列 Worker：all 模式下队列未启用时跳过
		if cfg.Queue.Enabled {
			consumer := worker.NewConsumer(container)
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		} else if mode == ModeWorker {
			return nil, errors.New("worker mode requires queue.enabled")
		}

		// ERP 出货信息补全
		enricher := worker.NewEnricher(container.EquipmentRepo, container.ERP, cfg.ERP.SyncBatch)
		if enricher.Enabled() {
			enrichService, err := worker.NewEnrichService(cfg.ERP, enricher)
			if err != nil {
				return nil, err
			}
			services = append(services, enrichService)
		} else {
			logger.Infow("erp_enrich_skipped", "reason", "erp not configured")
		}
	}

	// 如果没有服务被启动（例如模式错误或配置导致都没起），应该报错或至少打日志
	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}
	if _, err := ParseMode(opts.Mode); err != nil {
		return err
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
