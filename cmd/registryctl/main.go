package main

import (
	"fmt"
	"os"

	"github.com/equipment-registry/internal/config"
	"github.com/equipment-registry/internal/logger"
	"github.com/equipment-registry/internal/models"
	"github.com/equipment-registry/internal/provider"

	"github.com/spf13/cobra"
)

var (
	cfg       *config.Config
	container *provider.Container
)

var rootCmd = &cobra.Command{
	Use:           "registryctl",
	Short:         "设备登记运维工具",
	Long:          `导入出货清单、导出设备台账、打印二维码标签以及手动触发 ERP 出货信息补全。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
		if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
			MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
			MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
			ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
			ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
		}); err != nil {
			return fmt.Errorf("数据库初始化失败: %w", err)
		}
		if err := models.AutoMigrate(); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
		container = provider.NewContainer(cfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		container.Close()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
