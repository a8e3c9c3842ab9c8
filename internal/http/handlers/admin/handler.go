package admin

import "github.com/equipment-registry/internal/provider"

// Handler 后台查询接口处理器入口
// 说明：设备查询、统计报表、导出与标签打印，供 ERP 与内部人员使用。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
