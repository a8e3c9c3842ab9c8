package public

import "github.com/equipment-registry/internal/provider"

// Handler 现场扫码接口处理器入口
// 说明：该处理器用于扫码入库、扫码页面、安装登记与二维码签发。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
