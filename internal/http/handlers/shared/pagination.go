package shared

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// QueryInt 读取整数查询参数，缺失或非法时返回 fallback。
func QueryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
