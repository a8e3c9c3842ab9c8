package shared

import (
	"errors"

	"github.com/equipment-registry/internal/http/response"
	"github.com/equipment-registry/internal/i18n"
	"github.com/equipment-registry/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := response.RequestID(c); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	locale := i18n.ResolveLocale(c)
	appErr := response.Localized(code, key, i18n.T(locale, key), err)
	if err != nil {
		RequestLog(c).Errorw("handler_error", appErr.LogFields()...)
	}
	appErr.Write(c)
}

// RespondMappedError 按规则匹配业务错误，未命中时使用兜底响应并记录原始错误。
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	if rule, ok := MatchError(err, rules); ok {
		RespondError(c, rule.Code, rule.Key, nil)
		return
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// MatchError 查找第一条匹配的规则
func MatchError(err error, rules []MappedError) (MappedError, bool) {
	if err == nil {
		return MappedError{}, false
	}
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			return rule, true
		}
	}
	return MappedError{}, false
}

// ConcatMappedErrors 合并多组规则，靠前的优先
func ConcatMappedErrors(groups ...[]MappedError) []MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}
