package public

import (
	"net/http"

	handlershared "github.com/equipment-registry/internal/http/handlers/shared"
	"github.com/equipment-registry/internal/http/response"
	"github.com/equipment-registry/internal/http/templates"
	"github.com/equipment-registry/internal/i18n"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []handlershared.MappedError, fallbackCode int, fallbackKey string) {
	handlershared.RespondMappedError(c, err, rules, fallbackCode, fallbackKey)
}

// renderErrorPage 扫码页面出错时返回 HTML 错误页
func renderErrorPage(c *gin.Context, err error, rules []handlershared.MappedError) {
	code, key := http.StatusInternalServerError, "error.internal"
	if rule, ok := handlershared.MatchError(err, rules); ok {
		code, key = rule.Code, rule.Key
	} else if err != nil {
		handlershared.RequestLog(c).Errorw("page_render_error", "path", c.FullPath(), "error", err)
	}
	locale := i18n.ResolveLocale(c)
	c.HTML(code, templates.PageError, templates.Page{
		Locale:    locale,
		T:         i18n.Messages(locale),
		Message:   i18n.T(locale, key),
		RequestID: response.RequestID(c),
	})
}
