package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// LocaleEN 默认语言
const LocaleEN = "en"

// 支持的语言，顺序即协商优先级，英文必须在首位
var supportedLocales = []string{
	"en", "ko", "ja", "zh", "id", "es",
	"vi", "th", "ar", "tr", "pt", "de", "fr", "it", "nl",
	"ru", "pl", "cs", "ro", "hu", "uk", "sv", "da", "no", "fi", "el",
	"fa", "bg", "sr", "hr", "sk", "sl",
}

//go:embed locales/*.json
var localeFS embed.FS

//go:embed countries.json
var countriesJSON []byte

var (
	messages     map[string]map[string]string
	countryTable map[string]string
	defaultRes   *Resolver
)

func init() {
	loaded, err := loadMessages()
	if err != nil {
		panic(fmt.Errorf("load locale tables: %w", err))
	}
	messages = loaded

	countryTable = make(map[string]string)
	if err := json.Unmarshal(countriesJSON, &countryTable); err != nil {
		panic(fmt.Errorf("load country table: %w", err))
	}
	defaultRes = NewResolver(true)
}

func loadMessages() (map[string]map[string]string, error) {
	result := make(map[string]map[string]string, len(supportedLocales))
	for _, locale := range supportedLocales {
		raw, err := localeFS.ReadFile(path.Join("locales", locale+".json"))
		if err != nil {
			return nil, err
		}
		table := make(map[string]string)
		if err := json.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("%s: %w", locale, err)
		}
		result[locale] = table
	}
	return result, nil
}

// Supported 返回支持的语言列表副本
func Supported() []string {
	out := make([]string, len(supportedLocales))
	copy(out, supportedLocales)
	return out
}

// IsSupported 判断语言是否受支持
func IsSupported(locale string) bool {
	_, ok := messages[locale]
	return ok
}

// T 获取文案，缺失时回退英文，再回退 key 本身
func T(locale, key string) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[LocaleEN][key]; ok {
		return msg
	}
	return key
}

// Sprintf 获取带参数的文案
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// Messages 返回某语言完整文案表（已合并英文回退），供模板渲染使用
func Messages(locale string) map[string]string {
	base := messages[LocaleEN]
	out := make(map[string]string, len(base))
	for k, v := range base {
		out[k] = v
	}
	if table, ok := messages[locale]; ok && locale != LocaleEN {
		for k, v := range table {
			out[k] = v
		}
	}
	return out
}

// ResolveLocale 根据请求解析语言，?lang= 优先，其次表单 lang 字段，最后 Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return LocaleEN
	}
	for _, raw := range []string{c.Query("lang"), c.PostForm("lang")} {
		if lang := strings.ToLower(strings.TrimSpace(raw)); lang != "" && IsSupported(lang) {
			return lang
		}
	}
	return defaultRes.ResolveHeader("", c.GetHeader("Accept-Language"))
}
