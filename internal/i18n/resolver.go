package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Resolver 语言解析器
// 顺序：出口国家映射 -> Accept-Language 协商 -> 英文。
type Resolver struct {
	supported   []string
	matcher     language.Matcher
	countries   map[string]string
	countryFold map[string]string
	useCountry  bool
}

// NewResolver 创建语言解析器，useCountry 控制是否启用国家映射
func NewResolver(useCountry bool) *Resolver {
	tags := make([]language.Tag, 0, len(supportedLocales))
	for _, code := range supportedLocales {
		tags = append(tags, language.Make(code))
	}
	fold := make(map[string]string, len(countryTable))
	for label, locale := range countryTable {
		fold[strings.ToLower(label)] = locale
	}
	return &Resolver{
		supported:   Supported(),
		matcher:     language.NewMatcher(tags),
		countries:   countryTable,
		countryFold: fold,
		useCountry:  useCountry,
	}
}

// LocaleForCountry 通过国家名称或 ISO 代码查找语言
func (r *Resolver) LocaleForCountry(country string) (string, bool) {
	label := strings.TrimSpace(country)
	if r == nil || label == "" {
		return "", false
	}
	if locale, ok := r.countries[label]; ok {
		return locale, true
	}
	locale, ok := r.countryFold[strings.ToLower(label)]
	return locale, ok
}

// Resolve 解析语言，accepted 为按优先级排列的语言标签
func (r *Resolver) Resolve(country string, accepted ...string) string {
	if r == nil {
		return LocaleEN
	}
	if r.useCountry {
		if locale, ok := r.LocaleForCountry(country); ok {
			return locale
		}
	}
	tags := make([]language.Tag, 0, len(accepted))
	for _, raw := range accepted {
		tag, err := language.Parse(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	return r.negotiate(tags)
}

// ResolveHeader 使用原始 Accept-Language 头解析语言
func (r *Resolver) ResolveHeader(country, header string) string {
	if r == nil {
		return LocaleEN
	}
	if r.useCountry {
		if locale, ok := r.LocaleForCountry(country); ok {
			return locale
		}
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return LocaleEN
	}
	return r.negotiate(tags)
}

func (r *Resolver) negotiate(tags []language.Tag) string {
	if len(tags) == 0 {
		return LocaleEN
	}
	_, index, confidence := r.matcher.Match(tags...)
	if confidence != language.No && index >= 0 && index < len(r.supported) {
		return r.supported[index]
	}
	// matcher 对跨书写系统的标签（如 zh-TW）可能给出 No，按基础语言再匹配一次
	for _, tag := range tags {
		base, _ := tag.Base()
		code := base.String()
		if IsSupported(code) {
			return code
		}
	}
	return LocaleEN
}
