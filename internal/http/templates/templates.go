package templates

import (
	"embed"
	"html/template"
	"strconv"
	"time"

	"github.com/equipment-registry/internal/constants"
	"github.com/equipment-registry/internal/models"
	"github.com/equipment-registry/internal/service"

	"github.com/gin-contrib/multitemplate"
)

//go:embed *.html
var files embed.FS

// 页面名称
const (
	PageScan         = "scan"
	PageVerification = "verification"
	PageDashboard    = "dashboard"
	PageError        = "error"
)

var pages = map[string]string{
	PageScan:         "scan.html",
	PageVerification: "verification.html",
	PageDashboard:    "dashboard.html",
	PageError:        "error.html",
}

// Page 页面渲染数据
type Page struct {
	Locale     string
	T          map[string]string
	Equipment  *models.Equipment
	DealerName string
	DealerJSON string
	Today      string
	Data       *service.DashboardData
	Message    string
	RequestID  string
}

// Funcs 模板函数
func Funcs() template.FuncMap {
	return template.FuncMap{
		"date": func(t *time.Time) string {
			if t == nil {
				return "-"
			}
			return t.Format(constants.DateLayout)
		},
		"datetime": func(t *time.Time) string {
			if t == nil {
				return "-"
			}
			return t.UTC().Format("2006-01-02 15:04:05") + " UTC"
		},
		"created": func(t time.Time) string {
			return t.Format(constants.DateLayout)
		},
		"coord": func(v *float64) string {
			if v == nil {
				return ""
			}
			return strconv.FormatFloat(*v, 'f', 6, 64)
		},
		"t": func(messages map[string]string, key string) string {
			if msg, ok := messages[key]; ok {
				return msg
			}
			return key
		},
	}
}

// Renderer 每个页面与布局组合成独立模板
func Renderer() (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()
	for name, file := range pages {
		tmpl, err := template.New("layout.html").Funcs(Funcs()).ParseFS(files, "layout.html", file)
		if err != nil {
			return nil, err
		}
		r.Add(name, tmpl)
	}
	return r, nil
}

// MustRenderer 模板解析失败直接 panic，仅用于启动阶段
func MustRenderer() multitemplate.Renderer {
	r, err := Renderer()
	if err != nil {
		panic(err)
	}
	return r
}
