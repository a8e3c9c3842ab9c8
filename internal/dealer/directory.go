package dealer

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed dealers.json
var dealersJSON []byte

// Directory 经销商代码到名称的只读映射
type Directory struct {
	names map[string]string
	raw   string
}

// Load 从内置数据加载经销商目录
func Load() (*Directory, error) {
	names := make(map[string]string)
	if err := json.Unmarshal(dealersJSON, &names); err != nil {
		return nil, fmt.Errorf("parse dealer table: %w", err)
	}
	return NewDirectory(names), nil
}

// MustLoad 加载失败直接 panic，仅用于启动阶段
func MustLoad() *Directory {
	dir, err := Load()
	if err != nil {
		panic(err)
	}
	return dir
}

// NewDirectory 基于给定映射创建目录（复制一份，之后不可变）
func NewDirectory(names map[string]string) *Directory {
	copied := make(map[string]string, len(names))
	for code, name := range names {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		copied[code] = strings.TrimSpace(name)
	}
	raw, _ := json.Marshal(copied)
	return &Directory{names: copied, raw: string(raw)}
}

// Lookup 查询经销商名称
func (d *Directory) Lookup(code string) (string, bool) {
	if d == nil {
		return "", false
	}
	name, ok := d.names[strings.TrimSpace(code)]
	return name, ok
}

// Name 查询经销商名称，未收录时原样返回代码
func (d *Directory) Name(code string) string {
	if name, ok := d.Lookup(code); ok {
		return name
	}
	return code
}

// Len 经销商数量
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.names)
}

// Codes 按字典序返回全部代码
func (d *Directory) Codes() []string {
	if d == nil {
		return nil
	}
	codes := make([]string, 0, len(d.names))
	for code := range d.names {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// JSON 序列化后的映射，供注册表单下拉使用
func (d *Directory) JSON() string {
	if d == nil {
		return "{}"
	}
	return d.raw
}
