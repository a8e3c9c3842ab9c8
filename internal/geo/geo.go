package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/equipment-registry/internal/config"
)

const defaultTimeout = 5 * time.Second

var (
	ErrAddressSkipped   = errors.New("geo address skipped")
	ErrRequestFailed    = errors.New("geo request failed")
	ErrResponseInvalid  = errors.New("geo response invalid")
	ErrLookupNotSuccess = errors.New("geo lookup not successful")
)

// Location IP 定位结果
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
}

// Locator IP 定位接口
type Locator interface {
	Locate(ctx context.Context, ip string) (*Location, error)
}

// Noop 未启用定位时使用
type Noop struct{}

// Locate 始终返回空结果
func (Noop) Locate(ctx context.Context, ip string) (*Location, error) {
	return nil, nil
}

// IPAPILocator 基于 ip-api.com 的定位实现
type IPAPILocator struct {
	endpoint string
	client   *http.Client
}

// NewIPAPILocator 创建 ip-api 定位客户端
func NewIPAPILocator(endpoint string, timeout time.Duration) *IPAPILocator {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = "http://ip-api.com/json/"
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &IPAPILocator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// NewLocator 按配置创建定位实现
func NewLocator(cfg config.GeoConfig) Locator {
	if !cfg.Enabled {
		return Noop{}
	}
	return NewIPAPILocator(cfg.Endpoint, time.Duration(cfg.TimeoutMS)*time.Millisecond)
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
	Country string  `json:"country"`
}

// Locate 查询公网 IP 的大致位置，内网与回环地址直接跳过
func (l *IPAPILocator) Locate(ctx context.Context, ip string) (*Location, error) {
	if !Routable(ip) {
		return nil, ErrAddressSkipped
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint+strings.TrimSpace(ip), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	var parsed ipAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if parsed.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrLookupNotSuccess, parsed.Message)
	}
	return &Location{
		Latitude:  parsed.Lat,
		Longitude: parsed.Lon,
		City:      parsed.City,
		Country:   parsed.Country,
	}, nil
}

// Routable 判断是否为可查询的公网地址
func Routable(raw string) bool {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return false
	}
	return !(ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}
