// Package httputil HTTP 处理器公共工具：JSON 响应、请求体解析、分页参数
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
)

// MaxBodyBytes JSON 请求体上限
const MaxBodyBytes = 1 << 20

// ErrorBody 错误响应体
type ErrorBody struct {
	Message string `json:"message"`
}

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError 写入错误响应 {"message": "..."}
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Message: message})
}

// WriteMessage 写入成功消息 {"message": "..."}
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"message": message})
}

// DecodeJSON 严格解析 JSON 请求体：拒绝未知字段、拒绝多余内容、限制大小
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body too large")
		case errors.Is(err, io.EOF):
			return fmt.Errorf("request body is empty")
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			return fmt.Errorf("%s is not allowed", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return fmt.Errorf("invalid request body")
		}
	}
	if dec.More() {
		return fmt.Errorf("invalid request body")
	}
	return nil
}

// WantsJSON 客户端是否要求 JSON 响应（Accept 或 Content-Type 为 JSON）
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// PageParam 解析 ?page=N（从 1 开始），返回 offset；非法值按第 1 页处理
func PageParam(r *http.Request, perPage int) (offset int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}

// Int64Param 解析可选的整数查询参数
func Int64Param(r *http.Request, name string) (*int64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	return &v, nil
}

// TrustedProxies 可信反向代理地址段，只有来自这些地址的 X-Forwarded-For 会被采信
type TrustedProxies []netip.Prefix

// ParseTrustedProxies 解析 IP 或 CIDR 列表，如 "10.0.0.1"、"10.0.0.0/8"
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	tp := make(TrustedProxies, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", e, err)
			}
			tp = append(tp, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", e, err)
		}
		addr = addr.Unmap()
		tp = append(tp, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return tp, nil
}

func (tp TrustedProxies) contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range tp {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP 获取客户端 IP
//
// 直连对端不是可信代理时只使用 RemoteAddr；
// 否则从 X-Forwarded-For 最右端向左跳过可信代理，取第一个不可信地址。
func ClientIP(r *http.Request, trusted TrustedProxies) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !trusted.contains(peer) {
		return host
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = addr.Unmap()
		if !trusted.contains(client) {
			break
		}
	}
	return client.String()
}
