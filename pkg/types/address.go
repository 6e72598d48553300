package types

import (
	"fmt"
	"net"
	"strconv"
)

// ============================================================================
//                              Address - 网络地址
// ============================================================================

// Address (host, port) 二元组
//
// 这是消息层唯一使用的节点身份，线上格式为 "host:port"。
type Address struct {
	Host string
	Port int
}

// NewAddress 创建地址
func NewAddress(host string, port int) Address {
	return Address{Host: host, Port: port}
}

// ParseAddress 解析 "host:port"
func ParseAddress(s string) (Address, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return Address{}, fmt.Errorf("invalid port in address %q", s)
	}
	if host == "" {
		return Address{}, fmt.Errorf("invalid address %q: empty host", s)
	}
	return Address{Host: host, Port: port}, nil
}

// AddressFromUDP 从 *net.UDPAddr 转换
func AddressFromUDP(a *net.UDPAddr) Address {
	if a == nil {
		return Address{}
	}
	return Address{Host: a.IP.String(), Port: a.Port}
}

// String 返回 "host:port"
func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// IsZero 是否为空地址
func (a Address) IsZero() bool {
	return a.Host == "" && a.Port == 0
}

// UDPAddr 解析为 *net.UDPAddr
func (a Address) UDPAddr() (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", a.String())
}

// ============================================================================
//                              NodeRef - 节点引用
// ============================================================================

// NodeRef 节点 ID 与地址
type NodeRef struct {
	ID   NodeID
	Addr Address
}

// String 返回 "id@host:port"
func (r NodeRef) String() string {
	return r.ID.String() + "@" + r.Addr.String()
}
