// Package udp 基于 net.UDPConn 实现数据报传输
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/dep2p/go-ringdht/internal/util/logger"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/types"
)

var log = logger.Logger("transport/udp")

// Transport UDP 数据报传输
type Transport struct {
	conn   *net.UDPConn
	local  types.Address
	closed atomic.Bool
}

var _ pkgif.Transport = (*Transport)(nil)

// Listen 在 addr（host:port）上监听
//
// 端口为 0 时绑定随机端口，LocalAddr 返回实际端口。
// host 必须是对端可达的具体地址，节点以解析后的 IP 作为身份对外通告。
func Listen(addr string) (*Transport, error) {
	a, err := types.ParseAddress(addr)
	if err != nil {
		return nil, err
	}
	ua, err := a.UDPAddr()
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	if ua.IP == nil || ua.IP.IsUnspecified() {
		return nil, fmt.Errorf("listen address %s must name a concrete host", addr)
	}

	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}

	bound := conn.LocalAddr().(*net.UDPAddr)
	t := &Transport{
		conn:  conn,
		local: types.AddressFromUDP(bound),
	}
	log.Debug("UDP 传输监听", "addr", t.local.String())
	return t, nil
}

// ReadFrom 阻塞读取一个数据报
func (t *Transport) ReadFrom(buf []byte) (int, types.Address, error) {
	n, from, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		if t.closed.Load() || errors.Is(err, net.ErrClosed) {
			return 0, types.Address{}, types.ErrServiceClosed
		}
		return 0, types.Address{}, err
	}
	return n, types.AddressFromUDP(from), nil
}

// WriteTo 发送一个数据报
func (t *Transport) WriteTo(b []byte, to types.Address) error {
	if t.closed.Load() {
		return types.ErrServiceClosed
	}
	ua, err := to.UDPAddr()
	if err != nil {
		return fmt.Errorf("resolve %s: %w", to, err)
	}
	_, err = t.conn.WriteToUDP(b, ua)
	return err
}

// LocalAddr 返回本地地址
func (t *Transport) LocalAddr() types.Address {
	return t.local
}

// Close 关闭传输，可重复调用
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	return t.conn.Close()
}
